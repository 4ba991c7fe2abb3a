package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sydlexius/phonyfy/internal/account"
	"github.com/sydlexius/phonyfy/internal/api/middleware"
	"github.com/sydlexius/phonyfy/internal/catalog"
	"github.com/sydlexius/phonyfy/internal/duration"
	"github.com/sydlexius/phonyfy/internal/version"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.Commit,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// writeError maps an operation error to its HTTP status. Unexpected errors
// are logged and reported without detail.
func (r *Router) writeError(w http.ResponseWriter, req *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		r.logger.Error("request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"request_id", middleware.RequestIDFromContext(req.Context()),
			"error", err)
		writeJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrValidation), errors.Is(err, duration.ErrMalformed):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrIntegrity):
		return http.StatusConflict
	case errors.Is(err, account.ErrInvalidCredentials), errors.Is(err, account.ErrInvalidSession):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}

// decodeJSON reads a single JSON object from the request body into v.
// Unknown fields are rejected so typos do not silently drop data.
func decodeJSON(w http.ResponseWriter, req *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &catalog.ValidationError{Field: "request body", Reason: "is empty"}
		}
		return &catalog.ValidationError{Field: "request body", Reason: err.Error()}
	}
	return nil
}

// pathID parses the {id} path value as a positive integer.
func pathID(req *http.Request) (int64, error) {
	raw := req.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, &catalog.ValidationError{Field: "id", Reason: fmt.Sprintf("%q is not a positive integer", raw)}
	}
	return id, nil
}

// ref builds a catalog reference from an optional id and a name.
func ref(id *int64, name string) catalog.Ref {
	if id != nil && *id > 0 {
		return catalog.ByID(*id)
	}
	return catalog.ByName(name)
}
