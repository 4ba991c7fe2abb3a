package api

import (
	"net/http"

	"github.com/sydlexius/phonyfy/internal/api/middleware"
)

// handleImport ingests a YAML catalog document from the request body in one
// transaction. Tracks already present on their album are skipped.
// POST /api/v1/catalog/import
func (r *Router) handleImport(w http.ResponseWriter, req *http.Request) {
	if r.ingester == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "catalog import not available"})
		return
	}
	body := http.MaxBytesReader(w, req.Body, maxImportBytes)
	source := "upload by " + middleware.UsernameFromContext(req.Context())
	result, err := r.ingester.IngestReader(req.Context(), body, source)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
