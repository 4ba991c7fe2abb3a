package api

import (
	"errors"
	"net/http"

	"github.com/sydlexius/phonyfy/internal/account"
	"github.com/sydlexius/phonyfy/internal/api/middleware"
	"github.com/sydlexius/phonyfy/internal/catalog"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"` //nolint:gosec // G117: request field, not a hardcoded secret
}

// handleRegister creates an account together with its user profile.
// POST /api/v1/profiles
func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	var body credentials
	if err := decodeJSON(w, req, &body); err != nil {
		r.writeError(w, req, err)
		return
	}
	p, err := r.accounts.Register(req.Context(), body.Username, body.Password)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	r.logger.Info("account registered", "username", p.Username)
	writeJSON(w, http.StatusCreated, p)
}

// GET /api/v1/profiles
func (r *Router) handleListProfiles(w http.ResponseWriter, req *http.Request) {
	profiles, err := r.catalog.Profiles(req.Context())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// GET /api/v1/profiles/{username}
func (r *Router) handleGetProfile(w http.ResponseWriter, req *http.Request) {
	p, err := r.catalog.Profile(req.Context(), req.PathValue("username"))
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleDeleteProfile deletes the caller's profile with all of its playlists
// and then the account behind it.
// DELETE /api/v1/profiles/{username}
func (r *Router) handleDeleteProfile(w http.ResponseWriter, req *http.Request) {
	username := req.PathValue("username")
	if username != middleware.UsernameFromContext(req.Context()) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "profiles can only be deleted by their owner"})
		return
	}
	// A missing profile means an earlier delete stopped before the account went.
	if err := r.catalog.DeleteUserProfile(req.Context(), username); err != nil && !errors.Is(err, catalog.ErrNotFound) {
		r.writeError(w, req, err)
		return
	}
	if err := r.accounts.Delete(req.Context(), username); err != nil && !errors.Is(err, catalog.ErrNotFound) {
		r.writeError(w, req, err)
		return
	}
	r.logger.Info("account deleted", "username", username)
	w.WriteHeader(http.StatusNoContent)
}

// handleLogin exchanges credentials for a bearer token.
// POST /api/v1/auth/login
func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var body credentials
	if err := decodeJSON(w, req, &body); err != nil {
		r.writeError(w, req, err)
		return
	}
	token, err := r.accounts.Login(req.Context(), body.Username, body.Password)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"username": body.Username,
		"token":    token,
	})
}

// POST /api/v1/auth/logout
func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	if err := r.accounts.Logout(req.Context(), middleware.TokenFromRequest(req)); err != nil {
		r.writeError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	*catalog.UserProfile
	Role account.Role `json:"role"`
}

// handleMe returns the caller's profile and role.
// GET /api/v1/auth/me
func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	p, err := r.catalog.Profile(req.Context(), middleware.UsernameFromContext(req.Context()))
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{UserProfile: p, Role: middleware.RoleFromContext(req.Context())})
}
