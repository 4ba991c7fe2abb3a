package api

import (
	"net/http"

	"github.com/sydlexius/phonyfy/internal/api/middleware"
	"github.com/sydlexius/phonyfy/internal/catalog"
)

type playlistRequest struct {
	Name          string  `json:"name"`
	OwnerUsername string  `json:"owner_username"`
	SongIDs       []int64 `json:"song_ids"`
}

type playlistPatchRequest struct {
	Name    *string  `json:"name"`
	SongIDs *[]int64 `json:"song_ids"`
}

type playlistSongsRequest struct {
	SongIDs []int64 `json:"song_ids"`
}

// GET /api/v1/playlists
func (r *Router) handleListPlaylists(w http.ResponseWriter, req *http.Request) {
	playlists, err := r.catalog.Playlists(req.Context())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

// GET /api/v1/playlists/{id}
func (r *Router) handleGetPlaylist(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	p, err := r.catalog.Playlist(req.Context(), id)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GET /api/v1/playlists/owner/{username}
func (r *Router) handleListOwnerPlaylists(w http.ResponseWriter, req *http.Request) {
	playlists, err := r.catalog.PlaylistsByOwner(req.Context(), req.PathValue("username"))
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

// handleCreatePlaylist creates a playlist owned by the caller. An explicit
// owner_username must name the caller.
// POST /api/v1/playlists
func (r *Router) handleCreatePlaylist(w http.ResponseWriter, req *http.Request) {
	var body playlistRequest
	if err := decodeJSON(w, req, &body); err != nil {
		r.writeError(w, req, err)
		return
	}
	caller := middleware.UsernameFromContext(req.Context())
	if body.OwnerUsername != "" && body.OwnerUsername != caller {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "playlists can only be created for yourself"})
		return
	}
	p, err := r.catalog.CreatePlaylist(req.Context(), caller, body.Name, body.SongIDs)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// PUT /api/v1/playlists/{id}
func (r *Router) handleUpdatePlaylist(w http.ResponseWriter, req *http.Request) {
	id, ok := r.ownedPlaylist(w, req)
	if !ok {
		return
	}
	var body playlistPatchRequest
	if err := decodeJSON(w, req, &body); err != nil {
		r.writeError(w, req, err)
		return
	}
	p, err := r.catalog.UpdatePlaylist(req.Context(), id, catalog.PlaylistPatch{Name: body.Name, SongIDs: body.SongIDs})
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleSetPlaylistSongs replaces the playlist's song set. Every id must
// exist or nothing changes.
// PUT /api/v1/playlists/{id}/songs
func (r *Router) handleSetPlaylistSongs(w http.ResponseWriter, req *http.Request) {
	id, ok := r.ownedPlaylist(w, req)
	if !ok {
		return
	}
	var body playlistSongsRequest
	if err := decodeJSON(w, req, &body); err != nil {
		r.writeError(w, req, err)
		return
	}
	p, err := r.catalog.SetPlaylistMembership(req.Context(), id, body.SongIDs)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DELETE /api/v1/playlists/{id}
func (r *Router) handleDeletePlaylist(w http.ResponseWriter, req *http.Request) {
	id, ok := r.ownedPlaylist(w, req)
	if !ok {
		return
	}
	if err := r.catalog.RemovePlaylistFromOwner(req.Context(), id); err != nil {
		r.writeError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownedPlaylist resolves the {id} path value and checks that the caller owns
// the playlist. It writes the error response itself when it returns false.
func (r *Router) ownedPlaylist(w http.ResponseWriter, req *http.Request) (int64, bool) {
	id, err := pathID(req)
	if err != nil {
		r.writeError(w, req, err)
		return 0, false
	}
	p, err := r.catalog.Playlist(req.Context(), id)
	if err != nil {
		r.writeError(w, req, err)
		return 0, false
	}
	if p.OwnerUsername != middleware.UsernameFromContext(req.Context()) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "playlist belongs to another user"})
		return 0, false
	}
	return id, true
}
