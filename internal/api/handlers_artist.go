package api

import (
	"net/http"

	"github.com/sydlexius/phonyfy/internal/catalog"
)

type artistRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// handleListArtists returns every artist ordered by id.
// GET /api/v1/artists
func (r *Router) handleListArtists(w http.ResponseWriter, req *http.Request) {
	artists, err := r.catalog.Artists(req.Context())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, artists)
}

// GET /api/v1/artists/{id}
func (r *Router) handleGetArtist(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	a, err := r.catalog.Artist(req.Context(), id)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleListArtistAlbums returns the albums owned by one artist.
// GET /api/v1/artists/{id}/albums
func (r *Router) handleListArtistAlbums(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	albums, err := r.catalog.AlbumsByArtist(req.Context(), id)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, albums)
}

// POST /api/v1/artists
func (r *Router) handleCreateArtist(w http.ResponseWriter, req *http.Request) {
	var body artistRequest
	if err := decodeJSON(w, req, &body); err != nil {
		r.writeError(w, req, err)
		return
	}
	a, err := r.catalog.CreateArtist(req.Context(), catalog.ArtistFields{Name: body.Name, Type: body.Type})
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// PUT /api/v1/artists/{id}
func (r *Router) handleUpdateArtist(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	var body artistRequest
	if err := decodeJSON(w, req, &body); err != nil {
		r.writeError(w, req, err)
		return
	}
	a, err := r.catalog.UpdateArtist(req.Context(), id, catalog.ArtistFields{Name: body.Name, Type: body.Type})
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleDeleteArtist removes an artist with its albums and songs.
// DELETE /api/v1/artists/{id}
func (r *Router) handleDeleteArtist(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	if err := r.catalog.DeleteArtist(req.Context(), id); err != nil {
		r.writeError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
