package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/sydlexius/phonyfy/internal/catalog"
)

type albumRequest struct {
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	ArtistID    *int64 `json:"artist_id"`
	ArtistName  string `json:"artist_name"`
}

func (b albumRequest) fields() (catalog.AlbumFields, error) {
	f := catalog.AlbumFields{Name: b.Name}
	if s := strings.TrimSpace(b.ReleaseDate); s != "" {
		d, err := time.Parse(catalog.DateLayout, s)
		if err != nil {
			return f, &catalog.ValidationError{Field: "release date", Reason: "must be YYYY-MM-DD"}
		}
		f.ReleaseDate = d
	}
	return f, nil
}

// GET /api/v1/albums
func (r *Router) handleListAlbums(w http.ResponseWriter, req *http.Request) {
	albums, err := r.catalog.Albums(req.Context())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, albums)
}

// GET /api/v1/albums/{id}
func (r *Router) handleGetAlbum(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	al, err := r.catalog.Album(req.Context(), id)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, al)
}

// handleCreateAlbum creates an album under an artist given by id or name.
// An unknown artist name creates the artist.
// POST /api/v1/albums
func (r *Router) handleCreateAlbum(w http.ResponseWriter, req *http.Request) {
	var body albumRequest
	if err := decodeJSON(w, req, &body); err != nil {
		r.writeError(w, req, err)
		return
	}
	f, err := body.fields()
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	al, err := r.catalog.CreateAlbum(req.Context(), ref(body.ArtistID, body.ArtistName), f)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, al)
}

// PUT /api/v1/albums/{id}
func (r *Router) handleUpdateAlbum(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	var body albumRequest
	if err := decodeJSON(w, req, &body); err != nil {
		r.writeError(w, req, err)
		return
	}
	f, err := body.fields()
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	al, err := r.catalog.UpdateAlbum(req.Context(), id, f)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, al)
}

// DELETE /api/v1/albums/{id}
func (r *Router) handleDeleteAlbum(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	if err := r.catalog.DeleteAlbum(req.Context(), id); err != nil {
		r.writeError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
