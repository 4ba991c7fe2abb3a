package api

import (
	"net/http"

	"github.com/sydlexius/phonyfy/internal/catalog"
)

type songRequest struct {
	Name           string  `json:"name"`
	Genre          string  `json:"genre"`
	FeaturedArtist *string `json:"featured_artist"`
	Duration       string  `json:"duration"`
	ArtistID       *int64  `json:"main_artist_id"`
	ArtistName     string  `json:"main_artist_name"`
	AlbumID        *int64  `json:"album_id"`
	AlbumName      string  `json:"album_name"`
}

// songPatchRequest uses pointers so omitted fields stay unchanged.
type songPatchRequest struct {
	Name           *string `json:"name"`
	Genre          *string `json:"genre"`
	FeaturedArtist *string `json:"featured_artist"`
	Duration       *string `json:"duration"`
	AlbumID        *int64  `json:"album_id"`
}

// GET /api/v1/songs
func (r *Router) handleListSongs(w http.ResponseWriter, req *http.Request) {
	songs, err := r.catalog.Songs(req.Context())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

// GET /api/v1/songs/{id}
func (r *Router) handleGetSong(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	s, err := r.catalog.Song(req.Context(), id)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// handleCreateSong creates a song. Artist and album are each given by id or
// by name; the album must already exist under that artist.
// POST /api/v1/songs
func (r *Router) handleCreateSong(w http.ResponseWriter, req *http.Request) {
	var body songRequest
	if err := decodeJSON(w, req, &body); err != nil {
		r.writeError(w, req, err)
		return
	}
	s, err := r.catalog.CreateSong(req.Context(),
		ref(body.ArtistID, body.ArtistName),
		ref(body.AlbumID, body.AlbumName),
		catalog.SongFields{
			Name:           body.Name,
			Genre:          body.Genre,
			FeaturedArtist: body.FeaturedArtist,
			Duration:       body.Duration,
		})
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// PUT /api/v1/songs/{id}
func (r *Router) handleUpdateSong(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	var body songPatchRequest
	if err := decodeJSON(w, req, &body); err != nil {
		r.writeError(w, req, err)
		return
	}
	s, err := r.catalog.UpdateSong(req.Context(), id, catalog.SongPatch{
		Name:           body.Name,
		Genre:          body.Genre,
		FeaturedArtist: body.FeaturedArtist,
		Duration:       body.Duration,
		AlbumID:        body.AlbumID,
	})
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// DELETE /api/v1/songs/{id}
func (r *Router) handleDeleteSong(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	if err := r.catalog.DeleteSong(req.Context(), id); err != nil {
		r.writeError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
