package catalog

import (
	"context"
	"strings"

	"github.com/sydlexius/phonyfy/internal/event"
)

// CreateAlbum explicitly creates an album under an artist. An id ref must name
// an existing artist; a name ref resolves the artist or creates it, so
// repeated calls with the same case-folded name share one artist.
func (c *Coordinator) CreateAlbum(ctx context.Context, artist Ref, f AlbumFields) (*Album, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, required("name")
	}
	if f.ReleaseDate.IsZero() {
		return nil, required("release date")
	}
	if artist.IsZero() {
		return nil, &IntegrityError{Description: "album requires an artist"}
	}

	var out *Album
	err := c.run(ctx, "create_album", func(u *unit) error {
		al, err := u.createAlbum(artist, "", name, f)
		if err != nil {
			return err
		}
		out = al
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *unit) createAlbum(artist Ref, artistType, name string, f AlbumFields) (*Album, error) {
	var a *Artist
	var err error
	if artist.ID != 0 {
		a, err = u.st.Artists.Get(u.ctx, artist.ID)
	} else {
		a, err = u.resolveOrCreateArtist(artist.Name, artistType)
	}
	if err != nil {
		return nil, err
	}

	al := &Album{
		Name:        name,
		ReleaseDate: f.ReleaseDate,
		ArtistID:    a.ID,
		ArtistName:  a.Name,
	}
	if err := u.st.Albums.Put(u.ctx, al); err != nil {
		return nil, err
	}
	u.emit(event.AlbumCreated, map[string]any{"album_id": al.ID, "artist_id": a.ID, "name": al.Name})
	return al, nil
}

// resolveOrCreateArtist wraps the resolver so that a creation is reported.
func (u *unit) resolveOrCreateArtist(name, artistType string) (*Artist, error) {
	existing, err := u.st.Artists.FindByName(u.ctx, name)
	if err != nil {
		return nil, err
	}
	a, err := u.res.ResolveOrCreateArtist(u.ctx, name, artistType)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		u.emit(event.ArtistCreated, map[string]any{"artist_id": a.ID, "name": a.Name})
	}
	return a, nil
}

// UpdateAlbum changes an album's name and, when set, its release date. The
// total duration is derived and the owning artist is fixed.
func (c *Coordinator) UpdateAlbum(ctx context.Context, id int64, f AlbumFields) (*Album, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, required("name")
	}

	var out *Album
	err := c.run(ctx, "update_album", func(u *unit) error {
		al, err := u.st.Albums.Get(u.ctx, id)
		if err != nil {
			return err
		}
		al.Name = name
		if !f.ReleaseDate.IsZero() {
			al.ReleaseDate = f.ReleaseDate
		}
		if err := u.st.Albums.Put(u.ctx, al); err != nil {
			return err
		}
		u.emit(event.AlbumUpdated, map[string]any{"album_id": al.ID, "name": al.Name})
		out = al
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAlbum deletes every song of the album, with their playlist
// memberships, then the album itself.
func (c *Coordinator) DeleteAlbum(ctx context.Context, id int64) error {
	return c.run(ctx, "delete_album", func(u *unit) error {
		return u.deleteAlbum(id)
	})
}

func (u *unit) deleteAlbum(id int64) error {
	al, err := u.st.Albums.Get(u.ctx, id)
	if err != nil {
		return err
	}

	songs, err := u.st.Songs.ListByAlbum(u.ctx, id)
	if err != nil {
		return err
	}
	for _, s := range songs {
		if err := ignoreNotFound(u.deleteSong(s.ID)); err != nil {
			return err
		}
	}

	if err := u.st.Albums.Delete(u.ctx, id); err != nil {
		return err
	}
	u.emit(event.AlbumDeleted, map[string]any{"album_id": id, "artist_id": al.ArtistID, "songs": len(songs)})
	return nil
}
