package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/sydlexius/phonyfy/internal/duration"
	"github.com/sydlexius/phonyfy/internal/event"
)

// CreateSong creates a song under an existing artist and album. Either ref may
// be an id or a name; album names are matched within the resolved artist.
// Neither the artist nor the album is ever created here.
func (c *Coordinator) CreateSong(ctx context.Context, artist, album Ref, f SongFields) (*Song, error) {
	var out *Song
	err := c.run(ctx, "create_song", func(u *unit) error {
		s, err := u.createSong(artist, album, f)
		if err != nil {
			return err
		}
		if err := u.flush(); err != nil {
			return err
		}
		out, err = u.st.Songs.Get(u.ctx, s.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *unit) createSong(artistRef, albumRef Ref, f SongFields) (*Song, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, required("name")
	}
	if artistRef.IsZero() {
		return nil, &IntegrityError{Description: "song requires a main artist"}
	}
	if albumRef.IsZero() {
		return nil, &IntegrityError{Description: "song requires an album"}
	}
	d, err := duration.Canonical(f.Duration)
	if err != nil {
		return nil, err
	}

	a, err := u.res.artist(u.ctx, artistRef)
	if err != nil {
		return nil, err
	}
	al, err := u.res.album(u.ctx, albumRef, a.ID)
	if err != nil {
		return nil, err
	}
	if al.ArtistID != a.ID {
		return nil, &IntegrityError{
			Description: fmt.Sprintf("album %d belongs to artist %d, not %d", al.ID, al.ArtistID, a.ID),
		}
	}

	s := &Song{
		Name:           name,
		Genre:          f.Genre,
		FeaturedArtist: featuredArtist(f.FeaturedArtist),
		Duration:       d,
		ArtistID:       a.ID,
		ArtistName:     a.Name,
		AlbumID:        al.ID,
		AlbumName:      al.Name,
	}
	if err := u.st.Songs.Put(u.ctx, s); err != nil {
		return nil, err
	}
	u.touchAlbum(al.ID)
	u.emit(event.SongCreated, map[string]any{"song_id": s.ID, "album_id": al.ID, "artist_id": a.ID})
	return s, nil
}

// featuredArtist trims a featured artist name. Blank means absent.
func featuredArtist(name *string) *string {
	if name == nil {
		return nil
	}
	f := strings.TrimSpace(*name)
	if f == "" {
		return nil
	}
	return &f
}

// UpdateSong applies a partial update. Changing the duration or album
// recomputes the old album, the new album, and every playlist holding the song.
func (c *Coordinator) UpdateSong(ctx context.Context, id int64, p SongPatch) (*Song, error) {
	var out *Song
	err := c.run(ctx, "update_song", func(u *unit) error {
		s, err := u.st.Songs.Get(u.ctx, id)
		if err != nil {
			return err
		}

		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return required("name")
			}
			s.Name = name
		}
		if p.Genre != nil {
			s.Genre = *p.Genre
		}
		if p.FeaturedArtist != nil {
			s.FeaturedArtist = featuredArtist(p.FeaturedArtist)
		}
		durationChanged := false
		if p.Duration != nil {
			d, err := duration.Canonical(*p.Duration)
			if err != nil {
				return err
			}
			durationChanged = d != s.Duration
			s.Duration = d
		}
		oldAlbum := s.AlbumID
		if p.AlbumID != nil && *p.AlbumID != s.AlbumID {
			al, err := u.st.Albums.Get(u.ctx, *p.AlbumID)
			if err != nil {
				return err
			}
			if al.ArtistID != s.ArtistID {
				return &IntegrityError{
					Description: fmt.Sprintf("album %d belongs to artist %d, not %d", al.ID, al.ArtistID, s.ArtistID),
				}
			}
			s.AlbumID = al.ID
		}

		if err := u.st.Songs.Put(u.ctx, s); err != nil {
			return err
		}

		if durationChanged || oldAlbum != s.AlbumID {
			u.touchAlbum(oldAlbum)
			u.touchAlbum(s.AlbumID)
		}
		if durationChanged {
			playlists, err := u.st.Songs.PlaylistIDs(u.ctx, id)
			if err != nil {
				return err
			}
			for _, pid := range playlists {
				u.touchPlaylist(pid)
			}
		}
		u.emit(event.SongUpdated, map[string]any{"song_id": id, "album_id": s.AlbumID})

		if err := u.flush(); err != nil {
			return err
		}
		out, err = u.st.Songs.Get(u.ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteSong removes a song from every playlist that holds it, then from its
// album, then deletes it. Every affected total is recomputed.
func (c *Coordinator) DeleteSong(ctx context.Context, id int64) error {
	return c.run(ctx, "delete_song", func(u *unit) error {
		return u.deleteSong(id)
	})
}

func (u *unit) deleteSong(id int64) error {
	s, err := u.st.Songs.Get(u.ctx, id)
	if err != nil {
		return err
	}

	playlists, err := u.st.Songs.PlaylistIDs(u.ctx, id)
	if err != nil {
		return err
	}
	for _, pid := range playlists {
		if err := ignoreNotFound(u.st.Playlists.RemoveSong(u.ctx, pid, id)); err != nil {
			return err
		}
		u.touchPlaylist(pid)
	}

	if err := u.st.Songs.Delete(u.ctx, id); err != nil {
		return err
	}
	u.touchAlbum(s.AlbumID)
	u.emit(event.SongDeleted, map[string]any{"song_id": id, "album_id": s.AlbumID, "playlists": len(playlists)})
	return nil
}
