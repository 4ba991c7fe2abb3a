package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/sydlexius/phonyfy/internal/event"
)

// CreateArtist explicitly creates an artist. The case-folded name must be unused.
func (c *Coordinator) CreateArtist(ctx context.Context, f ArtistFields) (*Artist, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, required("name")
	}

	var out *Artist
	err := c.run(ctx, "create_artist", func(u *unit) error {
		existing, err := u.st.Artists.FindByName(u.ctx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			return &IntegrityError{Description: fmt.Sprintf("artist name %q already exists", existing.Name)}
		}
		a := &Artist{Name: name, Type: f.Type}
		if err := u.st.Artists.Put(u.ctx, a); err != nil {
			return err
		}
		u.emit(event.ArtistCreated, map[string]any{"artist_id": a.ID, "name": a.Name})
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateArtist renames or retypes an artist. Albums and songs read the artist
// name through their relation, so nothing else needs rewriting.
func (c *Coordinator) UpdateArtist(ctx context.Context, id int64, f ArtistFields) (*Artist, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, required("name")
	}

	var out *Artist
	err := c.run(ctx, "update_artist", func(u *unit) error {
		a, err := u.st.Artists.Get(u.ctx, id)
		if err != nil {
			return err
		}
		clash, err := u.st.Artists.FindByName(u.ctx, name)
		if err != nil {
			return err
		}
		if clash != nil && clash.ID != id {
			return &IntegrityError{Description: fmt.Sprintf("artist name %q already exists", clash.Name)}
		}
		a.Name = name
		a.Type = f.Type
		if err := u.st.Artists.Put(u.ctx, a); err != nil {
			return err
		}
		u.emit(event.ArtistUpdated, map[string]any{"artist_id": a.ID, "name": a.Name})
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteArtist deletes an artist after cascading through its albums (and
// their songs) and any remaining songs credited to it.
func (c *Coordinator) DeleteArtist(ctx context.Context, id int64) error {
	return c.run(ctx, "delete_artist", func(u *unit) error {
		return u.deleteArtist(id)
	})
}

func (u *unit) deleteArtist(id int64) error {
	a, err := u.st.Artists.Get(u.ctx, id)
	if err != nil {
		return err
	}

	albums, err := u.st.Albums.ListByArtist(u.ctx, id)
	if err != nil {
		return err
	}
	for _, al := range albums {
		if err := ignoreNotFound(u.deleteAlbum(al.ID)); err != nil {
			return err
		}
	}

	// Songs are always filed under an album of their own artist, so this is
	// normally empty; it keeps the foreign key satisfied regardless.
	songs, err := u.st.Songs.ListByArtist(u.ctx, id)
	if err != nil {
		return err
	}
	for _, s := range songs {
		if err := ignoreNotFound(u.deleteSong(s.ID)); err != nil {
			return err
		}
	}

	if err := u.st.Artists.Delete(u.ctx, id); err != nil {
		return err
	}
	u.emit(event.ArtistDeleted, map[string]any{"artist_id": id, "name": a.Name, "albums": len(albums)})
	return nil
}
