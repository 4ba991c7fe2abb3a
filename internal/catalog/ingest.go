package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sydlexius/phonyfy/internal/event"
)

// IngestTrack is one track of an ingested album.
type IngestTrack struct {
	Name           string
	Genre          string
	Duration       string
	FeaturedArtist *string
}

// IngestAlbum is one album entry of a catalog document.
type IngestAlbum struct {
	Artist      string
	ArtistType  string
	Name        string
	ReleaseDate time.Time
	Tracks      []IngestTrack
}

// IngestResult counts what an ingestion created.
type IngestResult struct {
	Artists int `json:"artists_created"`
	Albums  int `json:"albums_created"`
	Songs   int `json:"songs_created"`
	Skipped int `json:"songs_skipped"`
}

// IngestAlbums loads a batch of albums in one unit of work. Artists are
// resolved or created by name, albums are found within their artist or
// created from the entry's release date, and tracks already on the album
// (by case-folded name) are skipped, so importing the same document twice
// changes nothing.
func (c *Coordinator) IngestAlbums(ctx context.Context, entries []IngestAlbum) (IngestResult, error) {
	var res IngestResult
	err := c.run(ctx, "ingest", func(u *unit) error {
		res = IngestResult{}
		for i, entry := range entries {
			if err := u.ingestAlbum(entry, &res); err != nil {
				return fmt.Errorf("album %d (%q): %w", i+1, entry.Name, err)
			}
		}
		u.emit(event.CatalogIngested, map[string]any{
			"artists": res.Artists,
			"albums":  res.Albums,
			"songs":   res.Songs,
			"skipped": res.Skipped,
		})
		return nil
	})
	if err != nil {
		return IngestResult{}, err
	}
	return res, nil
}

func (u *unit) ingestAlbum(entry IngestAlbum, res *IngestResult) error {
	artistName := strings.TrimSpace(entry.Artist)
	if artistName == "" {
		return required("artist")
	}
	albumName := strings.TrimSpace(entry.Name)
	if albumName == "" {
		return required("name")
	}

	before, err := u.st.Artists.FindByName(u.ctx, artistName)
	if err != nil {
		return err
	}
	a, err := u.resolveOrCreateArtist(artistName, entry.ArtistType)
	if err != nil {
		return err
	}
	if before == nil {
		res.Artists++
	}

	al, err := u.st.Albums.FindByName(u.ctx, albumName, a.ID)
	if err != nil {
		return err
	}
	if al == nil {
		if entry.ReleaseDate.IsZero() {
			return required("release date")
		}
		al, err = u.createAlbum(ByID(a.ID), "", albumName, AlbumFields{Name: albumName, ReleaseDate: entry.ReleaseDate})
		if err != nil {
			return err
		}
		res.Albums++
	}

	existing, err := u.st.Songs.ListByAlbum(u.ctx, al.ID)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing)+len(entry.Tracks))
	for _, s := range existing {
		seen[nameKey(s.Name)] = true
	}

	for _, t := range entry.Tracks {
		key := nameKey(t.Name)
		if seen[key] {
			res.Skipped++
			continue
		}
		_, err := u.createSong(ByID(a.ID), ByID(al.ID), SongFields{
			Name:           t.Name,
			Genre:          t.Genre,
			Duration:       t.Duration,
			FeaturedArtist: t.FeaturedArtist,
		})
		if err != nil {
			return fmt.Errorf("track %q: %w", t.Name, err)
		}
		seen[key] = true
		res.Songs++
	}
	return nil
}
