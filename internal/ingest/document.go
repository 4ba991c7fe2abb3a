// Package ingest loads YAML catalog documents into the catalog, either on
// demand or from a watched drop directory.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sydlexius/phonyfy/internal/catalog"
)

// Document is the on-disk catalog format.
type Document struct {
	Albums []AlbumEntry `yaml:"albums"`
}

// AlbumEntry is one album and its tracks.
type AlbumEntry struct {
	Artist      string       `yaml:"artist"`
	ArtistType  string       `yaml:"artist_type"`
	Name        string       `yaml:"name"`
	ReleaseDate string       `yaml:"release_date"`
	Tracks      []TrackEntry `yaml:"tracks"`
}

// TrackEntry is one track. An empty featured artist means none.
type TrackEntry struct {
	Name           string `yaml:"name"`
	Genre          string `yaml:"genre"`
	Duration       string `yaml:"duration"`
	FeaturedArtist string `yaml:"featured_artist"`
}

// Parse decodes a catalog document. Unknown keys are rejected so that a
// misspelled field fails loudly instead of importing partial data.
func Parse(r io.Reader) ([]catalog.IngestAlbum, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &catalog.ValidationError{Field: "document", Reason: "is empty"}
		}
		return nil, &catalog.ValidationError{Field: "document", Reason: err.Error()}
	}
	return doc.convert()
}

func (d Document) convert() ([]catalog.IngestAlbum, error) {
	out := make([]catalog.IngestAlbum, 0, len(d.Albums))
	for i, a := range d.Albums {
		var released time.Time
		if s := strings.TrimSpace(a.ReleaseDate); s != "" {
			t, err := time.Parse(catalog.DateLayout, s)
			if err != nil {
				return nil, &catalog.ValidationError{
					Field:  fmt.Sprintf("albums[%d].release_date", i),
					Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", s),
				}
			}
			released = t
		}

		tracks := make([]catalog.IngestTrack, 0, len(a.Tracks))
		for _, t := range a.Tracks {
			track := catalog.IngestTrack{Name: t.Name, Genre: t.Genre, Duration: t.Duration}
			if f := strings.TrimSpace(t.FeaturedArtist); f != "" {
				track.FeaturedArtist = &f
			}
			tracks = append(tracks, track)
		}

		out = append(out, catalog.IngestAlbum{
			Artist:      a.Artist,
			ArtistType:  a.ArtistType,
			Name:        a.Name,
			ReleaseDate: released,
			Tracks:      tracks,
		})
	}
	return out, nil
}
