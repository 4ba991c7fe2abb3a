package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sydlexius/phonyfy/internal/duration"
)

const albumSelect = `SELECT al.id, al.name, al.release_date, al.total_duration, al.artist_id, ar.name
	FROM albums al JOIN artists ar ON ar.id = al.artist_id`

// AlbumStore persists albums. The total duration column is only written by
// SetTotalDuration.
type AlbumStore struct {
	q DBTX
}

// Get retrieves an album by id.
func (s *AlbumStore) Get(ctx context.Context, id int64) (*Album, error) {
	row := s.q.QueryRowContext(ctx, albumSelect+` WHERE al.id = ?`, id)
	a, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(EntityAlbum, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting album by id: %w", err)
	}
	return a, nil
}

// FindByName retrieves the first album of the given artist whose name matches
// case-insensitively. Returns nil, nil when none matches.
func (s *AlbumStore) FindByName(ctx context.Context, name string, artistID int64) (*Album, error) {
	row := s.q.QueryRowContext(ctx,
		albumSelect+` WHERE al.artist_id = ? AND al.name_key = ? ORDER BY al.id LIMIT 1`,
		artistID, nameKey(name))
	a, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting album by name: %w", err)
	}
	return a, nil
}

// Put inserts the album when its ID is zero and updates it otherwise.
// New albums start with a zero total duration.
func (s *AlbumStore) Put(ctx context.Context, a *Album) error {
	if a.ID == 0 {
		ts := now()
		result, err := s.q.ExecContext(ctx, `
			INSERT INTO albums (name, name_key, release_date, total_duration, artist_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, a.Name, nameKey(a.Name), a.ReleaseDateString(), duration.Zero, a.ArtistID, ts, ts)
		if err != nil {
			return fmt.Errorf("creating album: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading album id: %w", err)
		}
		a.ID = id
		a.TotalDuration = duration.Zero
		return nil
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE albums SET name = ?, name_key = ?, release_date = ?, artist_id = ?, updated_at = ?
		WHERE id = ?
	`, a.Name, nameKey(a.Name), a.ReleaseDateString(), a.ArtistID, now(), a.ID)
	if err != nil {
		return fmt.Errorf("updating album: %w", err)
	}
	return checkAffected(result, EntityAlbum, a.ID)
}

// SetTotalDuration stores a recomputed aggregate.
func (s *AlbumStore) SetTotalDuration(ctx context.Context, id int64, total string) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE albums SET total_duration = ?, updated_at = ? WHERE id = ?`, total, now(), id)
	if err != nil {
		return fmt.Errorf("updating album total duration: %w", err)
	}
	return checkAffected(result, EntityAlbum, id)
}

// Delete removes an album row. Its songs must already be gone.
func (s *AlbumStore) Delete(ctx context.Context, id int64) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM albums WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting album: %w", err)
	}
	return checkAffected(result, EntityAlbum, id)
}

// List returns all albums in insertion order.
func (s *AlbumStore) List(ctx context.Context) ([]Album, error) {
	return s.list(ctx, albumSelect+` ORDER BY al.id`)
}

// ListByArtist returns the albums owned by an artist in insertion order.
func (s *AlbumStore) ListByArtist(ctx context.Context, artistID int64) ([]Album, error) {
	return s.list(ctx, albumSelect+` WHERE al.artist_id = ? ORDER BY al.id`, artistID)
}

func (s *AlbumStore) list(ctx context.Context, query string, args ...any) ([]Album, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing albums: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	albums := []Album{}
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning album: %w", err)
		}
		albums = append(albums, *a)
	}
	return albums, rows.Err()
}

func scanAlbum(row interface{ Scan(...any) error }) (*Album, error) {
	var a Album
	var releaseDate string
	if err := row.Scan(&a.ID, &a.Name, &releaseDate, &a.TotalDuration, &a.ArtistID, &a.ArtistName); err != nil {
		return nil, err
	}
	if releaseDate != "" {
		t, err := time.Parse(DateLayout, releaseDate)
		if err != nil {
			return nil, fmt.Errorf("parsing release date %q: %w", releaseDate, err)
		}
		a.ReleaseDate = t
	}
	return &a, nil
}
