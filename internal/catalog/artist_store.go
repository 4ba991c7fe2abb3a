package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const artistColumns = `id, name, type`

// ArtistStore persists artists.
type ArtistStore struct {
	q DBTX
}

// Get retrieves an artist by id.
func (s *ArtistStore) Get(ctx context.Context, id int64) (*Artist, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+artistColumns+` FROM artists WHERE id = ?`, id)
	a, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(EntityArtist, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting artist by id: %w", err)
	}
	return a, nil
}

// FindByName retrieves an artist by case-insensitive exact name.
// Returns nil, nil when no artist matches.
func (s *ArtistStore) FindByName(ctx context.Context, name string) (*Artist, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+artistColumns+` FROM artists WHERE name_key = ?`, nameKey(name))
	a, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting artist by name: %w", err)
	}
	return a, nil
}

// Put inserts the artist when its ID is zero and updates it otherwise.
func (s *ArtistStore) Put(ctx context.Context, a *Artist) error {
	if a.ID == 0 {
		ts := now()
		result, err := s.q.ExecContext(ctx, `
			INSERT INTO artists (name, name_key, type, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, a.Name, nameKey(a.Name), a.Type, ts, ts)
		if isUniqueViolation(err) {
			return &IntegrityError{Description: fmt.Sprintf("artist name %q already exists", a.Name)}
		}
		if err != nil {
			return fmt.Errorf("creating artist: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading artist id: %w", err)
		}
		a.ID = id
		return nil
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE artists SET name = ?, name_key = ?, type = ?, updated_at = ? WHERE id = ?
	`, a.Name, nameKey(a.Name), a.Type, now(), a.ID)
	if isUniqueViolation(err) {
		return &IntegrityError{Description: fmt.Sprintf("artist name %q already exists", a.Name)}
	}
	if err != nil {
		return fmt.Errorf("updating artist: %w", err)
	}
	return checkAffected(result, EntityArtist, a.ID)
}

// Delete removes an artist row. Owned albums and songs must already be gone.
func (s *ArtistStore) Delete(ctx context.Context, id int64) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM artists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting artist: %w", err)
	}
	return checkAffected(result, EntityArtist, id)
}

// List returns all artists in insertion order.
func (s *ArtistStore) List(ctx context.Context) ([]Artist, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+artistColumns+` FROM artists ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing artists: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	artists := []Artist{}
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning artist: %w", err)
		}
		artists = append(artists, *a)
	}
	return artists, rows.Err()
}

func scanArtist(row interface{ Scan(...any) error }) (*Artist, error) {
	var a Artist
	if err := row.Scan(&a.ID, &a.Name, &a.Type); err != nil {
		return nil, err
	}
	return &a, nil
}
