package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ProfileStore persists user profiles, keyed by username.
type ProfileStore struct {
	q DBTX
}

// Get retrieves a profile with its owned playlist ids materialized.
func (s *ProfileStore) Get(ctx context.Context, username string) (*UserProfile, error) {
	var p UserProfile
	err := s.q.QueryRowContext(ctx,
		`SELECT username FROM user_profiles WHERE username = ?`, username).Scan(&p.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(EntityProfile, username)
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	if p.PlaylistIDs, err = s.playlistIDs(ctx, username); err != nil {
		return nil, err
	}
	return &p, nil
}

// Exists reports whether a profile exists for username.
func (s *ProfileStore) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_profiles WHERE username = ?)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking profile: %w", err)
	}
	return exists, nil
}

// Put inserts the profile if it does not exist yet. The natural key never
// changes, so an existing profile is left as is. The linked account must exist.
func (s *ProfileStore) Put(ctx context.Context, p *UserProfile) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO user_profiles (username, created_at) VALUES (?, ?) ON CONFLICT(username) DO NOTHING`,
		p.Username, now())
	if isForeignKeyViolation(err) {
		return notFound(EntityAccount, p.Username)
	}
	if err != nil {
		return fmt.Errorf("creating profile: %w", err)
	}
	return nil
}

// Delete removes a profile row. Its playlists must already be gone.
func (s *ProfileStore) Delete(ctx context.Context, username string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM user_profiles WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	return checkAffected(result, EntityProfile, username)
}

// List returns all profiles in insertion order.
func (s *ProfileStore) List(ctx context.Context) ([]UserProfile, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT username FROM user_profiles ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}

	profiles := []UserProfile{}
	for rows.Next() {
		var p UserProfile
		if err := rows.Scan(&p.Username); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterating profiles: %w", err)
	}
	_ = rows.Close()

	for i := range profiles {
		ids, err := s.playlistIDs(ctx, profiles[i].Username)
		if err != nil {
			return nil, err
		}
		profiles[i].PlaylistIDs = ids
	}
	return profiles, nil
}

func (s *ProfileStore) playlistIDs(ctx context.Context, username string) ([]int64, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id FROM playlists WHERE owner_username = ? ORDER BY id`, username)
	if err != nil {
		return nil, fmt.Errorf("listing profile playlists: %w", err)
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning profile playlists: %w", err)
	}
	return ids, nil
}
