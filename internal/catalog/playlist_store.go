package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/sydlexius/phonyfy/internal/duration"
)

const playlistColumns = `id, name, total_duration, owner_username`

// PlaylistStore persists playlists and owns the playlist_songs join table.
type PlaylistStore struct {
	q DBTX
}

// Get retrieves a playlist by id with its song ids materialized.
func (s *PlaylistStore) Get(ctx context.Context, id int64) (*Playlist, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE id = ?`, id)
	p, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(EntityPlaylist, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting playlist by id: %w", err)
	}
	if p.SongIDs, err = s.SongIDs(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

// Put inserts the playlist when its ID is zero and updates name and owner
// otherwise. Membership and the total duration are written separately.
func (s *PlaylistStore) Put(ctx context.Context, p *Playlist) error {
	if p.ID == 0 {
		ts := now()
		total := p.TotalDuration
		if total == "" {
			total = duration.Zero
		}
		result, err := s.q.ExecContext(ctx, `
			INSERT INTO playlists (name, total_duration, owner_username, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, p.Name, total, p.OwnerUsername, ts, ts)
		if isForeignKeyViolation(err) {
			return notFound(EntityProfile, p.OwnerUsername)
		}
		if err != nil {
			return fmt.Errorf("creating playlist: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading playlist id: %w", err)
		}
		p.ID = id
		p.TotalDuration = total
		return nil
	}

	result, err := s.q.ExecContext(ctx,
		`UPDATE playlists SET name = ?, owner_username = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.OwnerUsername, now(), p.ID)
	if isForeignKeyViolation(err) {
		return notFound(EntityProfile, p.OwnerUsername)
	}
	if err != nil {
		return fmt.Errorf("updating playlist: %w", err)
	}
	return checkAffected(result, EntityPlaylist, p.ID)
}

// SetTotalDuration stores a recomputed aggregate.
func (s *PlaylistStore) SetTotalDuration(ctx context.Context, id int64, total string) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE playlists SET total_duration = ?, updated_at = ? WHERE id = ?`, total, now(), id)
	if err != nil {
		return fmt.Errorf("updating playlist total duration: %w", err)
	}
	return checkAffected(result, EntityPlaylist, id)
}

// Delete removes a playlist row. Its memberships must already be cleared.
func (s *PlaylistStore) Delete(ctx context.Context, id int64) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting playlist: %w", err)
	}
	return checkAffected(result, EntityPlaylist, id)
}

// SongIDs returns the member song ids of a playlist in ascending order.
func (s *PlaylistStore) SongIDs(ctx context.Context, playlistID int64) ([]int64, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT song_id FROM playlist_songs WHERE playlist_id = ? ORDER BY song_id`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("listing playlist songs: %w", err)
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning playlist songs: %w", err)
	}
	return ids, nil
}

// ReplaceSongs swaps the membership set of a playlist. Duplicate ids
// collapse to a single membership.
func (s *PlaylistStore) ReplaceSongs(ctx context.Context, playlistID int64, songIDs []int64) error {
	if err := s.ClearSongs(ctx, playlistID); err != nil {
		return err
	}
	for _, songID := range dedupe(songIDs) {
		_, err := s.q.ExecContext(ctx,
			`INSERT INTO playlist_songs (playlist_id, song_id) VALUES (?, ?)`, playlistID, songID)
		if isForeignKeyViolation(err) {
			return notFound(EntitySong, songID)
		}
		if err != nil {
			return fmt.Errorf("adding song %d to playlist: %w", songID, err)
		}
	}
	return nil
}

// ClearSongs removes every membership row of a playlist.
func (s *PlaylistStore) ClearSongs(ctx context.Context, playlistID int64) error {
	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM playlist_songs WHERE playlist_id = ?`, playlistID); err != nil {
		return fmt.Errorf("clearing playlist songs: %w", err)
	}
	return nil
}

// RemoveSong severs one membership from the owning side.
func (s *PlaylistStore) RemoveSong(ctx context.Context, playlistID, songID int64) error {
	result, err := s.q.ExecContext(ctx,
		`DELETE FROM playlist_songs WHERE playlist_id = ? AND song_id = ?`, playlistID, songID)
	if err != nil {
		return fmt.Errorf("removing song from playlist: %w", err)
	}
	return checkAffected(result, EntitySong, songID)
}

// List returns all playlists in insertion order.
func (s *PlaylistStore) List(ctx context.Context) ([]Playlist, error) {
	return s.list(ctx, `SELECT `+playlistColumns+` FROM playlists ORDER BY id`)
}

// ListByOwner returns the playlists owned by a profile in insertion order.
func (s *PlaylistStore) ListByOwner(ctx context.Context, username string) ([]Playlist, error) {
	return s.list(ctx,
		`SELECT `+playlistColumns+` FROM playlists WHERE owner_username = ? ORDER BY id`, username)
}

// IDsByOwner returns the ids of the playlists owned by a profile.
func (s *PlaylistStore) IDsByOwner(ctx context.Context, username string) ([]int64, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id FROM playlists WHERE owner_username = ? ORDER BY id`, username)
	if err != nil {
		return nil, fmt.Errorf("listing playlist ids by owner: %w", err)
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning playlist ids: %w", err)
	}
	return ids, nil
}

func (s *PlaylistStore) list(ctx context.Context, query string, args ...any) ([]Playlist, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing playlists: %w", err)
	}

	playlists := []Playlist{}
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scanning playlist: %w", err)
		}
		playlists = append(playlists, *p)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterating playlists: %w", err)
	}
	// Close before loading memberships: SQLite runs on a single connection.
	_ = rows.Close()

	for i := range playlists {
		ids, err := s.SongIDs(ctx, playlists[i].ID)
		if err != nil {
			return nil, err
		}
		playlists[i].SongIDs = ids
	}
	return playlists, nil
}

func scanPlaylist(row interface{ Scan(...any) error }) (*Playlist, error) {
	var p Playlist
	if err := row.Scan(&p.ID, &p.Name, &p.TotalDuration, &p.OwnerUsername); err != nil {
		return nil, err
	}
	return &p, nil
}

// dedupe returns the distinct ids in ascending order.
func dedupe(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
