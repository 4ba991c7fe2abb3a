package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const songSelect = `SELECT s.id, s.name, s.genre, s.featured_artist, s.duration,
	s.artist_id, ar.name, s.album_id, al.name
	FROM songs s
	JOIN artists ar ON ar.id = s.artist_id
	JOIN albums al ON al.id = s.album_id`

// SongStore persists songs and reads the inverse side of playlist membership.
type SongStore struct {
	q DBTX
}

// Get retrieves a song by id.
func (s *SongStore) Get(ctx context.Context, id int64) (*Song, error) {
	row := s.q.QueryRowContext(ctx, songSelect+` WHERE s.id = ?`, id)
	song, err := scanSong(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(EntitySong, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting song by id: %w", err)
	}
	return song, nil
}

// Exists reports whether a song row with the given id exists.
func (s *SongStore) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM songs WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking song: %w", err)
	}
	return exists, nil
}

// Put inserts the song when its ID is zero and updates it otherwise.
func (s *SongStore) Put(ctx context.Context, song *Song) error {
	if song.ID == 0 {
		ts := now()
		result, err := s.q.ExecContext(ctx, `
			INSERT INTO songs (name, genre, featured_artist, duration, artist_id, album_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, song.Name, song.Genre, nullableString(song.FeaturedArtist), song.Duration,
			song.ArtistID, song.AlbumID, ts, ts)
		if err != nil {
			return fmt.Errorf("creating song: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading song id: %w", err)
		}
		song.ID = id
		return nil
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE songs SET name = ?, genre = ?, featured_artist = ?, duration = ?,
			artist_id = ?, album_id = ?, updated_at = ?
		WHERE id = ?
	`, song.Name, song.Genre, nullableString(song.FeaturedArtist), song.Duration,
		song.ArtistID, song.AlbumID, now(), song.ID)
	if err != nil {
		return fmt.Errorf("updating song: %w", err)
	}
	return checkAffected(result, EntitySong, song.ID)
}

// Delete removes a song row. Playlist memberships must already be severed.
func (s *SongStore) Delete(ctx context.Context, id int64) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting song: %w", err)
	}
	return checkAffected(result, EntitySong, id)
}

// List returns all songs in insertion order.
func (s *SongStore) List(ctx context.Context) ([]Song, error) {
	return s.list(ctx, songSelect+` ORDER BY s.id`)
}

// ListByAlbum returns the songs of an album in insertion order.
func (s *SongStore) ListByAlbum(ctx context.Context, albumID int64) ([]Song, error) {
	return s.list(ctx, songSelect+` WHERE s.album_id = ? ORDER BY s.id`, albumID)
}

// ListByArtist returns the songs whose main artist is artistID.
func (s *SongStore) ListByArtist(ctx context.Context, artistID int64) ([]Song, error) {
	return s.list(ctx, songSelect+` WHERE s.artist_id = ? ORDER BY s.id`, artistID)
}

// DurationsByAlbum returns the durations of every song on an album.
func (s *SongStore) DurationsByAlbum(ctx context.Context, albumID int64) ([]string, error) {
	return s.durations(ctx, `SELECT duration FROM songs WHERE album_id = ? ORDER BY id`, albumID)
}

// DurationsByPlaylist returns the durations of every song in a playlist.
func (s *SongStore) DurationsByPlaylist(ctx context.Context, playlistID int64) ([]string, error) {
	return s.durations(ctx, `
		SELECT s.duration FROM songs s
		JOIN playlist_songs ps ON ps.song_id = s.id
		WHERE ps.playlist_id = ? ORDER BY s.id
	`, playlistID)
}

// PlaylistIDs returns the playlists containing a song (the inverse side of
// the membership relation).
func (s *SongStore) PlaylistIDs(ctx context.Context, songID int64) ([]int64, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT playlist_id FROM playlist_songs WHERE song_id = ? ORDER BY playlist_id`, songID)
	if err != nil {
		return nil, fmt.Errorf("listing playlists for song: %w", err)
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning playlist ids: %w", err)
	}
	return ids, nil
}

func (s *SongStore) durations(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing durations: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scanning duration: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SongStore) list(ctx context.Context, query string, args ...any) ([]Song, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing songs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	songs := []Song{}
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning song: %w", err)
		}
		songs = append(songs, *song)
	}
	return songs, rows.Err()
}

func scanSong(row interface{ Scan(...any) error }) (*Song, error) {
	var song Song
	var featured sql.NullString
	err := row.Scan(
		&song.ID, &song.Name, &song.Genre, &featured, &song.Duration,
		&song.ArtistID, &song.ArtistName, &song.AlbumID, &song.AlbumName,
	)
	if err != nil {
		return nil, err
	}
	if featured.Valid {
		f := featured.String
		song.FeaturedArtist = &f
	}
	return &song, nil
}
