package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx. Stores built over
// a *sql.Tx take part in that transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Stores bundles one store per entity type over the same query handle.
type Stores struct {
	Artists   *ArtistStore
	Albums    *AlbumStore
	Songs     *SongStore
	Playlists *PlaylistStore
	Profiles  *ProfileStore
}

// NewStores builds the five entity stores over q.
func NewStores(q DBTX) *Stores {
	return &Stores{
		Artists:   &ArtistStore{q: q},
		Albums:    &AlbumStore{q: q},
		Songs:     &SongStore{q: q},
		Playlists: &PlaylistStore{q: q},
		Profiles:  &ProfileStore{q: q},
	}
}

// nameKey is the Unicode case-folded form used for natural-key matching.
// A Caser keeps state, so each call builds its own.
func nameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// isForeignKeyViolation reports whether err is a SQLite FOREIGN KEY failure.
func isForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

// checkAffected turns a zero-row update or delete into a NotFound error.
func checkAffected(result sql.Result, entity string, key any) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(entity, key)
	}
	return nil
}

// scanIDs drains rows of a single integer column.
func scanIDs(rows *sql.Rows) ([]int64, error) {
	defer rows.Close() //nolint:errcheck

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
