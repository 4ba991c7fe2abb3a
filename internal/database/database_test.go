package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
)

func TestOpenAndMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "phonyfy.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// Running again is a no-op.
	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	v, err := SchemaVersion(context.Background(), db)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v < 1 {
		t.Errorf("version = %d, want >= 1", v)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	_, err = db.ExecContext(context.Background(), `
		INSERT INTO albums (name, name_key, release_date, artist_id, created_at, updated_at)
		VALUES ('Orphan', 'orphan', '2001-03-12', 42, datetime('now'), datetime('now'))
	`)
	if err == nil {
		t.Fatal("expected foreign key violation for missing artist")
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	ctx := context.Background()

	boom := errors.New("boom")
	err = WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO artists (name, name_key, type, created_at, updated_at)
			VALUES ('Air', 'air', '', datetime('now'), datetime('now'))
		`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want boom", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artists`).Scan(&count); err != nil {
		t.Fatalf("counting artists: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 after rollback", count)
	}
}

func TestAccountRolesMigration_PromotesOldestAccount(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		t.Fatalf("SetDialect: %v", err)
	}
	if err := goose.UpTo(db, "migrations", 2); err != nil {
		t.Fatalf("UpTo 2: %v", err)
	}
	if _, err := db.Exec(`
		INSERT INTO accounts (username, password_hash, created_at) VALUES
			('bob', 'x', '2024-01-02T00:00:00Z'),
			('alice', 'x', '2024-01-01T00:00:00Z')
	`); err != nil {
		t.Fatalf("seeding accounts: %v", err)
	}

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	roles := map[string]string{}
	rows, err := db.Query(`SELECT username, role FROM accounts`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var u, r string
		if err := rows.Scan(&u, &r); err != nil {
			t.Fatalf("scan: %v", err)
		}
		roles[u] = r
	}
	if roles["alice"] != "admin" || roles["bob"] != "user" {
		t.Errorf("roles = %v, want alice admin and bob user", roles)
	}

	if _, err := db.Exec(`UPDATE accounts SET role = 'root' WHERE username = 'bob'`); err == nil {
		t.Error("expected CHECK constraint to reject an unknown role")
	}
}
