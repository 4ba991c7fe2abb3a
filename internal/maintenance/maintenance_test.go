package maintenance

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sydlexius/phonyfy/internal/database"
)

func setupTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "phonyfy.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, dbPath
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStatus(t *testing.T) {
	db, dbPath := setupTestDB(t)
	ctx := context.Background()
	if _, err := db.ExecContext(ctx,
		`INSERT INTO artists (name, name_key, type, created_at, updated_at) VALUES ('A', 'a', '', 'x', 'x')`); err != nil {
		t.Fatal(err)
	}

	svc := NewService(db, dbPath, "", 3, testLogger())
	st, err := svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.DBFileSize <= 0 {
		t.Error("expected positive DB file size")
	}
	if st.PageCount <= 0 || st.PageSize <= 0 {
		t.Errorf("page_count = %d, page_size = %d", st.PageCount, st.PageSize)
	}
	if st.Rows["artists"] != 1 || st.Rows["songs"] != 0 {
		t.Errorf("Rows = %v", st.Rows)
	}
	if st.LastOptimizeAt != nil || st.LastBackupAt != nil {
		t.Error("no maintenance has run yet")
	}
}

func TestOptimize(t *testing.T) {
	db, dbPath := setupTestDB(t)
	svc := NewService(db, dbPath, "", 3, testLogger())
	ctx := context.Background()

	if err := svc.Optimize(ctx); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	st, err := svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.LastOptimizeAt == nil {
		t.Error("LastOptimizeAt not recorded")
	}
}

func TestBackup(t *testing.T) {
	db, dbPath := setupTestDB(t)
	svc := NewService(db, dbPath, "", 3, testLogger())

	info, err := svc.Backup(context.Background())
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if !IsValidBackupFilename(info.Filename) {
		t.Errorf("Filename = %q", info.Filename)
	}
	if info.Size == 0 {
		t.Error("expected non-zero file size")
	}

	// The snapshot is a readable database with the migrated schema.
	path := filepath.Join(filepath.Dir(dbPath), "backups", info.Filename)
	snap, err := database.Open(path)
	if err != nil {
		t.Fatalf("opening backup: %v", err)
	}
	defer snap.Close() //nolint:errcheck
	var n int
	if err := snap.QueryRow("SELECT COUNT(*) FROM songs").Scan(&n); err != nil {
		t.Fatalf("querying backup: %v", err)
	}
}

func TestPrune(t *testing.T) {
	db, dbPath := setupTestDB(t)
	backupDir := filepath.Join(t.TempDir(), "b")
	svc := NewService(db, dbPath, backupDir, 2, testLogger())

	if err := os.MkdirAll(backupDir, 0o750); err != nil {
		t.Fatal(err)
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		name := "phonyfy-" + base.Add(time.Duration(i)*time.Hour).Format(backupTimeLayout) + ".db"
		if err := os.WriteFile(filepath.Join(backupDir, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(backupDir, "notes.txt"), []byte("keep"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := svc.Prune(); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	backups, err := svc.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(backups) != 2 {
		t.Fatalf("got %d backups, want 2", len(backups))
	}
	if want := "phonyfy-20260101-030000.db"; backups[0].Filename != want {
		t.Errorf("newest = %q, want %q", backups[0].Filename, want)
	}
	if _, err := os.Stat(filepath.Join(backupDir, "notes.txt")); err != nil {
		t.Error("unrelated files must survive pruning")
	}
}

func TestListBackups_MissingDir(t *testing.T) {
	db, dbPath := setupTestDB(t)
	svc := NewService(db, dbPath, filepath.Join(t.TempDir(), "absent"), 2, testLogger())
	backups, err := svc.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("got %d backups, want 0", len(backups))
	}
}

func TestIsValidBackupFilename(t *testing.T) {
	tests := map[string]bool{
		"phonyfy-20260101-030000.db":    true,
		"phonyfy-2026-01-01.db":         false,
		"../phonyfy-20260101-030000.db": false,
		"backup-20260101-030000.db":     false,
	}
	for name, want := range tests {
		if got := IsValidBackupFilename(name); got != want {
			t.Errorf("IsValidBackupFilename(%q) = %v, want %v", name, got, want)
		}
	}
}
