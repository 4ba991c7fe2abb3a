// Package maintenance keeps the SQLite catalog file healthy: periodic
// optimize and WAL checkpoints, plus VACUUM INTO snapshots with count-based
// retention.
package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sydlexius/phonyfy/internal/database"
)

const backupTimeLayout = "20060102-150405"

// backupPattern matches backup filenames: phonyfy-YYYYMMDD-HHMMSS.db
var backupPattern = regexp.MustCompile(`^phonyfy-\d{8}-\d{6}\.db$`)

// catalogTables are counted in Status, in display order.
var catalogTables = []string{"artists", "albums", "songs", "playlists", "user_profiles"}

// Status holds database maintenance status information.
type Status struct {
	SchemaVersion  int64            `json:"schema_version"`
	DBFileSize     int64            `json:"db_file_size"`
	WALFileSize    int64            `json:"wal_file_size"`
	PageCount      int64            `json:"page_count"`
	PageSize       int64            `json:"page_size"`
	Rows           map[string]int64 `json:"rows"`
	LastOptimizeAt *time.Time       `json:"last_optimize_at,omitempty"`
	LastBackupAt   *time.Time       `json:"last_backup_at,omitempty"`
	Backups        int              `json:"backups"`
}

// BackupInfo describes a backup file.
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Service provides database maintenance operations.
type Service struct {
	db        *sql.DB
	dbPath    string
	backupDir string
	retention int
	logger    *slog.Logger

	mu           sync.Mutex
	lastOptimize time.Time
	lastBackup   time.Time
}

// NewService creates a maintenance service. An empty backupDir places
// backups in a "backups" directory next to the database file.
func NewService(db *sql.DB, dbPath, backupDir string, retention int, logger *slog.Logger) *Service {
	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(dbPath), "backups")
	}
	if retention < 1 {
		retention = 1
	}
	return &Service{
		db:        db,
		dbPath:    dbPath,
		backupDir: backupDir,
		retention: retention,
		logger:    logger.With(slog.String("component", "maintenance")),
	}
}

// Status returns current database maintenance status.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	st := &Status{Rows: make(map[string]int64, len(catalogTables))}

	if info, err := os.Stat(s.dbPath); err == nil {
		st.DBFileSize = info.Size()
	}
	if info, err := os.Stat(s.dbPath + "-wal"); err == nil {
		st.WALFileSize = info.Size()
	}

	v, err := database.SchemaVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	st.SchemaVersion = v

	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&st.PageCount); err != nil {
		return nil, fmt.Errorf("reading page_count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&st.PageSize); err != nil {
		return nil, fmt.Errorf("reading page_size: %w", err)
	}

	for _, table := range catalogTables {
		var n int64
		//nolint:gosec // table names come from a fixed list
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		st.Rows[table] = n
	}

	backups, err := s.ListBackups()
	if err != nil {
		return nil, err
	}
	st.Backups = len(backups)

	s.mu.Lock()
	if !s.lastOptimize.IsZero() {
		t := s.lastOptimize
		st.LastOptimizeAt = &t
	}
	if !s.lastBackup.IsZero() {
		t := s.lastBackup
		st.LastBackupAt = &t
	}
	s.mu.Unlock()

	return st, nil
}

// Optimize runs PRAGMA optimize followed by a WAL checkpoint.
func (s *Service) Optimize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("PRAGMA optimize: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}

	s.mu.Lock()
	s.lastOptimize = time.Now().UTC()
	s.mu.Unlock()

	s.logger.Info("optimize complete")
	return nil
}

// Backup writes a consistent snapshot of the database with VACUUM INTO and
// prunes snapshots beyond the retention count.
func (s *Service) Backup(ctx context.Context) (*BackupInfo, error) {
	if err := os.MkdirAll(s.backupDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	now := time.Now().UTC()
	filename := "phonyfy-" + now.Format(backupTimeLayout) + ".db"
	dest := filepath.Join(s.backupDir, filename)
	if _, err := os.Stat(dest); err == nil {
		return nil, fmt.Errorf("backup %s already exists", filename)
	}

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return nil, fmt.Errorf("VACUUM INTO: %w", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("stat backup file: %w", err)
	}

	s.mu.Lock()
	s.lastBackup = now
	s.mu.Unlock()

	s.logger.Info("backup complete",
		slog.String("filename", filename),
		slog.Int64("size", info.Size()))

	if err := s.Prune(); err != nil {
		s.logger.Warn("pruning backups", slog.Any("error", err))
	}

	return &BackupInfo{Filename: filename, Size: info.Size(), CreatedAt: now}, nil
}

// ListBackups returns all backup files, newest first.
func (s *Service) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !backupPattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		stamp := strings.TrimSuffix(strings.TrimPrefix(entry.Name(), "phonyfy-"), ".db")
		ts, err := time.Parse(backupTimeLayout, stamp)
		if err != nil {
			ts = info.ModTime()
		}

		backups = append(backups, BackupInfo{
			Filename:  entry.Name(),
			Size:      info.Size(),
			CreatedAt: ts,
		})
	}

	slices.SortFunc(backups, func(a, b BackupInfo) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return backups, nil
}

// Prune deletes the oldest backups beyond the retention count.
func (s *Service) Prune() error {
	backups, err := s.ListBackups()
	if err != nil {
		return err
	}
	if len(backups) <= s.retention {
		return nil
	}
	for _, b := range backups[s.retention:] {
		if err := os.Remove(filepath.Join(s.backupDir, b.Filename)); err != nil {
			s.logger.Warn("failed to remove old backup",
				slog.String("filename", b.Filename),
				slog.Any("error", err))
			continue
		}
		s.logger.Info("pruned old backup", slog.String("filename", b.Filename))
	}
	return nil
}

// Run optimizes and backs up the database on a fixed interval until ctx is
// cancelled. Failures are logged and retried at the next tick.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	s.logger.Info("maintenance scheduler started",
		slog.String("interval", interval.String()),
		slog.Int("retention", s.retention))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Optimize(ctx); err != nil {
				s.logger.Error("scheduled optimize failed", slog.Any("error", err))
			}
			if _, err := s.Backup(ctx); err != nil {
				s.logger.Error("scheduled backup failed", slog.Any("error", err))
			}
		}
	}
}

// IsValidBackupFilename checks if a filename matches the expected backup pattern
// and does not contain path traversal characters.
func IsValidBackupFilename(filename string) bool {
	if strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return false
	}
	return backupPattern.MatchString(filename)
}
