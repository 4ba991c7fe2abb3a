package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sydlexius/phonyfy/internal/catalog"
	"github.com/sydlexius/phonyfy/internal/event"
)

// Subdirectories of the drop directory that receive handled files.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// FileIngester loads one catalog file.
type FileIngester interface {
	IngestFile(ctx context.Context, path string) (catalog.IngestResult, error)
}

// Publisher receives watcher events.
type Publisher interface {
	Publish(e event.Event)
}

// Watcher ingests catalog files dropped into a directory. Files are ingested
// once writes settle, then moved to processed/ or failed/. A periodic sweep
// catches anything fsnotify missed and is the only source of work when
// fsnotify does not work on the directory.
type Watcher struct {
	dir          string
	ingester     FileIngester
	bus          Publisher
	logger       *slog.Logger
	debounce     time.Duration
	pollInterval time.Duration
	probeTimeout time.Duration

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewWatcher creates a watcher for dir. bus may be nil.
func NewWatcher(dir string, ingester FileIngester, bus Publisher, logger *slog.Logger) *Watcher {
	return &Watcher{
		dir:          dir,
		ingester:     ingester,
		bus:          bus,
		logger:       logger.With("component", "ingest-watcher"),
		debounce:     1 * time.Second,
		pollInterval: 30 * time.Second,
		probeTimeout: 2 * time.Second,
		pending:      make(map[string]struct{}),
	}
}

// SetDebounce overrides the default debounce interval (for testing).
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// SetPollInterval overrides the default sweep interval (for testing).
func (w *Watcher) SetPollInterval(d time.Duration) {
	w.pollInterval = d
}

// Run blocks until ctx is canceled. Files already waiting in the directory
// are ingested first.
func (w *Watcher) Run(ctx context.Context) error {
	for _, sub := range []string{"", ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(w.dir, sub), 0o750); err != nil {
			return fmt.Errorf("creating drop directory: %w", err)
		}
	}

	var eventCh <-chan fsnotify.Event
	var errCh <-chan error
	if ProbeFSNotify(w.dir, w.probeTimeout) {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			w.logger.Warn("fsnotify unavailable, running poll-only", "error", err)
		} else {
			defer fw.Close() //nolint:errcheck
			if err := fw.Add(w.dir); err != nil {
				w.logger.Warn("cannot watch drop directory, running poll-only", "path", w.dir, "error", err)
			} else {
				eventCh = fw.Events
				errCh = fw.Errors
			}
		}
	} else {
		w.logger.Warn("fsnotify probe failed, running poll-only", "path", w.dir)
	}

	w.logger.Info("ingest watcher starting", "path", w.dir, "fsnotify", eventCh != nil)
	w.sweep()
	w.processPending(ctx)

	pollTicker := time.NewTicker(w.pollInterval)
	defer pollTicker.Stop()

	// Starts stopped; reset on each relevant event.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("ingest watcher stopping")
			return nil

		case ev, ok := <-eventCh:
			if !ok {
				return nil
			}
			if w.handleFSEvent(ev) {
				resetTimer(debounceTimer, w.debounce)
			}

		case err, ok := <-errCh:
			if !ok {
				return nil
			}
			w.logger.Error("fsnotify error", "error", err)

		case <-debounceTimer.C:
			w.processPending(ctx)

		case <-pollTicker.C:
			if w.sweep() > 0 {
				resetTimer(debounceTimer, w.debounce)
			}
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// handleFSEvent queues a created or written catalog file that sits directly
// in the drop directory. It reports whether anything was queued.
func (w *Watcher) handleFSEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	if filepath.Dir(ev.Name) != filepath.Clean(w.dir) || !isCatalogFile(ev.Name) {
		return false
	}

	w.mu.Lock()
	w.pending[ev.Name] = struct{}{}
	w.mu.Unlock()
	return true
}

// sweep queues every catalog file currently in the drop directory.
func (w *Watcher) sweep() int {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Error("reading drop directory", "path", w.dir, "error", err)
		return 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, e := range entries {
		if e.IsDir() || !isCatalogFile(e.Name()) {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if _, ok := w.pending[path]; !ok {
			w.pending[path] = struct{}{}
			n++
		}
	}
	return n
}

// processPending ingests queued files in name order.
func (w *Watcher) processPending(ctx context.Context) {
	w.mu.Lock()
	paths := slices.Sorted(maps.Keys(w.pending))
	clear(w.pending)
	w.mu.Unlock()

	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		w.process(ctx, path)
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	_, err := w.ingester.IngestFile(ctx, path)
	if err == nil {
		w.move(path, ProcessedDir)
		return
	}

	w.logger.Error("catalog file rejected", "path", path, "error", err)
	w.move(path, FailedDir)
	if w.bus != nil {
		w.bus.Publish(event.Event{
			Type: event.CatalogFileRejected,
			Data: map[string]any{
				"path":  path,
				"error": err.Error(),
			},
		})
	}
}

func (w *Watcher) move(path, sub string) {
	dest := filepath.Join(w.dir, sub, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		w.logger.Error("moving catalog file", "from", path, "to", dest, "error", err)
	}
}

func isCatalogFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
