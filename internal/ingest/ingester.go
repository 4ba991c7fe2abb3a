package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sydlexius/phonyfy/internal/catalog"
)

// Loader is the part of the catalog coordinator ingestion needs.
type Loader interface {
	IngestAlbums(ctx context.Context, entries []catalog.IngestAlbum) (catalog.IngestResult, error)
}

// Ingester parses catalog documents and loads them in one unit of work each.
type Ingester struct {
	loader Loader
	logger *slog.Logger
}

// NewIngester creates an ingester over the given loader.
func NewIngester(loader Loader, logger *slog.Logger) *Ingester {
	return &Ingester{loader: loader, logger: logger.With("component", "ingest")}
}

// IngestReader parses and loads one document. source names it in logs.
func (i *Ingester) IngestReader(ctx context.Context, r io.Reader, source string) (catalog.IngestResult, error) {
	entries, err := Parse(r)
	if err != nil {
		return catalog.IngestResult{}, fmt.Errorf("parsing %s: %w", source, err)
	}

	res, err := i.loader.IngestAlbums(ctx, entries)
	if err != nil {
		return catalog.IngestResult{}, fmt.Errorf("ingesting %s: %w", source, err)
	}

	i.logger.Info("catalog ingested",
		"source", source,
		"albums", len(entries),
		"artists_created", res.Artists,
		"albums_created", res.Albums,
		"songs_created", res.Songs,
		"songs_skipped", res.Skipped,
	)
	return res, nil
}

// IngestFile parses and loads the document at path.
func (i *Ingester) IngestFile(ctx context.Context, path string) (catalog.IngestResult, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration or the watched directory
	if err != nil {
		return catalog.IngestResult{}, fmt.Errorf("opening catalog file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	return i.IngestReader(ctx, f, path)
}
