package catalog

import (
	"context"
	"database/sql"
	"log/slog"
	"maps"
	"slices"

	"github.com/sydlexius/phonyfy/internal/database"
	"github.com/sydlexius/phonyfy/internal/duration"
	"github.com/sydlexius/phonyfy/internal/event"
)

// Publisher receives events for committed units of work.
type Publisher interface {
	Publish(e event.Event)
}

// Coordinator orchestrates every multi-entity mutation of the catalog. Each
// public mutating method runs as one transaction: relationship edits on both
// sides, cascades, and aggregate recomputation either all commit or none do.
type Coordinator struct {
	db     *sql.DB
	reads  *Stores
	logger *slog.Logger
	bus    Publisher
}

// NewCoordinator creates a coordinator over db. Read methods use stores bound
// to db directly; mutations bind fresh stores to a transaction.
func NewCoordinator(db *sql.DB, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		db:     db,
		reads:  NewStores(db),
		logger: logger.With("component", "catalog"),
	}
}

// SetEventBus attaches a publisher for committed mutations.
func (c *Coordinator) SetEventBus(bus Publisher) {
	c.bus = bus
}

// unit is the state of one running unit of work.
type unit struct {
	ctx       context.Context
	st        *Stores
	res       *Resolver
	albums    map[int64]struct{}
	playlists map[int64]struct{}
	events    []event.Event
}

// run executes fn inside a transaction, recomputes every aggregate fn marked
// stale, and publishes fn's events only after a successful commit.
func (c *Coordinator) run(ctx context.Context, op string, fn func(u *unit) error) error {
	var u *unit
	err := database.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		st := NewStores(tx)
		u = &unit{
			ctx:       ctx,
			st:        st,
			res:       NewResolver(st),
			albums:    make(map[int64]struct{}),
			playlists: make(map[int64]struct{}),
		}
		if err := fn(u); err != nil {
			return err
		}
		return u.flush()
	})
	if err != nil {
		c.logger.Debug("catalog operation aborted", "op", op, "error", err)
		return err
	}

	c.logger.Debug("catalog operation committed", "op", op, "events", len(u.events))
	if c.bus != nil {
		for _, e := range u.events {
			c.bus.Publish(e)
		}
	}
	return nil
}

func (u *unit) emit(t event.Type, data map[string]any) {
	u.events = append(u.events, event.Event{Type: t, Data: data})
}

// touchAlbum marks an album's total duration as stale.
func (u *unit) touchAlbum(id int64) { u.albums[id] = struct{}{} }

// touchPlaylist marks a playlist's total duration as stale.
func (u *unit) touchPlaylist(id int64) { u.playlists[id] = struct{}{} }

// flush recomputes every stale aggregate from the current member set.
// Aggregates of entities deleted later in the same unit are skipped.
func (u *unit) flush() error {
	for _, id := range slices.Sorted(maps.Keys(u.albums)) {
		durations, err := u.st.Songs.DurationsByAlbum(u.ctx, id)
		if err != nil {
			return err
		}
		total, err := duration.Sum(durations)
		if err != nil {
			return err
		}
		if err := ignoreNotFound(u.st.Albums.SetTotalDuration(u.ctx, id, total)); err != nil {
			return err
		}
	}
	for _, id := range slices.Sorted(maps.Keys(u.playlists)) {
		durations, err := u.st.Songs.DurationsByPlaylist(u.ctx, id)
		if err != nil {
			return err
		}
		total, err := duration.Sum(durations)
		if err != nil {
			return err
		}
		if err := ignoreNotFound(u.st.Playlists.SetTotalDuration(u.ctx, id, total)); err != nil {
			return err
		}
	}
	clear(u.albums)
	clear(u.playlists)
	return nil
}

// Artist returns one artist.
func (c *Coordinator) Artist(ctx context.Context, id int64) (*Artist, error) {
	return c.reads.Artists.Get(ctx, id)
}

// Artists returns every artist in insertion order.
func (c *Coordinator) Artists(ctx context.Context) ([]Artist, error) {
	return c.reads.Artists.List(ctx)
}

// AlbumsByArtist returns the albums of an existing artist.
func (c *Coordinator) AlbumsByArtist(ctx context.Context, artistID int64) ([]Album, error) {
	if _, err := c.reads.Artists.Get(ctx, artistID); err != nil {
		return nil, err
	}
	return c.reads.Albums.ListByArtist(ctx, artistID)
}

// Album returns one album.
func (c *Coordinator) Album(ctx context.Context, id int64) (*Album, error) {
	return c.reads.Albums.Get(ctx, id)
}

// Albums returns every album in insertion order.
func (c *Coordinator) Albums(ctx context.Context) ([]Album, error) {
	return c.reads.Albums.List(ctx)
}

// Song returns one song.
func (c *Coordinator) Song(ctx context.Context, id int64) (*Song, error) {
	return c.reads.Songs.Get(ctx, id)
}

// Songs returns every song in insertion order.
func (c *Coordinator) Songs(ctx context.Context) ([]Song, error) {
	return c.reads.Songs.List(ctx)
}

// Playlist returns one playlist.
func (c *Coordinator) Playlist(ctx context.Context, id int64) (*Playlist, error) {
	return c.reads.Playlists.Get(ctx, id)
}

// Playlists returns every playlist in insertion order.
func (c *Coordinator) Playlists(ctx context.Context) ([]Playlist, error) {
	return c.reads.Playlists.List(ctx)
}

// PlaylistsByOwner returns the playlists of an existing profile.
func (c *Coordinator) PlaylistsByOwner(ctx context.Context, username string) ([]Playlist, error) {
	exists, err := c.reads.Profiles.Exists(ctx, username)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, notFound(EntityProfile, username)
	}
	return c.reads.Playlists.ListByOwner(ctx, username)
}

// Profile returns one user profile.
func (c *Coordinator) Profile(ctx context.Context, username string) (*UserProfile, error) {
	return c.reads.Profiles.Get(ctx, username)
}

// Profiles returns every user profile.
func (c *Coordinator) Profiles(ctx context.Context) ([]UserProfile, error) {
	return c.reads.Profiles.List(ctx)
}
