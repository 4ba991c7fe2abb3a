package catalog

import (
	"context"
	"strings"
)

// Resolver finds entities by natural key during ingestion and song creation.
// It is bound to one set of stores, usually those of a running transaction,
// and never mutates more than the single artist it may create.
type Resolver struct {
	stores *Stores
}

// NewResolver creates a resolver over the given stores.
func NewResolver(stores *Stores) *Resolver {
	return &Resolver{stores: stores}
}

// ResolveOrCreateArtist returns the artist whose name matches case-insensitively,
// creating it with the given type when none exists. The type of an existing
// artist is left untouched.
func (r *Resolver) ResolveOrCreateArtist(ctx context.Context, name, artistType string) (*Artist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, required("artist name")
	}

	a, err := r.stores.Artists.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if a != nil {
		return a, nil
	}

	a = &Artist{Name: name, Type: artistType}
	if err := r.stores.Artists.Put(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ResolveArtistByName returns the artist whose name matches case-insensitively.
func (r *Resolver) ResolveArtistByName(ctx context.Context, name string) (*Artist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, required("artist name")
	}

	a, err := r.stores.Artists.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, notFound(EntityArtist, name)
	}
	return a, nil
}

// FindAlbum returns the album of artistID whose name matches case-insensitively.
// Albums are never created here: a release date cannot be invented.
func (r *Resolver) FindAlbum(ctx context.Context, name string, artistID int64) (*Album, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, required("album name")
	}

	al, err := r.stores.Albums.FindByName(ctx, name, artistID)
	if err != nil {
		return nil, err
	}
	if al == nil {
		return nil, notFound(EntityAlbum, name)
	}
	return al, nil
}

// artist resolves a Ref to an existing artist without creating one.
func (r *Resolver) artist(ctx context.Context, ref Ref) (*Artist, error) {
	if ref.ID != 0 {
		return r.stores.Artists.Get(ctx, ref.ID)
	}
	if ref.Name == "" {
		return nil, required("artist")
	}
	return r.ResolveArtistByName(ctx, ref.Name)
}

// album resolves a Ref to an existing album. Names are scoped to the artist.
func (r *Resolver) album(ctx context.Context, ref Ref, artistID int64) (*Album, error) {
	if ref.ID != 0 {
		return r.stores.Albums.Get(ctx, ref.ID)
	}
	if ref.Name == "" {
		return nil, required("album")
	}
	return r.FindAlbum(ctx, ref.Name, artistID)
}
