package publish

import (
	"context"
	"errors"
	"log/slog"

	"folio/internal/cache"
	"folio/internal/domain/models/publish"
	"folio/internal/service/blobstore"
)

// Resolver answers "which build does this hostname serve" for the edge.
type Resolver struct {
	blobs  *blobstore.Store
	cache  cache.PointerCache
	logger *slog.Logger
}

// NewResolver creates an edge resolver. pointerCache may be cache.Noop{}.
func NewResolver(blobs *blobstore.Store, pointerCache cache.PointerCache, logger *slog.Logger) *Resolver {
	return &Resolver{blobs: blobs, cache: pointerCache, logger: logger}
}

// Resolve returns the live pointer of host, reading through the cache.
// A host with no pointer yields ErrNotFound and is not cached.
func (r *Resolver) Resolve(ctx context.Context, rawHost string) (*publish.Pointer, error) {
	host, err := NormalizeHost(rawHost)
	if err != nil {
		return nil, err
	}

	p, err := r.cache.Get(ctx, host)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.Warn("pointer cache read failed", "host", host, "error", err)
	}

	p, err = r.blobs.ReadPointer(ctx, blobstore.HostPointerKey(host))
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, host, p); err != nil {
		r.logger.Warn("pointer cache fill failed", "host", host, "error", err)
	}
	return p, nil
}
