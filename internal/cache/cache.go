// Package cache caches live pointers for edge hostname resolution.
package cache

import (
	"context"

	"folio/internal/domain/models/publish"
)

// Error represents an error type for cache operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrCacheMiss indicates the host has no cached pointer.
	ErrCacheMiss Error = "cache miss"

	// ErrCacheClosed indicates the cache has been closed.
	ErrCacheClosed Error = "cache closed"
)

// PointerCache holds the live pointer of each hostname for a short time.
// All implementations must be thread-safe.
type PointerCache interface {
	// Get returns the cached pointer or ErrCacheMiss.
	Get(ctx context.Context, host string) (*publish.Pointer, error)

	// Set caches the pointer for the configured TTL.
	Set(ctx context.Context, host string, p *publish.Pointer) error

	// Delete drops the cached pointer of host.
	Delete(ctx context.Context, host string) error

	Close() error
}

// Noop never caches. Used when no Redis URL is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (*publish.Pointer, error) { return nil, ErrCacheMiss }

func (Noop) Set(context.Context, string, *publish.Pointer) error { return nil }

func (Noop) Delete(context.Context, string) error { return nil }

func (Noop) Close() error { return nil }
