package publish

import (
	"context"
	"time"

	"folio/internal/domain/models/publish"
)

// BlobIndexRepository is the tenant-scoped (tenant, hash) -> refcount index.
type BlobIndexRepository interface {
	// Get returns the index row, or ErrNotFound
	Get(ctx context.Context, tenantID, hash string) (*publish.ContentBlob, error)

	// Touch increments ref_count and refreshes last_used_at. Returns ErrNotFound
	// when no row exists.
	Touch(ctx context.Context, tenantID, hash string, at time.Time) error

	// TouchMany touches every existing row among hashes and returns how many matched
	TouchMany(ctx context.Context, tenantID string, hashes []string, at time.Time) (int, error)

	// InsertOrIncrement inserts a row with ref_count=1, or increments an existing
	// one. Reports whether this call created the row.
	InsertOrIncrement(ctx context.Context, blob *publish.ContentBlob) (bool, error)
}
