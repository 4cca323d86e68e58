package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"folio/internal/domain"
	models "folio/internal/domain/models/publish"
	publishRepo "folio/internal/domain/repositories/publish"
)

type BlobIndexRepository struct {
	mu    sync.RWMutex
	blobs map[string]models.ContentBlob // tenant/hash
}

// NewBlobIndexRepository creates an empty blob index
func NewBlobIndexRepository() *BlobIndexRepository {
	return &BlobIndexRepository{blobs: map[string]models.ContentBlob{}}
}

var _ publishRepo.BlobIndexRepository = (*BlobIndexRepository)(nil)

func blobKey(tenantID, hash string) string {
	return tenantID + "/" + hash
}

func (r *BlobIndexRepository) Get(ctx context.Context, tenantID, hash string) (*models.ContentBlob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.blobs[blobKey(tenantID, hash)]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", hash, domain.ErrNotFound)
	}
	return &b, nil
}

func (r *BlobIndexRepository) Touch(ctx context.Context, tenantID, hash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.touch(tenantID, hash, at) {
		return fmt.Errorf("blob %s: %w", hash, domain.ErrNotFound)
	}
	return nil
}

func (r *BlobIndexRepository) TouchMany(ctx context.Context, tenantID string, hashes []string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, h := range hashes {
		if r.touch(tenantID, h, at) {
			n++
		}
	}
	return n, nil
}

func (r *BlobIndexRepository) touch(tenantID, hash string, at time.Time) bool {
	k := blobKey(tenantID, hash)
	b, ok := r.blobs[k]
	if !ok {
		return false
	}
	b.RefCount++
	b.LastUsedAt = at
	r.blobs[k] = b
	return true
}

func (r *BlobIndexRepository) InsertOrIncrement(ctx context.Context, blob *models.ContentBlob) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.touch(blob.TenantID, blob.Hash, blob.LastUsedAt) {
		return false, nil
	}
	row := *blob
	row.RefCount = 1
	if row.CreatedAt.IsZero() {
		row.CreatedAt = row.LastUsedAt
	}
	r.blobs[blobKey(blob.TenantID, blob.Hash)] = row
	return true, nil
}

// Len returns the number of indexed blobs across tenants.
func (r *BlobIndexRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}
