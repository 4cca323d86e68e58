// Package blobstore stores rendered content by hash, build artifacts by build
// id and live pointers by scope. Only pointers are ever overwritten.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"folio/internal/config"
	"folio/internal/domain"
	"folio/internal/domain/models/publish"
	publishRepo "folio/internal/domain/repositories/publish"
	"folio/internal/storage"
)

const jsonContentType = "application/json"

// Store is safe for concurrent use; the blob index is the only state shared
// between builds.
type Store struct {
	objects storage.ObjectStore
	index   publishRepo.BlobIndexRepository
	baseURL string
	logger  *slog.Logger
	now     func() time.Time
}

// NewStore creates a blob store. baseURL is the public URL of the object store.
func NewStore(objects storage.ObjectStore, index publishRepo.BlobIndexRepository, baseURL string, logger *slog.Logger) *Store {
	return &Store{
		objects: objects,
		index:   index,
		baseURL: baseURL,
		logger:  logger,
		now:     time.Now,
	}
}

// Hash returns the hex sha256 digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put stores data under its hash for tenantID. Data already indexed for the
// tenant is not uploaded again; its reference count is bumped instead.
func (s *Store) Put(ctx context.Context, tenantID string, data []byte, ext string) (*publish.BlobRef, error) {
	hash := Hash(data)
	key := BlobKey(tenantID, hash, ext)
	size := int64(len(data))
	now := s.now().UTC()

	existing, err := s.index.Get(ctx, tenantID, hash)
	switch {
	case err == nil:
		if err := s.index.Touch(ctx, tenantID, hash, now); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Upstream("touch blob", err)
		}
		s.logger.Debug("blob reused", "tenant_id", tenantID, "hash", hash)
		return &publish.BlobRef{Hash: hash, Key: existing.Key, Size: existing.Size, IsNew: false}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, domain.Upstream("lookup blob", err)
	}

	err = s.objects.PutImmutable(ctx, key, data, storage.PutOptions{
		ContentType:  jsonContentType,
		CacheControl: config.ImmutableCacheControl,
	})
	if err != nil && !errors.Is(err, storage.ErrObjectExists) {
		return nil, domain.Upstream("upload blob", err)
	}

	created, err := s.index.InsertOrIncrement(ctx, &publish.ContentBlob{
		TenantID:   tenantID,
		Hash:       hash,
		Key:        key,
		Size:       size,
		RefCount:   1,
		LastUsedAt: now,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, domain.Upstream("index blob", err)
	}

	s.logger.Debug("blob stored", "tenant_id", tenantID, "hash", hash, "size", size, "new", created)
	return &publish.BlobRef{Hash: hash, Key: key, Size: size, IsNew: created}, nil
}

// Touch refreshes the index rows of hashes that still exist. Used by revert
// so that blobs a live build depends on look recently used.
func (s *Store) Touch(ctx context.Context, tenantID string, hashes []string) (int, error) {
	if len(hashes) == 0 {
		return 0, nil
	}
	n, err := s.index.TouchMany(ctx, tenantID, hashes, s.now().UTC())
	if err != nil {
		return 0, domain.Upstream("touch blobs", err)
	}
	return n, nil
}

// WriteVersioned writes a build-scoped artifact. Artifacts are write-once: an
// existing object under the same build id is a conflict.
func (s *Store) WriteVersioned(ctx context.Context, tenantID, buildID, name string, data []byte) (string, error) {
	key := BuildKey(tenantID, buildID, name)
	err := s.objects.PutImmutable(ctx, key, data, storage.PutOptions{
		ContentType:  jsonContentType,
		CacheControl: config.ImmutableCacheControl,
	})
	if errors.Is(err, storage.ErrObjectExists) {
		return "", &domain.ConflictError{
			Message:      fmt.Sprintf("artifact %s already exists for build %s", name, buildID),
			ResourceType: "artifact",
			ResourceID:   key,
		}
	}
	if err != nil {
		return "", domain.Upstream("write "+name, err)
	}
	return key, nil
}

// ReadVersioned reads a build-scoped artifact.
func (s *Store) ReadVersioned(ctx context.Context, tenantID, buildID, name string) ([]byte, error) {
	data, err := s.objects.Get(ctx, BuildKey(tenantID, buildID, name))
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, fmt.Errorf("%s of build %s: %w", name, buildID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, domain.Upstream("read "+name, err)
	}
	return data, nil
}

// WritePointer overwrites a live pointer with a short cache lifetime.
func (s *Store) WritePointer(ctx context.Context, key string, p *publish.Pointer) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pointer: %w", err)
	}
	err = s.objects.PutMutable(ctx, key, data, storage.PutOptions{
		ContentType:  jsonContentType,
		CacheControl: config.PointerCacheControl,
	})
	if err != nil {
		return domain.Upstream("write pointer", err)
	}
	return nil
}

// ReadPointer reads a live pointer.
func (s *Store) ReadPointer(ctx context.Context, key string) (*publish.Pointer, error) {
	data, err := s.objects.Get(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, fmt.Errorf("pointer %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, domain.Upstream("read pointer", err)
	}

	var p publish.Pointer
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode pointer %s: %w", key, err)
	}
	return &p, nil
}

// DeletePointer removes a live pointer, taking its scope offline.
func (s *Store) DeletePointer(ctx context.Context, key string) error {
	if err := s.objects.Delete(ctx, key); err != nil {
		return domain.Upstream("delete pointer", err)
	}
	return nil
}

// ReadSource reads a repository-backed page source.
func (s *Store) ReadSource(ctx context.Context, tenantID, sourceKey string) ([]byte, error) {
	data, err := s.objects.Get(ctx, SourceKey(tenantID, sourceKey))
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, fmt.Errorf("source %s: %w", sourceKey, domain.ErrNotFound)
	}
	if err != nil {
		return nil, domain.Upstream("read source", err)
	}
	return data, nil
}

// URL returns the public URL of key.
func (s *Store) URL(key string) string {
	return storage.PublicURL(s.baseURL, key)
}
