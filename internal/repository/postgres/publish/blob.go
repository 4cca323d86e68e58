package publish

import (
	"context"
	"fmt"
	"time"

	"folio/internal/domain"
	models "folio/internal/domain/models/publish"
	publishRepo "folio/internal/domain/repositories/publish"
	"folio/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBlobIndexRepository implements the BlobIndexRepository interface
type PostgresBlobIndexRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewBlobIndexRepository creates a new blob index repository
func NewBlobIndexRepository(config *postgres.RepositoryConfig) publishRepo.BlobIndexRepository {
	return &PostgresBlobIndexRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Get returns the index row of (tenantID, hash)
func (r *PostgresBlobIndexRepository) Get(ctx context.Context, tenantID, hash string) (*models.ContentBlob, error) {
	query := fmt.Sprintf(`
		SELECT tenant_id, hash, key, size, ref_count, last_used_at, created_at
		FROM %s
		WHERE tenant_id = $1 AND hash = $2
	`, r.tables.ContentBlobs)

	var b models.ContentBlob
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, tenantID, hash).Scan(
		&b.TenantID,
		&b.Hash,
		&b.Key,
		&b.Size,
		&b.RefCount,
		&b.LastUsedAt,
		&b.CreatedAt,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("blob %s: %w", hash, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get blob: %w", err)
	}
	return &b, nil
}

// Touch bumps ref_count and last_used_at of an existing row
func (r *PostgresBlobIndexRepository) Touch(ctx context.Context, tenantID, hash string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET ref_count = ref_count + 1, last_used_at = GREATEST(last_used_at, $3)
		WHERE tenant_id = $1 AND hash = $2
	`, r.tables.ContentBlobs)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, tenantID, hash, at)
	if err != nil {
		return fmt.Errorf("touch blob: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("blob %s: %w", hash, domain.ErrNotFound)
	}
	return nil
}

// TouchMany touches every existing row among hashes in one statement
func (r *PostgresBlobIndexRepository) TouchMany(ctx context.Context, tenantID string, hashes []string, at time.Time) (int, error) {
	if len(hashes) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET ref_count = ref_count + 1, last_used_at = GREATEST(last_used_at, $3)
		WHERE tenant_id = $1 AND hash = ANY($2)
	`, r.tables.ContentBlobs)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, tenantID, hashes, at)
	if err != nil {
		return 0, fmt.Errorf("touch blobs: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// InsertOrIncrement upserts the row. xmax is 0 only for a freshly inserted
// tuple, which tells concurrent builds storing the same bytes apart.
func (r *PostgresBlobIndexRepository) InsertOrIncrement(ctx context.Context, blob *models.ContentBlob) (bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %[1]s AS b (tenant_id, hash, key, size, ref_count, last_used_at, created_at)
		VALUES ($1, $2, $3, $4, 1, $5, $6)
		ON CONFLICT (tenant_id, hash) DO UPDATE
		SET ref_count = b.ref_count + 1, last_used_at = GREATEST(b.last_used_at, EXCLUDED.last_used_at)
		RETURNING (xmax = 0) AS inserted
	`, r.tables.ContentBlobs)

	createdAt := blob.CreatedAt
	if createdAt.IsZero() {
		createdAt = blob.LastUsedAt
	}

	var inserted bool
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		blob.TenantID,
		blob.Hash,
		blob.Key,
		blob.Size,
		blob.LastUsedAt,
		createdAt,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert blob: %w", err)
	}
	return inserted, nil
}
