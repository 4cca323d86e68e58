package docsystem

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"folio/internal/domain"
	models "folio/internal/domain/models/docsystem"
	docsysRepo "folio/internal/domain/repositories/docsystem"
	"folio/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Metadata columns. Content is only read by GetByID and GetContent.
const documentColumns = `id, space_id, parent_id, type, slug, title, rank, icon, source_key, api, created_at, updated_at`

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *postgres.RepositoryConfig) docsysRepo.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func documentFields(d *models.Document) []interface{} {
	return []interface{}{
		&d.ID,
		&d.SpaceID,
		&d.ParentID,
		&d.Type,
		&d.Slug,
		&d.Title,
		&d.Rank,
		&d.Icon,
		&d.SourceKey,
		&d.API,
		&d.CreatedAt,
		&d.UpdatedAt,
	}
}

// Create creates a new document
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (space_id, parent_id, type, slug, title, rank, icon, source_key, api, content)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.SpaceID,
		doc.ParentID,
		doc.Type,
		doc.Slug,
		doc.Title,
		doc.Rank,
		doc.Icon,
		doc.SourceKey,
		doc.API,
		doc.Content,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return r.siblingConflict(ctx, doc)
		}
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("space or parent of document: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// GetByID retrieves a document with its content
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s, content FROM %s WHERE id = $1`, documentColumns, r.tables.Documents)

	var doc models.Document
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(append(documentFields(&doc), &doc.Content)...)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return &doc, nil
}

// Update updates metadata and leaves content alone
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET parent_id = $2, slug = $3, title = $4, rank = $5, icon = $6, source_key = $7, api = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.ID,
		doc.ParentID,
		doc.Slug,
		doc.Title,
		doc.Rank,
		doc.Icon,
		doc.SourceKey,
		doc.API,
	).Scan(&doc.UpdatedAt)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
		}
		if postgres.IsPgDuplicateError(err) {
			return r.siblingConflict(ctx, doc)
		}
		return fmt.Errorf("update document: %w", err)
	}

	return nil
}

// UpdateContent replaces the persisted editor state
func (r *PostgresDocumentRepository) UpdateContent(ctx context.Context, id string, content json.RawMessage) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET content = $2, updated_at = NOW()
		WHERE id = $1
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, content)
	if err != nil {
		return fmt.Errorf("update content: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	r.logger.Debug("document content updated", "id", id, "bytes", len(content))
	return nil
}

// ListChildren lists the immediate children of parentID, roots when nil
func (r *PostgresDocumentRepository) ListChildren(ctx context.Context, spaceID string, parentID *string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE space_id = $1 AND parent_id IS NOT DISTINCT FROM $2::uuid
		ORDER BY rank, slug COLLATE "C"
	`, documentColumns, r.tables.Documents)

	return r.list(ctx, query, spaceID, parentID)
}

// ListBySpace lists every document of a space without content
func (r *PostgresDocumentRepository) ListBySpace(ctx context.Context, spaceID string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE space_id = $1
		ORDER BY rank, slug COLLATE "C"
	`, documentColumns, r.tables.Documents)

	return r.list(ctx, query, spaceID)
}

func (r *PostgresDocumentRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Document, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(documentFields(&doc)...); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// GetContent loads the persisted editor state of one document
func (r *PostgresDocumentRepository) GetContent(ctx context.Context, id string) (json.RawMessage, error) {
	query := fmt.Sprintf(`SELECT content FROM %s WHERE id = $1`, r.tables.Documents)

	var content json.RawMessage
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id).Scan(&content); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get content: %w", err)
	}
	return content, nil
}

// DeleteMany deletes the given documents in one statement
func (r *PostgresDocumentRepository) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1::uuid[])`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	r.logger.Debug("documents deleted", "requested", len(ids), "deleted", result.RowsAffected())
	return nil
}

// DeleteBySpace deletes every document of a space
func (r *PostgresDocumentRepository) DeleteBySpace(ctx context.Context, spaceID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE space_id = $1`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, spaceID); err != nil {
		return fmt.Errorf("delete space documents: %w", err)
	}
	return nil
}

// siblingConflict reports which sibling already holds doc's slug
func (r *PostgresDocumentRepository) siblingConflict(ctx context.Context, doc *models.Document) error {
	generic := fmt.Errorf("a sibling with slug %q already exists: %w", doc.Slug, domain.ErrConflict)
	if postgres.InTx(ctx) {
		return generic
	}

	query := fmt.Sprintf(`
		SELECT id
		FROM %s
		WHERE space_id = $1 AND parent_id IS NOT DISTINCT FROM $2::uuid AND slug = $3
	`, r.tables.Documents)

	var existingID string
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, doc.SpaceID, doc.ParentID, doc.Slug).Scan(&existingID)
	if err != nil {
		if !postgres.IsPgNoRowsError(err) {
			r.logger.Warn("sibling lookup failed", "slug", doc.Slug, "error", err)
		}
		return generic
	}

	return &domain.ConflictError{
		Message:      fmt.Sprintf("a sibling with slug %q already exists", doc.Slug),
		ResourceType: "document",
		ResourceID:   existingID,
	}
}
