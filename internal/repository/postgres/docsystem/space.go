package docsystem

import (
	"context"
	"fmt"

	"folio/internal/domain"
	models "folio/internal/domain/models/docsystem"
	docsysRepo "folio/internal/domain/repositories/docsystem"
	"folio/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const spaceColumns = `id, project_id, slug, name, icon_name, style, created_at, updated_at`

// PostgresSpaceRepository implements the SpaceRepository interface
type PostgresSpaceRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewSpaceRepository creates a new space repository
func NewSpaceRepository(config *postgres.RepositoryConfig) docsysRepo.SpaceRepository {
	return &PostgresSpaceRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func scanSpace(row pgx.Row) (*models.Space, error) {
	var s models.Space
	err := row.Scan(
		&s.ID,
		&s.ProjectID,
		&s.Slug,
		&s.Name,
		&s.IconName,
		&s.Style,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create creates a new space
func (r *PostgresSpaceRepository) Create(ctx context.Context, space *models.Space) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (project_id, slug, name, icon_name, style)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, r.tables.Spaces)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		space.ProjectID,
		space.Slug,
		space.Name,
		space.IconName,
		space.Style,
	).Scan(&space.ID, &space.CreatedAt, &space.UpdatedAt)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return r.slugConflict(ctx, space)
		}
		return fmt.Errorf("create space: %w", err)
	}
	return nil
}

// GetByID retrieves a space by ID
func (r *PostgresSpaceRepository) GetByID(ctx context.Context, id string) (*models.Space, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, spaceColumns, r.tables.Spaces)

	executor := postgres.GetExecutor(ctx, r.pool)
	space, err := scanSpace(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("space %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get space: %w", err)
	}
	return space, nil
}

// GetBySlug retrieves a space by slug within a project
func (r *PostgresSpaceRepository) GetBySlug(ctx context.Context, projectID, slug string) (*models.Space, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE project_id = $1 AND slug = $2`, spaceColumns, r.tables.Spaces)

	executor := postgres.GetExecutor(ctx, r.pool)
	space, err := scanSpace(executor.QueryRow(ctx, query, projectID, slug))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("space %q: %w", slug, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get space by slug: %w", err)
	}
	return space, nil
}

// ListByProject lists spaces ordered by creation time
func (r *PostgresSpaceRepository) ListByProject(ctx context.Context, projectID string) ([]models.Space, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE project_id = $1
		ORDER BY created_at, id
	`, spaceColumns, r.tables.Spaces)

	return r.list(ctx, query, projectID)
}

// ListByIDs returns the requested spaces in the order of ids
func (r *PostgresSpaceRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Space, error) {
	if len(ids) == 0 {
		return []models.Space{}, nil
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = ANY($1::uuid[])
		ORDER BY array_position($1::uuid[], id)
	`, spaceColumns, r.tables.Spaces)

	return r.list(ctx, query, ids)
}

func (r *PostgresSpaceRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Space, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	defer rows.Close()

	spaces := []models.Space{}
	for rows.Next() {
		space, err := scanSpace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan space: %w", err)
		}
		spaces = append(spaces, *space)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spaces: %w", err)
	}
	return spaces, nil
}

// Update updates name, slug, icon and style
func (r *PostgresSpaceRepository) Update(ctx context.Context, space *models.Space) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET slug = $2, name = $3, icon_name = $4, style = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, r.tables.Spaces)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		space.ID,
		space.Slug,
		space.Name,
		space.IconName,
		space.Style,
	).Scan(&space.UpdatedAt)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return fmt.Errorf("space %s: %w", space.ID, domain.ErrNotFound)
		}
		if postgres.IsPgDuplicateError(err) {
			return r.slugConflict(ctx, space)
		}
		return fmt.Errorf("update space: %w", err)
	}
	return nil
}

// Delete deletes a space
func (r *PostgresSpaceRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Spaces)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete space: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("space %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *PostgresSpaceRepository) slugConflict(ctx context.Context, space *models.Space) error {
	if postgres.InTx(ctx) {
		return fmt.Errorf("space slug '%s' already exists: %w", space.Slug, domain.ErrConflict)
	}
	existing, err := r.GetBySlug(ctx, space.ProjectID, space.Slug)
	if err != nil {
		return fmt.Errorf("space slug '%s' already exists: %w", space.Slug, domain.ErrConflict)
	}
	return &domain.ConflictError{
		Message:      fmt.Sprintf("a space with slug %q already exists", space.Slug),
		ResourceType: "space",
		ResourceID:   existing.ID,
	}
}
