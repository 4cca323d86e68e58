package docsystem

import (
	"context"
	"fmt"

	"folio/internal/domain"
	models "folio/internal/domain/models/docsystem"
	docsysRepo "folio/internal/domain/repositories/docsystem"
	"folio/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresProjectRepository implements the ProjectRepository interface
type PostgresProjectRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(config *postgres.RepositoryConfig) docsysRepo.ProjectRepository {
	return &PostgresProjectRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new project
func (r *PostgresProjectRepository) Create(ctx context.Context, project *models.Project) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (slug, name, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, r.tables.Projects)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		project.Slug,
		project.Name,
		project.OwnerID,
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			if postgres.InTx(ctx) {
				return fmt.Errorf("project slug '%s' is taken: %w", project.Slug, domain.ErrConflict)
			}
			existingID, queryErr := r.getIDBySlug(ctx, project.Slug)
			if queryErr != nil {
				return fmt.Errorf("project slug '%s' is taken: %w", project.Slug, domain.ErrConflict)
			}
			return &domain.ConflictError{
				Message:      fmt.Sprintf("project slug '%s' is taken", project.Slug),
				ResourceType: "project",
				ResourceID:   existingID,
			}
		}
		return fmt.Errorf("create project: %w", err)
	}

	return nil
}

// GetByID retrieves a project by ID
func (r *PostgresProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := fmt.Sprintf(`
		SELECT id, slug, name, owner_id, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Projects)

	var project models.Project
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&project.ID,
		&project.Slug,
		&project.Name,
		&project.OwnerID,
		&project.CreatedAt,
		&project.UpdatedAt,
	)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	return &project, nil
}

// AddMember grants a role, replacing any role the user already had
func (r *PostgresProjectRepository) AddMember(ctx context.Context, member *models.ProjectMember) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (project_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, user_id) DO UPDATE SET role = EXCLUDED.role
		RETURNING created_at
	`, r.tables.ProjectMembers)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, member.ProjectID, member.UserID, member.Role).Scan(&member.CreatedAt)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("project %s: %w", member.ProjectID, domain.ErrNotFound)
		}
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// GetMemberRole returns the user's role on the project
func (r *PostgresProjectRepository) GetMemberRole(ctx context.Context, projectID, userID string) (models.Role, error) {
	query := fmt.Sprintf(`
		SELECT role
		FROM %s
		WHERE project_id = $1 AND user_id = $2
	`, r.tables.ProjectMembers)

	var role models.Role
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, projectID, userID).Scan(&role)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return "", fmt.Errorf("member %s of project %s: %w", userID, projectID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("get member role: %w", err)
	}
	return role, nil
}

func (r *PostgresProjectRepository) getIDBySlug(ctx context.Context, slug string) (string, error) {
	query := fmt.Sprintf(`SELECT id FROM %s WHERE slug = $1`, r.tables.Projects)

	var id string
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, slug).Scan(&id); err != nil {
		return "", fmt.Errorf("get existing project ID: %w", err)
	}
	return id, nil
}
