package publish

import (
	"context"
	"fmt"
	"time"

	"folio/internal/domain"
	models "folio/internal/domain/models/publish"
	publishRepo "folio/internal/domain/repositories/publish"
	"folio/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const siteColumns = `id, project_id, store_id, base_url, primary_host, custom_domains, selected_space_ids,
	layout, name, logo_url, theme, last_build_id, last_published_at, created_at, updated_at`

// PostgresSiteRepository implements the SiteRepository interface
type PostgresSiteRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewSiteRepository creates a new site repository
func NewSiteRepository(config *postgres.RepositoryConfig) publishRepo.SiteRepository {
	return &PostgresSiteRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func scanSite(row pgx.Row) (*models.Site, error) {
	var s models.Site
	err := row.Scan(
		&s.ID,
		&s.ProjectID,
		&s.StoreID,
		&s.BaseURL,
		&s.PrimaryHost,
		&s.CustomDomains,
		&s.SelectedSpaceIDs,
		&s.Layout,
		&s.Name,
		&s.LogoURL,
		&s.Theme,
		&s.LastBuildID,
		&s.LastPublishedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create creates a site. A project has at most one.
func (r *PostgresSiteRepository) Create(ctx context.Context, site *models.Site) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (project_id, store_id, base_url, primary_host, custom_domains, selected_space_ids, layout, name, logo_url, theme)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, r.tables.Sites)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		site.ProjectID,
		site.StoreID,
		site.BaseURL,
		site.PrimaryHost,
		nonNil(site.CustomDomains),
		nonNil(site.SelectedSpaceIDs),
		site.Layout,
		site.Name,
		site.LogoURL,
		site.Theme,
	).Scan(&site.ID, &site.CreatedAt, &site.UpdatedAt)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			if postgres.InTx(ctx) {
				return fmt.Errorf("project %s already has a site: %w", site.ProjectID, domain.ErrConflict)
			}
			existing, getErr := r.GetByProject(ctx, site.ProjectID)
			if getErr != nil {
				return fmt.Errorf("site for %s (%s): %w", site.ProjectID, postgres.ConstraintName(err), domain.ErrConflict)
			}
			return &domain.ConflictError{
				Message:      "project already has a site",
				ResourceType: "site",
				ResourceID:   existing.ID,
			}
		}
		return fmt.Errorf("create site: %w", err)
	}

	return nil
}

// GetByID retrieves a site by ID
func (r *PostgresSiteRepository) GetByID(ctx context.Context, id string) (*models.Site, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, siteColumns, r.tables.Sites)

	executor := postgres.GetExecutor(ctx, r.pool)
	site, err := scanSite(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("site %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get site: %w", err)
	}
	return site, nil
}

// GetByProject retrieves the site of a project
func (r *PostgresSiteRepository) GetByProject(ctx context.Context, projectID string) (*models.Site, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE project_id = $1`, siteColumns, r.tables.Sites)

	executor := postgres.GetExecutor(ctx, r.pool)
	site, err := scanSite(executor.QueryRow(ctx, query, projectID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("site for project %s: %w", projectID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get site by project: %w", err)
	}
	return site, nil
}

// Update persists the editable settings. Live-build fields are owned by SetLastBuild.
func (r *PostgresSiteRepository) Update(ctx context.Context, site *models.Site) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET custom_domains = $2, selected_space_ids = $3, layout = $4, name = $5, logo_url = $6, theme = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, r.tables.Sites)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		site.ID,
		nonNil(site.CustomDomains),
		nonNil(site.SelectedSpaceIDs),
		site.Layout,
		site.Name,
		site.LogoURL,
		site.Theme,
	).Scan(&site.UpdatedAt)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return fmt.Errorf("site %s: %w", site.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("update site: %w", err)
	}
	return nil
}

// SetLastBuild records the build that is now live
func (r *PostgresSiteRepository) SetLastBuild(ctx context.Context, siteID, buildID string, publishedAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET last_build_id = $2, last_published_at = $3
		WHERE id = $1
	`, r.tables.Sites)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, siteID, buildID, publishedAt)
	if err != nil {
		return fmt.Errorf("set last build: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("site %s: %w", siteID, domain.ErrNotFound)
	}
	return nil
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
