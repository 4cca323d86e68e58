package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"folio/internal/domain"
	models "folio/internal/domain/models/publish"
	publishRepo "folio/internal/domain/repositories/publish"
	"folio/internal/repository/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const buildColumns = `id, site_id, operation, status, actor_id, selected_space_ids, items_total, items_done,
	pages_written, bytes_written, target_build_id, error, created_at, started_at, finished_at`

// PostgresBuildRepository implements the BuildRepository interface. Status
// transitions are single conditional UPDATEs so concurrent workers cannot
// both claim a build or move it out of a terminal state.
type PostgresBuildRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewBuildRepository creates a new build repository
func NewBuildRepository(config *postgres.RepositoryConfig) publishRepo.BuildRepository {
	return &PostgresBuildRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanBuild(row pgx.Row) (*models.Build, error) {
	var b models.Build
	err := row.Scan(
		&b.ID,
		&b.SiteID,
		&b.Operation,
		&b.Status,
		&b.ActorID,
		&b.SelectedSpaceIDs,
		&b.ItemsTotal,
		&b.ItemsDone,
		&b.PagesWritten,
		&b.BytesWritten,
		&b.TargetBuildID,
		&b.Error,
		&b.CreatedAt,
		&b.StartedAt,
		&b.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a queued build. The partial unique index on active builds
// turns a concurrent second publish into a conflict.
func (r *PostgresBuildRepository) Create(ctx context.Context, build *models.Build) error {
	if build.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate build id: %w", err)
		}
		build.ID = id.String()
	}
	if build.Status == "" {
		build.Status = models.BuildStatusQueued
	}
	if build.CreatedAt.IsZero() {
		build.CreatedAt = time.Now().UTC()
	}
	if build.SelectedSpaceIDs == nil {
		build.SelectedSpaceIDs = []string{}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, site_id, operation, status, actor_id, selected_space_ids, target_build_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tables.Builds)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		build.ID,
		build.SiteID,
		build.Operation,
		build.Status,
		build.ActorID,
		build.SelectedSpaceIDs,
		build.TargetBuildID,
		build.CreatedAt,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			if strings.HasSuffix(postgres.ConstraintName(err), "builds_one_active_idx") {
				return r.activeConflict(ctx, build.SiteID)
			}
			return fmt.Errorf("build %s already exists: %w", build.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create build: %w", err)
	}
	return nil
}

func (r *PostgresBuildRepository) activeConflict(ctx context.Context, siteID string) error {
	if !postgres.InTx(ctx) {
		if active, err := r.GetActive(ctx, siteID); err == nil {
			return &domain.ConflictError{
				Message:      "a build is already in progress for this site",
				ResourceType: "build",
				ResourceID:   active.ID,
			}
		}
	}
	return fmt.Errorf("a build is already in progress for site %s: %w", siteID, domain.ErrConflict)
}

// GetByID retrieves a build by ID
func (r *PostgresBuildRepository) GetByID(ctx context.Context, id string) (*models.Build, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, buildColumns, r.tables.Builds)

	executor := postgres.GetExecutor(ctx, r.pool)
	build, err := scanBuild(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("build %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get build: %w", err)
	}
	return build, nil
}

// ListBySite returns the site's builds, newest first
func (r *PostgresBuildRepository) ListBySite(ctx context.Context, siteID string, limit int) ([]models.Build, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE site_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, buildColumns, r.tables.Builds)

	return r.list(ctx, query, siteID, limit)
}

// GetActive returns the site's queued or running build
func (r *PostgresBuildRepository) GetActive(ctx context.Context, siteID string) (*models.Build, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE site_id = $1 AND status IN ('queued', 'running')
	`, buildColumns, r.tables.Builds)

	executor := postgres.GetExecutor(ctx, r.pool)
	build, err := scanBuild(executor.QueryRow(ctx, query, siteID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("active build for site %s: %w", siteID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get active build: %w", err)
	}
	return build, nil
}

// MarkRunning claims a queued build. Exactly one caller sees true.
func (r *PostgresBuildRepository) MarkRunning(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'running', started_at = $2
		WHERE id = $1 AND status = 'queued'
	`, r.tables.Builds)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, startedAt)
	if err != nil {
		return false, fmt.Errorf("mark running: %w", err)
	}
	if result.RowsAffected() == 1 {
		return true, nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// SetTotal records the number of items the build will process
func (r *PostgresBuildRepository) SetTotal(ctx context.Context, id string, total int) error {
	query := fmt.Sprintf(`UPDATE %s SET items_total = $2 WHERE id = $1`, r.tables.Builds)
	return r.exec(ctx, "set total", query, id, total)
}

// UpdateProgress raises the counters; out-of-order updates never move them back
func (r *PostgresBuildRepository) UpdateProgress(ctx context.Context, id string, p models.Progress) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET items_done = GREATEST(items_done, $2),
		    pages_written = GREATEST(pages_written, $3),
		    bytes_written = GREATEST(bytes_written, $4)
		WHERE id = $1
	`, r.tables.Builds)
	return r.exec(ctx, "update progress", query, id, p.ItemsDone, p.PagesWritten, p.BytesWritten)
}

// MarkSucceeded moves a running build to success
func (r *PostgresBuildRepository) MarkSucceeded(ctx context.Context, id string, finishedAt time.Time) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'success', finished_at = $2
		WHERE id = $1 AND status = 'running'
	`, r.tables.Builds)
	return r.transition(ctx, "mark succeeded", query, id, finishedAt)
}

// MarkFailed moves a queued or running build to failed
func (r *PostgresBuildRepository) MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'failed', error = $2, finished_at = $3
		WHERE id = $1 AND status IN ('queued', 'running')
	`, r.tables.Builds)
	return r.transition(ctx, "mark failed", query, id, message, finishedAt)
}

// ListStale returns running builds started before the cutoff
func (r *PostgresBuildRepository) ListStale(ctx context.Context, startedBefore time.Time) ([]models.Build, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE status = 'running' AND started_at < $1
		ORDER BY started_at
	`, buildColumns, r.tables.Builds)

	return r.list(ctx, query, startedBefore)
}

// ListQueued returns queued builds, oldest first
func (r *PostgresBuildRepository) ListQueued(ctx context.Context) ([]models.Build, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE status = 'queued'
		ORDER BY created_at
	`, buildColumns, r.tables.Builds)

	return r.list(ctx, query)
}

func (r *PostgresBuildRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Build, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	builds := []models.Build{}
	for rows.Next() {
		build, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		builds = append(builds, *build)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}
	return builds, nil
}

func (r *PostgresBuildRepository) exec(ctx context.Context, op, query string, args ...interface{}) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("build %v: %w", args[0], domain.ErrNotFound)
	}
	return nil
}

// transition runs a conditional status update and reports whether it
// applied. A build already past the expected state is left as is.
func (r *PostgresBuildRepository) transition(ctx context.Context, op, query string, args ...interface{}) (bool, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if result.RowsAffected() == 1 {
		return true, nil
	}

	id, _ := args[0].(string)
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	r.logger.Debug("build transition skipped", "op", op, "build_id", id)
	return false, nil
}
