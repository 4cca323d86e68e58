package publish

import (
	"context"
	"time"

	"folio/internal/domain/models/publish"
)

// BuildRepository defines data access operations for builds. Status updates
// are conditional on the current status so terminal states stay final.
type BuildRepository interface {
	// Create inserts a queued build. Returns ConflictError when the site already
	// has a queued or running build.
	Create(ctx context.Context, build *publish.Build) error

	GetByID(ctx context.Context, id string) (*publish.Build, error)

	// ListBySite returns the site's builds, newest first
	ListBySite(ctx context.Context, siteID string, limit int) ([]publish.Build, error)

	// GetActive returns the site's queued or running build, or ErrNotFound
	GetActive(ctx context.Context, siteID string) (*publish.Build, error)

	// MarkRunning moves a queued build to running. Returns false when the
	// build was not queued.
	MarkRunning(ctx context.Context, id string, startedAt time.Time) (bool, error)

	// SetTotal records the number of items the build will process
	SetTotal(ctx context.Context, id string, total int) error

	// UpdateProgress raises the stored counters to at least p
	UpdateProgress(ctx context.Context, id string, p publish.Progress) error

	// MarkSucceeded moves a running build to success. Returns false when the
	// build was no longer running, e.g. the reaper timed it out.
	MarkSucceeded(ctx context.Context, id string, finishedAt time.Time) (bool, error)

	// MarkFailed moves a queued or running build to failed with a message.
	// Returns false when the build had already finished.
	MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) (bool, error)

	// ListStale returns running builds started before the cutoff
	ListStale(ctx context.Context, startedBefore time.Time) ([]publish.Build, error)

	// ListQueued returns queued builds, oldest first
	ListQueued(ctx context.Context) ([]publish.Build, error)
}
