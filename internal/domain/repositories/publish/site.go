package publish

import (
	"context"
	"time"

	"folio/internal/domain/models/publish"
)

// SiteRepository defines data access operations for sites
type SiteRepository interface {
	// Create creates a site. Returns ConflictError when the project already has one.
	Create(ctx context.Context, site *publish.Site) error

	GetByID(ctx context.Context, id string) (*publish.Site, error)

	GetByProject(ctx context.Context, projectID string) (*publish.Site, error)

	// Update persists name, layout, logo, theme, domains and selection
	Update(ctx context.Context, site *publish.Site) error

	// SetLastBuild records the build that is now live
	SetLastBuild(ctx context.Context, siteID, buildID string, publishedAt time.Time) error
}
