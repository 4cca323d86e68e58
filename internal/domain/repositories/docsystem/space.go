package docsystem

import (
	"context"

	"folio/internal/domain/models/docsystem"
)

// SpaceRepository defines data access operations for spaces
type SpaceRepository interface {
	// Create creates a new space. Returns ConflictError when the slug is taken in the project.
	Create(ctx context.Context, space *docsystem.Space) error

	// GetByID retrieves a space by ID
	GetByID(ctx context.Context, id string) (*docsystem.Space, error)

	// GetBySlug retrieves a space by its slug within a project
	GetBySlug(ctx context.Context, projectID, slug string) (*docsystem.Space, error)

	// ListByProject lists a project's spaces ordered by creation time
	ListByProject(ctx context.Context, projectID string) ([]docsystem.Space, error)

	// ListByIDs returns the requested spaces in the order of ids, skipping missing ones
	ListByIDs(ctx context.Context, ids []string) ([]docsystem.Space, error)

	// Update updates name, slug, icon and style
	Update(ctx context.Context, space *docsystem.Space) error

	// Delete deletes a space (documents must already be gone or cascade)
	Delete(ctx context.Context, id string) error
}
