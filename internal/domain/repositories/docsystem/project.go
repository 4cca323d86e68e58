package docsystem

import (
	"context"

	"folio/internal/domain/models/docsystem"
)

// ProjectRepository defines data access operations for projects and their members
type ProjectRepository interface {
	// Create creates a new project and returns it with generated ID and timestamps
	Create(ctx context.Context, project *docsystem.Project) error

	// GetByID retrieves a project by ID
	GetByID(ctx context.Context, id string) (*docsystem.Project, error)

	// AddMember grants a role on a project, replacing any existing role
	AddMember(ctx context.Context, member *docsystem.ProjectMember) error

	// GetMemberRole returns the user's role on the project, or ErrNotFound
	GetMemberRole(ctx context.Context, projectID, userID string) (docsystem.Role, error)
}
