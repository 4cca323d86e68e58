package docsystem

import (
	"context"

	"folio/internal/domain/models/docsystem"
)

// ProjectService handles project business logic
type ProjectService interface {
	// CreateProject creates a project and makes the caller its owner
	CreateProject(ctx context.Context, req *CreateProjectRequest) (*docsystem.Project, error)

	GetProject(ctx context.Context, userID, projectID string) (*docsystem.Project, error)

	// AddMember grants a role on the project. Only owners and admins may do this.
	AddMember(ctx context.Context, userID, projectID string, req *AddMemberRequest) (*docsystem.ProjectMember, error)
}

// CreateProjectRequest represents a project creation request
type CreateProjectRequest struct {
	UserID string  `json:"-"`
	Name   string  `json:"name"`
	Slug   *string `json:"slug,omitempty"` // derived from name when absent
}

// AddMemberRequest represents a membership grant
type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}
