package services

import (
	"context"

	"folio/internal/domain/models/docsystem"
)

// Actor is an authenticated user together with their role on a project.
type Actor struct {
	ID   string
	Role docsystem.Role
}

// ProjectAuthorizer resolves a user's role on a project.
// Services call it before operating on resources and trust its answer.
type ProjectAuthorizer interface {
	// Authorize returns the actor for userID on projectID. Returns ErrForbidden
	// when the user is not a member of the project.
	Authorize(ctx context.Context, userID, projectID string) (*Actor, error)
}
