package auth

import (
	"context"
	"errors"
	"fmt"

	"folio/internal/domain"
	docsystemRepo "folio/internal/domain/repositories/docsystem"
	"folio/internal/domain/services"
)

// RoleAuthorizer implements ProjectAuthorizer using project membership.
// A user can act on a project if they are a member of it; what they may do
// is decided by the caller from the returned role.
type RoleAuthorizer struct {
	projectRepo docsystemRepo.ProjectRepository
}

// NewRoleAuthorizer creates a new membership-based authorizer
func NewRoleAuthorizer(projectRepo docsystemRepo.ProjectRepository) *RoleAuthorizer {
	return &RoleAuthorizer{projectRepo: projectRepo}
}

var _ services.ProjectAuthorizer = (*RoleAuthorizer)(nil)

// Authorize resolves userID's role on projectID
func (a *RoleAuthorizer) Authorize(ctx context.Context, userID, projectID string) (*services.Actor, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}

	role, err := a.projectRepo.GetMemberRole(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("access denied to project %s: %w", projectID, domain.ErrForbidden)
		}
		return nil, fmt.Errorf("check project access: %w", err)
	}
	return &services.Actor{ID: userID, Role: role}, nil
}

// RequireEditor authorizes userID and rejects roles that cannot change content
func RequireEditor(ctx context.Context, authz services.ProjectAuthorizer, userID, projectID string) (*services.Actor, error) {
	actor, err := authz.Authorize(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.CanEdit() {
		return nil, fmt.Errorf("role %s cannot modify project %s: %w", actor.Role, projectID, domain.ErrForbidden)
	}
	return actor, nil
}

// RequirePublisher authorizes userID and rejects roles that cannot publish
func RequirePublisher(ctx context.Context, authz services.ProjectAuthorizer, userID, projectID string) (*services.Actor, error) {
	actor, err := authz.Authorize(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.CanPublish() {
		return nil, fmt.Errorf("role %s cannot publish project %s: %w", actor.Role, projectID, domain.ErrForbidden)
	}
	return actor, nil
}
