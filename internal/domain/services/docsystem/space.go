package docsystem

import (
	"context"

	"folio/internal/domain/models/docsystem"
)

// SpaceService handles space business logic
type SpaceService interface {
	// CreateSpace creates a space seeded with one root group
	CreateSpace(ctx context.Context, req *CreateSpaceRequest) (*docsystem.Space, error)

	GetSpace(ctx context.Context, userID, spaceID string) (*docsystem.Space, error)

	ListSpaces(ctx context.Context, userID, projectID string) ([]docsystem.Space, error)

	UpdateSpace(ctx context.Context, userID, spaceID string, req *UpdateSpaceRequest) (*docsystem.Space, error)

	// DeleteSpace deletes every document of the space, then the space, in one transaction
	DeleteSpace(ctx context.Context, userID, spaceID string) error
}

// CreateSpaceRequest represents a space creation request
type CreateSpaceRequest struct {
	ProjectID string  `json:"-"`
	UserID    string  `json:"-"` // Set by handler from auth context
	Name      string  `json:"name"`
	Slug      *string `json:"slug,omitempty"` // derived from name when absent
	IconName  *string `json:"icon_name,omitempty"`
	Style     string  `json:"style,omitempty"`
}

// UpdateSpaceRequest represents a space update request
type UpdateSpaceRequest struct {
	Name     *string `json:"name,omitempty"`
	Slug     *string `json:"slug,omitempty"`
	IconName *string `json:"icon_name,omitempty"`
	Style    *string `json:"style,omitempty"`
}
