package publish

import (
	"context"
	"encoding/json"

	"folio/internal/domain/models/publish"
	"folio/internal/httputil"
)

// SiteService manages a project's site configuration
type SiteService interface {
	// SetupSite creates the project's site, or returns the existing one
	SetupSite(ctx context.Context, userID, projectID string, req *SetupSiteRequest) (*publish.Site, error)

	GetSite(ctx context.Context, userID, projectID string) (*publish.Site, error)

	UpdateSite(ctx context.Context, userID, projectID string, req *UpdateSiteRequest) (*publish.Site, error)

	// UpdateSelection replaces the ordered list of spaces to publish
	UpdateSelection(ctx context.Context, userID, projectID string, spaceIDs []string) (*publish.Site, error)

	// AddDomain binds a custom domain and mirrors the live pointer to it
	AddDomain(ctx context.Context, userID, projectID, host string) (*publish.Site, error)

	RemoveDomain(ctx context.Context, userID, projectID, host string) (*publish.Site, error)
}

// SetupSiteRequest represents a site setup request
type SetupSiteRequest struct {
	Name    *string `json:"name,omitempty"`
	Layout  string  `json:"layout,omitempty"`
	LogoURL *string `json:"logo_url,omitempty"`
}

// UpdateSiteRequest represents a site update request
type UpdateSiteRequest struct {
	Name    httputil.OptionalString `json:"name"`
	LogoURL httputil.OptionalString `json:"logo_url"`
	Layout  *string                 `json:"layout,omitempty"`
	Theme   json.RawMessage         `json:"theme,omitempty"`
}

// SelectionRequest represents a selection update
type SelectionRequest struct {
	SpaceIDs []string `json:"space_ids"`
}

// DomainRequest represents a custom domain binding
type DomainRequest struct {
	Host string `json:"host"`
}
