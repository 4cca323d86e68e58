package publish

import (
	"context"

	"folio/internal/domain/models/docsystem"
)

// APISpecService imports OpenAPI documents into a space as a spec-managed subtree
type APISpecService interface {
	Import(ctx context.Context, req *ImportAPISpecRequest) (*docsystem.Document, error)
}

// ImportAPISpecRequest represents an OpenAPI import. Spec is YAML or JSON.
type ImportAPISpecRequest struct {
	SpaceID string `json:"-"`
	UserID  string `json:"-"`
	Title   string `json:"title"`
	Spec    string `json:"spec"`
}
