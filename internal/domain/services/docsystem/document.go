package docsystem

import (
	"context"
	"encoding/json"

	"folio/internal/domain/models/docsystem"
	"folio/internal/httputil"
)

// DocumentService handles document business logic
type DocumentService interface {
	// CreateDocument creates a document, auto-slugged and ranked at the tail of its siblings
	CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*docsystem.Document, error)

	// GetDocument retrieves a document
	// userID is used for authorization check
	GetDocument(ctx context.Context, userID, documentID string) (*docsystem.Document, error)

	// UpdateDocument applies title, slug, parent, position and icon patches
	UpdateDocument(ctx context.Context, userID, documentID string, req *UpdateDocumentRequest) (*docsystem.Document, error)

	// UpdateContent replaces the persisted editor state of a page
	UpdateContent(ctx context.Context, userID, documentID string, content json.RawMessage) error

	// DeleteDocument deletes a document and its whole subtree
	DeleteDocument(ctx context.Context, userID, documentID string) error
}

// CreateDocumentRequest represents a document creation request
type CreateDocumentRequest struct {
	SpaceID   string          `json:"-"`
	UserID    string          `json:"-"` // Set by handler from auth context, not from request body
	ParentID  *string         `json:"parent_id,omitempty"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Slug      *string         `json:"slug,omitempty"`
	Icon      *string         `json:"icon,omitempty"`
	SourceKey *string         `json:"source_key,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
}

// UpdateDocumentRequest represents a document update request.
// ParentID is tri-state: absent = keep, null = move to root, value = move under.
type UpdateDocumentRequest struct {
	Title    *string                 `json:"title,omitempty"`
	Slug     *string                 `json:"slug,omitempty"`
	Icon     httputil.OptionalString `json:"icon"`
	ParentID httputil.OptionalString `json:"parent_id"`
	Position *Position               `json:"position,omitempty"`
}

// Position places a document between two siblings. Either side may be empty.
type Position struct {
	AfterID  string `json:"after_id,omitempty"`
	BeforeID string `json:"before_id,omitempty"`
}
