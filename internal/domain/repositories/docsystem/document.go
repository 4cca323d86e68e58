package docsystem

import (
	"context"
	"encoding/json"

	"folio/internal/domain/models/docsystem"
)

// DocumentRepository defines data access operations for documents
type DocumentRepository interface {
	// Create creates a new document. Returns ConflictError on a sibling slug collision.
	Create(ctx context.Context, doc *docsystem.Document) error

	// GetByID retrieves a document by ID (content included)
	GetByID(ctx context.Context, id string) (*docsystem.Document, error)

	// Update updates title, slug, rank, parent, icon and api metadata
	Update(ctx context.Context, doc *docsystem.Document) error

	// UpdateContent replaces the persisted editor state
	UpdateContent(ctx context.Context, id string, content json.RawMessage) error

	// ListChildren lists immediate children of parentID (nil = roots) ordered by rank, slug
	ListChildren(ctx context.Context, spaceID string, parentID *string) ([]docsystem.Document, error)

	// ListBySpace lists every document of a space without content, ordered by rank, slug
	ListBySpace(ctx context.Context, spaceID string) ([]docsystem.Document, error)

	// GetContent loads the persisted editor state of one document
	GetContent(ctx context.Context, id string) (json.RawMessage, error)

	// DeleteMany deletes the given documents in one statement
	DeleteMany(ctx context.Context, ids []string) error

	// DeleteBySpace deletes every document of a space
	DeleteBySpace(ctx context.Context, spaceID string) error
}
