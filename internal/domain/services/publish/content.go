package publish

import (
	"context"

	"folio/internal/domain/models/docsystem"
	"folio/internal/domain/models/publish"
)

// ContentSource yields the documents of the selected spaces and the
// structured source of each page. The orchestrator depends only on this.
type ContentSource interface {
	// ListSpaces returns the requested spaces with their documents, in the
	// order of spaceIDs. Unknown ids are skipped.
	ListSpaces(ctx context.Context, projectID string, spaceIDs []string) ([]docsystem.SpaceTree, error)

	// LoadContent returns the current structured source of a document.
	LoadContent(ctx context.Context, projectID string, doc *docsystem.Document) (*publish.StructuredContent, error)
}

// Renderer converts structured content into HTML, a table of contents and
// plain text. Implementations must be pure and deterministic.
type Renderer interface {
	Render(content *publish.StructuredContent) publish.Rendered
}
