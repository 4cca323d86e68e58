package docsystem

import (
	"context"

	"folio/internal/domain/models/docsystem"
)

// TreeService defines operations for building document trees
type TreeService interface {
	// GetSpaceTree builds the nested, rank-ordered document tree of a space
	// userID is used for authorization check
	GetSpaceTree(ctx context.Context, userID, spaceID string) (*docsystem.SpaceTree, error)
}
