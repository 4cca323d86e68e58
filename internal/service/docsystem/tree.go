package docsystem

import (
	"context"
	"log/slog"

	models "folio/internal/domain/models/docsystem"
	docsysRepo "folio/internal/domain/repositories/docsystem"
	docsysSvc "folio/internal/domain/services/docsystem"
)

// treeService implements the TreeService interface
type treeService struct {
	documentRepo docsysRepo.DocumentRepository
	validator    *ResourceValidator
	logger       *slog.Logger
}

// NewTreeService creates a new tree service
func NewTreeService(
	documentRepo docsysRepo.DocumentRepository,
	validator *ResourceValidator,
	logger *slog.Logger,
) docsysSvc.TreeService {
	return &treeService{
		documentRepo: documentRepo,
		validator:    validator,
		logger:       logger,
	}
}

// GetSpaceTree builds the nested document tree for a space
func (s *treeService) GetSpaceTree(ctx context.Context, userID, spaceID string) (*models.SpaceTree, error) {
	space, err := s.validator.ReadSpace(ctx, userID, spaceID)
	if err != nil {
		return nil, err
	}

	// Metadata only, ordered by rank then slug
	docs, err := s.documentRepo.ListBySpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	nodes := BuildTree(docs)

	s.logger.Debug("space tree built",
		"space_id", spaceID,
		"documents", len(docs),
		"roots", len(nodes),
	)

	return &models.SpaceTree{Space: space, Documents: docs, Nodes: nodes}, nil
}

// BuildTree nests rank-ordered documents under their parents. Documents whose
// parent is missing are dropped along with their subtree.
func BuildTree(docs []models.Document) []*models.TreeNode {
	nodeMap := make(map[string]*models.TreeNode, len(docs))

	// First pass: create all nodes
	for _, doc := range docs {
		nodeMap[doc.ID] = &models.TreeNode{
			ID:        doc.ID,
			Type:      doc.Type,
			Slug:      doc.Slug,
			Title:     doc.Title,
			Rank:      doc.Rank,
			Icon:      doc.Icon,
			ParentID:  doc.ParentID,
			UpdatedAt: doc.UpdatedAt,
			Children:  []*models.TreeNode{},
		}
	}

	// Second pass: attach children in input order, which keeps rank order
	roots := []*models.TreeNode{}
	for _, doc := range docs {
		node := nodeMap[doc.ID]
		if doc.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		if parent, ok := nodeMap[*doc.ParentID]; ok && parent != node {
			parent.Children = append(parent.Children, node)
		}
	}

	return roots
}
