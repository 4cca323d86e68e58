package docsystem

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"folio/internal/config"
	"folio/internal/domain"
	models "folio/internal/domain/models/docsystem"
	"folio/internal/domain/repositories"
	docsysRepo "folio/internal/domain/repositories/docsystem"
	docsysSvc "folio/internal/domain/services/docsystem"
	"folio/internal/rank"
	"folio/internal/utils"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// documentService implements the DocumentService interface
type documentService struct {
	docRepo   docsysRepo.DocumentRepository
	txManager repositories.TransactionManager
	validator *ResourceValidator
	logger    *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	docRepo docsysRepo.DocumentRepository,
	txManager repositories.TransactionManager,
	validator *ResourceValidator,
	logger *slog.Logger,
) docsysSvc.DocumentService {
	return &documentService{
		docRepo:   docRepo,
		txManager: txManager,
		validator: validator,
		logger:    logger,
	}
}

// CreateDocument creates a document at the tail of its siblings.
// The slug is derived from the title unless one is given.
func (s *documentService) CreateDocument(ctx context.Context, req *docsysSvc.CreateDocumentRequest) (*models.Document, error) {
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}
	if req.Type == "" {
		req.Type = string(models.DocumentTypePage)
	}

	space, err := s.validator.EditSpace(ctx, req.UserID, req.SpaceID)
	if err != nil {
		return nil, err
	}
	if err := validateCreateDocument(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	docType := models.DocumentType(req.Type)
	if docType.SpecManaged() {
		return nil, fmt.Errorf("%w: %s documents are created by importing an API spec", domain.ErrValidation, docType)
	}
	if err := s.checkParent(ctx, space.ID, docType, req.ParentID); err != nil {
		return nil, err
	}

	siblings, err := s.docRepo.ListChildren(ctx, space.ID, req.ParentID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	slug := uniqueSiblingSlug(title, siblings, "")
	if req.Slug != nil {
		slug = *req.Slug
	}

	docRank := rank.Initial()
	if n := len(siblings); n > 0 {
		if docRank, err = rank.After(siblings[n-1].Rank); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	doc := &models.Document{
		SpaceID:   space.ID,
		ParentID:  req.ParentID,
		Type:      docType,
		Slug:      slug,
		Title:     title,
		Rank:      docRank,
		Icon:      req.Icon,
		SourceKey: req.SourceKey,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document created",
		"id", doc.ID,
		"type", doc.Type,
		"slug", doc.Slug,
		"space_id", doc.SpaceID,
		"parent_id", doc.ParentID,
	)

	return doc, nil
}

// GetDocument retrieves a document with its content
func (s *documentService) GetDocument(ctx context.Context, userID, documentID string) (*models.Document, error) {
	return s.validator.ReadDocument(ctx, userID, documentID)
}

// UpdateDocument applies a metadata patch. Renaming re-derives the slug
// unless the patch sets one; moving without a position appends to the
// new parent's children.
func (s *documentService) UpdateDocument(ctx context.Context, userID, documentID string, req *docsysSvc.UpdateDocumentRequest) (*models.Document, error) {
	doc, err := s.validator.EditDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	if err := validateUpdateDocument(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	structural := req.Title != nil || req.Slug != nil || req.ParentID.Present || req.Position != nil
	if doc.Type.SpecManaged() && structural {
		return nil, fmt.Errorf("%w: %s documents are managed by their API spec", domain.ErrValidation, doc.Type)
	}

	moved := false
	if req.ParentID.Present {
		newParent := req.ParentID.Value
		if newParent != nil && *newParent == "" {
			newParent = nil
		}
		if !sameID(newParent, doc.ParentID) {
			if err := s.checkParent(ctx, doc.SpaceID, doc.Type, newParent); err != nil {
				return nil, err
			}
			if err := s.checkCycle(ctx, doc.ID, newParent); err != nil {
				return nil, err
			}
			doc.ParentID = newParent
			moved = true
		}
	}

	var siblings []models.Document
	if moved || req.Position != nil || (req.Title != nil && req.Slug == nil) {
		all, err := s.docRepo.ListChildren(ctx, doc.SpaceID, doc.ParentID)
		if err != nil {
			return nil, err
		}
		for _, sib := range all {
			if sib.ID != doc.ID {
				siblings = append(siblings, sib)
			}
		}
	}

	if req.Title != nil {
		doc.Title = strings.TrimSpace(*req.Title)
		if req.Slug == nil {
			doc.Slug = uniqueSiblingSlug(doc.Title, siblings, doc.Slug)
		}
	}
	if req.Slug != nil {
		doc.Slug = *req.Slug
	}

	switch {
	case req.Position != nil:
		if doc.Rank, err = positionRank(siblings, req.Position); err != nil {
			return nil, err
		}
	case moved:
		doc.Rank = rank.Initial()
		if n := len(siblings); n > 0 {
			if doc.Rank, err = rank.After(siblings[n-1].Rank); err != nil {
				return nil, err
			}
		}
	}

	req.Icon.Apply(&doc.Icon)
	doc.UpdatedAt = time.Now()

	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document updated",
		"id", doc.ID,
		"slug", doc.Slug,
		"parent_id", doc.ParentID,
		"moved", moved,
	)

	return doc, nil
}

// UpdateContent replaces the editor state of a page
func (s *documentService) UpdateContent(ctx context.Context, userID, documentID string, content json.RawMessage) error {
	doc, err := s.validator.EditDocument(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if !doc.Type.PageLike() {
		return fmt.Errorf("%w: %s documents have no content", domain.ErrValidation, doc.Type)
	}
	if len(content) > 0 && !json.Valid(content) {
		return fmt.Errorf("%w: content must be valid JSON", domain.ErrValidation)
	}

	if err := s.docRepo.UpdateContent(ctx, doc.ID, content); err != nil {
		return err
	}

	s.logger.Debug("document content saved", "id", doc.ID, "bytes", len(content))
	return nil
}

// DeleteDocument deletes a document and every descendant
func (s *documentService) DeleteDocument(ctx context.Context, userID, documentID string) error {
	doc, err := s.validator.EditDocument(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if doc.Type.SpecManaged() {
		return fmt.Errorf("%w: %s documents are managed by their API spec", domain.ErrValidation, doc.Type)
	}

	var ids []string
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		all, err := s.docRepo.ListBySpace(txCtx, doc.SpaceID)
		if err != nil {
			return err
		}
		ids = subtreeIDs(doc.ID, all)
		return s.docRepo.DeleteMany(txCtx, ids)
	})
	if err != nil {
		return err
	}

	s.logger.Info("document deleted",
		"id", doc.ID,
		"space_id", doc.SpaceID,
		"deleted", len(ids),
	)

	return nil
}

// checkParent verifies parentID is a container in the same space that may
// hold a document of docType.
func (s *documentService) checkParent(ctx context.Context, spaceID string, docType models.DocumentType, parentID *string) error {
	if parentID == nil {
		return nil
	}
	if docType == models.DocumentTypeGroup || docType == models.DocumentTypeAPISpec {
		return fmt.Errorf("%w: %s documents must be at the root of a space", domain.ErrValidation, docType)
	}

	parent, err := s.docRepo.GetByID(ctx, *parentID)
	if err != nil {
		return fmt.Errorf("invalid parent: %w", err)
	}
	if parent.SpaceID != spaceID {
		return fmt.Errorf("%w: parent belongs to another space", domain.ErrValidation)
	}
	if parent.Type != models.DocumentTypePage && parent.Type != models.DocumentTypeGroup {
		return fmt.Errorf("%w: cannot add documents under %s", domain.ErrValidation, parent.Type)
	}
	return nil
}

// checkCycle walks up from newParent and rejects the move if it reaches id.
func (s *documentService) checkCycle(ctx context.Context, id string, newParent *string) error {
	seen := map[string]bool{}
	for cur := newParent; cur != nil; {
		if *cur == id {
			return fmt.Errorf("%w: cannot move a document under itself", domain.ErrValidation)
		}
		if seen[*cur] {
			return fmt.Errorf("%w: document tree contains a cycle", domain.ErrValidation)
		}
		seen[*cur] = true

		parent, err := s.docRepo.GetByID(ctx, *cur)
		if err != nil {
			return err
		}
		cur = parent.ParentID
	}
	return nil
}

// positionRank computes a rank between the requested neighbours. A single
// anchor places the document directly next to it.
func positionRank(siblings []models.Document, pos *docsysSvc.Position) (string, error) {
	index := func(id string) (int, error) {
		for i := range siblings {
			if siblings[i].ID == id {
				return i, nil
			}
		}
		return -1, fmt.Errorf("%w: %s is not a sibling", domain.ErrValidation, id)
	}

	var left, right string
	switch {
	case pos.AfterID != "" && pos.BeforeID != "":
		i, err := index(pos.AfterID)
		if err != nil {
			return "", err
		}
		j, err := index(pos.BeforeID)
		if err != nil {
			return "", err
		}
		left, right = siblings[i].Rank, siblings[j].Rank
	case pos.AfterID != "":
		i, err := index(pos.AfterID)
		if err != nil {
			return "", err
		}
		left = siblings[i].Rank
		if i+1 < len(siblings) {
			right = siblings[i+1].Rank
		}
	case pos.BeforeID != "":
		j, err := index(pos.BeforeID)
		if err != nil {
			return "", err
		}
		right = siblings[j].Rank
		if j > 0 {
			left = siblings[j-1].Rank
		}
	default:
		if n := len(siblings); n > 0 {
			left = siblings[n-1].Rank
		}
	}
	return rank.Between(left, right)
}

// uniqueSiblingSlug derives a slug from title that no sibling uses. current
// is kept when it already matches the derived base.
func uniqueSiblingSlug(title string, siblings []models.Document, current string) string {
	taken := make(map[string]bool, len(siblings))
	for _, sib := range siblings {
		taken[sib.Slug] = true
	}
	base := utils.Slugify(title)
	if current != "" && current == base && !taken[current] {
		return current
	}
	return utils.UniqueSlug(base, "page", func(c string) bool { return taken[c] })
}

// subtreeIDs returns root and all of its descendants.
func subtreeIDs(root string, docs []models.Document) []string {
	children := make(map[string][]string)
	for _, d := range docs {
		if d.ParentID != nil {
			children[*d.ParentID] = append(children[*d.ParentID], d.ID)
		}
	}

	ids := []string{}
	seen := map[string]bool{}
	stack := []string{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		stack = append(stack, children[id]...)
	}
	return ids
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

var documentTypes = []interface{}{
	string(models.DocumentTypePage),
	string(models.DocumentTypeGroup),
	string(models.DocumentTypeAPI),
	string(models.DocumentTypeAPISpec),
	string(models.DocumentTypeAPITag),
}

func validateCreateDocument(req *docsysSvc.CreateDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.SpaceID, validation.Required),
		validation.Field(&req.Type, validation.Required, validation.In(documentTypes...)),
		validation.Field(&req.Title, validation.Required, validation.Length(1, config.MaxDocumentTitleLength)),
		validation.Field(&req.Slug, validation.NilOrNotEmpty, validation.Length(1, config.MaxSlugLength), validation.By(slugRule)),
		validation.Field(&req.Content, validation.By(jsonRule)),
	)
}

func validateUpdateDocument(req *docsysSvc.UpdateDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(1, config.MaxDocumentTitleLength)),
		validation.Field(&req.Slug, validation.NilOrNotEmpty, validation.Length(1, config.MaxSlugLength), validation.By(slugRule)),
	)
}

func jsonRule(value interface{}) error {
	raw, _ := value.(json.RawMessage)
	if len(raw) > 0 && !json.Valid(raw) {
		return fmt.Errorf("must be valid JSON")
	}
	return nil
}
