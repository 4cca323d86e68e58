// Package apispec imports OpenAPI 3 documents into a space as a spec-managed
// subtree: one api_spec root, one api_tag per tag, one api page per operation.
package apispec

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
	publishSvc "folio/internal/domain/services/publish"
	"folio/internal/rank"
	"folio/internal/service/docsystem"
	"folio/internal/utils"
)

const (
	defaultTitle = "API Reference"
	defaultTag   = "default"
)

type importer struct {
	docRepo   docsysRepo.DocumentRepository
	txManager repositories.TransactionManager
	validator *docsystem.ResourceValidator
	logger    *slog.Logger
}

// NewImporter creates the OpenAPI import service
func NewImporter(
	docRepo docsysRepo.DocumentRepository,
	txManager repositories.TransactionManager,
	validator *docsystem.ResourceValidator,
	logger *slog.Logger,
) publishSvc.APISpecService {
	return &importer{
		docRepo:   docRepo,
		txManager: txManager,
		validator: validator,
		logger:    logger,
	}
}

// Import parses the OpenAPI document and replaces the matching api_spec subtree of the
// space, creating the root on first import.
func (s *importer) Import(ctx context.Context, req *publishSvc.ImportAPISpecRequest) (*models.Document, error) {
	space, err := s.validator.EditSpace(ctx, req.UserID, req.SpaceID)
	if err != nil {
		return nil, err
	}
	if len(req.Spec) > config.MaxAPISpecSize {
		return nil, fmt.Errorf("%w: spec exceeds %d bytes", domain.ErrValidation, config.MaxAPISpecSize)
	}

	spec, err := Parse([]byte(req.Spec))
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = spec.Title
	}
	if title == "" {
		title = defaultTitle
	}
	if len(title) > config.MaxDocumentTitleLength {
		return nil, fmt.Errorf("%w: title too long", domain.ErrValidation)
	}

	var root *models.Document
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		roots, err := s.docRepo.ListChildren(txCtx, space.ID, nil)
		if err != nil {
			return err
		}
		root, err = s.upsertRoot(txCtx, space.ID, title, roots)
		if err != nil {
			return err
		}
		return s.writeOperations(txCtx, root, spec)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("api spec imported",
		"space_id", space.ID,
		"root_id", root.ID,
		"tags", len(spec.Tags),
		"operations", spec.operationCount(),
	)

	return root, nil
}

// upsertRoot finds the root api_spec document with the title's slug or
// creates one at the tail of the space. An existing root loses its subtree.
func (s *importer) upsertRoot(ctx context.Context, spaceID, title string, roots []models.Document) (*models.Document, error) {
	slug := utils.Slugify(title)
	if slug == "" {
		slug = utils.Slugify(defaultTitle)
	}

	for i := range roots {
		if roots[i].Slug != slug {
			continue
		}
		if roots[i].Type != models.DocumentTypeAPISpec {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("a %s with slug %q already exists", roots[i].Type, slug),
				ResourceType: "document",
				ResourceID:   roots[i].ID,
			}
		}

		root := roots[i]
		all, err := s.docRepo.ListBySpace(ctx, spaceID)
		if err != nil {
			return nil, err
		}
		if stale := descendants(root.ID, all); len(stale) > 0 {
			if err := s.docRepo.DeleteMany(ctx, stale); err != nil {
				return nil, err
			}
		}
		root.Title = title
		root.UpdatedAt = time.Now()
		if err := s.docRepo.Update(ctx, &root); err != nil {
			return nil, err
		}
		return &root, nil
	}

	rootRank := rank.Initial()
	if n := len(roots); n > 0 {
		var err error
		if rootRank, err = rank.After(roots[n-1].Rank); err != nil {
			return nil, err
		}
	}
	root := &models.Document{
		SpaceID: spaceID,
		Type:    models.DocumentTypeAPISpec,
		Slug:    slug,
		Title:   title,
		Rank:    rootRank,
	}
	if err := s.docRepo.Create(ctx, root); err != nil {
		return nil, err
	}
	return root, nil
}

func (s *importer) writeOperations(ctx context.Context, root *models.Document, spec *Spec) error {
	tagRanks := rank.SpreadN(len(spec.Tags))
	tagSlugs := map[string]bool{}

	for i, tag := range spec.Tags {
		tagSlug := utils.UniqueSlug(utils.Slugify(tag.Name), defaultTag, func(c string) bool { return tagSlugs[c] })
		tagSlugs[tagSlug] = true

		tagDoc := &models.Document{
			SpaceID:  root.SpaceID,
			ParentID: &root.ID,
			Type:     models.DocumentTypeAPITag,
			Slug:     tagSlug,
			Title:    tag.Name,
			Rank:     tagRanks[i],
		}
		if err := s.docRepo.Create(ctx, tagDoc); err != nil {
			return fmt.Errorf("create tag %q: %w", tag.Name, err)
		}

		opRanks := rank.SpreadN(len(tag.Operations))
		opSlugs := map[string]bool{}
		for j, op := range tag.Operations {
			base := utils.Slugify(op.OperationID)
			if base == "" {
				base = utils.Slugify(op.Method + " " + op.Path)
			}
			opSlug := utils.UniqueSlug(base, "operation", func(c string) bool { return opSlugs[c] })
			opSlugs[opSlug] = true

			content, err := operationContent(op)
			if err != nil {
				return err
			}
			opDoc := &models.Document{
				SpaceID:  root.SpaceID,
				ParentID: &tagDoc.ID,
				Type:     models.DocumentTypeAPI,
				Slug:     opSlug,
				Title:    op.title(),
				Rank:     opRanks[j],
				API: &models.APIOperation{
					Method:      op.Method,
					Path:        op.Path,
					OperationID: op.OperationID,
					Summary:     op.Summary,
				},
				Content: content,
			}
			if err := s.docRepo.Create(ctx, opDoc); err != nil {
				return fmt.Errorf("create operation %s %s: %w", op.Method, op.Path, err)
			}
		}
	}
	return nil
}

// descendants lists every document below root, excluding root itself.
func descendants(root string, docs []models.Document) []string {
	children := map[string][]string{}
	for _, d := range docs {
		if d.ParentID != nil {
			children[*d.ParentID] = append(children[*d.ParentID], d.ID)
		}
	}

	var ids []string
	stack := append([]string(nil), children[root]...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ids = append(ids, id)
		stack = append(stack, children[id]...)
	}
	return ids
}

// operationContent renders a TipTap document describing the operation so the
// published page has a body before anyone edits it.
func operationContent(op Operation) (json.RawMessage, error) {
	type node map[string]any
	text := func(s string) node { return node{"type": "text", "text": s} }

	content := []node{
		{"type": "heading", "attrs": node{"level": 1}, "content": []node{text(op.title())}},
		{"type": "codeBlock", "attrs": node{"language": "http"}, "content": []node{text(op.Method + " " + op.Path)}},
	}
	if op.Description != "" {
		for _, para := range strings.Split(op.Description, "\n\n") {
			if para = strings.TrimSpace(para); para != "" {
				content = append(content, node{"type": "paragraph", "content": []node{text(para)}})
			}
		}
	}
	if len(op.Parameters) > 0 {
		content = append(content, node{"type": "heading", "attrs": node{"level": 2}, "content": []node{text("Parameters")}})
		items := make([]node, 0, len(op.Parameters))
		for _, p := range op.Parameters {
			label := fmt.Sprintf("%s (%s)", p.Name, p.In)
			if p.Required {
				label += " required"
			}
			items = append(items, node{"type": "listItem", "content": []node{
				{"type": "paragraph", "content": []node{text(label)}},
			}})
		}
		content = append(content, node{"type": "bulletList", "content": items})
	}

	body, err := json.Marshal(node{"type": "doc", "content": content})
	if err != nil {
		return nil, fmt.Errorf("encode operation content: %w", err)
	}
	return body, nil
}
