package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"folio/internal/domain"
	models "folio/internal/domain/models/docsystem"
	docsysRepo "folio/internal/domain/repositories/docsystem"

	"github.com/google/uuid"
)

type DocumentRepository struct {
	mu   sync.RWMutex
	docs map[string]models.Document
}

// NewDocumentRepository creates an empty document repository
func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{docs: map[string]models.Document{}}
}

var _ docsysRepo.DocumentRepository = (*DocumentRepository)(nil)

func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkSiblingSlug(doc); err != nil {
		return err
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	r.docs[doc.ID] = copyDocument(doc, true)
	return nil
}

func (r *DocumentRepository) checkSiblingSlug(doc *models.Document) error {
	for _, d := range r.docs {
		if d.ID == doc.ID || d.SpaceID != doc.SpaceID || d.Slug != doc.Slug {
			continue
		}
		if sameParent(d.ParentID, doc.ParentID) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a sibling with slug %q already exists", doc.Slug),
				ResourceType: "document",
				ResourceID:   d.ID,
			}
		}
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	out := copyDocument(&d, true)
	return &out, nil
}

func (r *DocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.docs[doc.ID]
	if !ok {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}
	if err := r.checkSiblingSlug(doc); err != nil {
		return err
	}
	doc.UpdatedAt = time.Now().UTC()
	updated := copyDocument(doc, false)
	updated.Content = existing.Content
	updated.CreatedAt = existing.CreatedAt
	r.docs[doc.ID] = updated
	return nil
}

func (r *DocumentRepository) UpdateContent(ctx context.Context, id string, content json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.docs[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	d.Content = append(json.RawMessage(nil), content...)
	d.UpdatedAt = time.Now().UTC()
	r.docs[id] = d
	return nil
}

func (r *DocumentRepository) ListChildren(ctx context.Context, spaceID string, parentID *string) ([]models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Document
	for _, d := range r.docs {
		if d.SpaceID == spaceID && sameParent(d.ParentID, parentID) {
			out = append(out, copyDocument(&d, false))
		}
	}
	sortByRank(out)
	return out, nil
}

func (r *DocumentRepository) ListBySpace(ctx context.Context, spaceID string) ([]models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Document
	for _, d := range r.docs {
		if d.SpaceID == spaceID {
			out = append(out, copyDocument(&d, false))
		}
	}
	sortByRank(out)
	return out, nil
}

func (r *DocumentRepository) GetContent(ctx context.Context, id string) (json.RawMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return append(json.RawMessage(nil), d.Content...), nil
}

func (r *DocumentRepository) DeleteMany(ctx context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		delete(r.docs, id)
	}
	return nil
}

func (r *DocumentRepository) DeleteBySpace(ctx context.Context, spaceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, d := range r.docs {
		if d.SpaceID == spaceID {
			delete(r.docs, id)
		}
	}
	return nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sortByRank(docs []models.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Rank != docs[j].Rank {
			return docs[i].Rank < docs[j].Rank
		}
		return docs[i].Slug < docs[j].Slug
	})
}

func copyDocument(d *models.Document, withContent bool) models.Document {
	out := *d
	out.ParentID = cloneString(d.ParentID)
	out.Icon = cloneString(d.Icon)
	out.SourceKey = cloneString(d.SourceKey)
	if d.API != nil {
		api := *d.API
		out.API = &api
	}
	out.Content = nil
	if withContent && d.Content != nil {
		out.Content = append(json.RawMessage(nil), d.Content...)
	}
	return out
}
