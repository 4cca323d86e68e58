package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"folio/internal/domain"
	models "folio/internal/domain/models/docsystem"
	docsysRepo "folio/internal/domain/repositories/docsystem"

	"github.com/google/uuid"
)

type SpaceRepository struct {
	mu     sync.RWMutex
	spaces map[string]models.Space
}

// NewSpaceRepository creates an empty space repository
func NewSpaceRepository() *SpaceRepository {
	return &SpaceRepository{spaces: map[string]models.Space{}}
}

var _ docsysRepo.SpaceRepository = (*SpaceRepository)(nil)

func (r *SpaceRepository) Create(ctx context.Context, space *models.Space) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkSlug(space); err != nil {
		return err
	}
	if space.ID == "" {
		space.ID = uuid.NewString()
	}
	r.spaces[space.ID] = copySpace(space)
	return nil
}

func (r *SpaceRepository) checkSlug(space *models.Space) error {
	for _, s := range r.spaces {
		if s.ID != space.ID && s.ProjectID == space.ProjectID && s.Slug == space.Slug {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a space with slug %q already exists", space.Slug),
				ResourceType: "space",
				ResourceID:   s.ID,
			}
		}
	}
	return nil
}

func (r *SpaceRepository) GetByID(ctx context.Context, id string) (*models.Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.spaces[id]
	if !ok {
		return nil, fmt.Errorf("space %s: %w", id, domain.ErrNotFound)
	}
	out := copySpace(&s)
	return &out, nil
}

func (r *SpaceRepository) GetBySlug(ctx context.Context, projectID, slug string) (*models.Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.spaces {
		if s.ProjectID == projectID && s.Slug == slug {
			out := copySpace(&s)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("space %q: %w", slug, domain.ErrNotFound)
}

func (r *SpaceRepository) ListByProject(ctx context.Context, projectID string) ([]models.Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Space
	for _, s := range r.spaces {
		if s.ProjectID == projectID {
			out = append(out, copySpace(&s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *SpaceRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Space, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.spaces[id]; ok {
			out = append(out, copySpace(&s))
		}
	}
	return out, nil
}

func (r *SpaceRepository) Update(ctx context.Context, space *models.Space) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.spaces[space.ID]; !ok {
		return fmt.Errorf("space %s: %w", space.ID, domain.ErrNotFound)
	}
	if err := r.checkSlug(space); err != nil {
		return err
	}
	r.spaces[space.ID] = copySpace(space)
	return nil
}

func (r *SpaceRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.spaces[id]; !ok {
		return fmt.Errorf("space %s: %w", id, domain.ErrNotFound)
	}
	delete(r.spaces, id)
	return nil
}

func copySpace(s *models.Space) models.Space {
	out := *s
	out.IconName = cloneString(s.IconName)
	return out
}
