package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"folio/internal/domain"
	models "folio/internal/domain/models/publish"
	publishRepo "folio/internal/domain/repositories/publish"

	"github.com/google/uuid"
)

// BuildRepository keeps builds in memory. The one-active-build-per-site rule
// mirrors the partial unique index of the postgres schema.
type BuildRepository struct {
	mu     sync.RWMutex
	builds map[string]models.Build
}

// NewBuildRepository creates an empty build repository
func NewBuildRepository() *BuildRepository {
	return &BuildRepository{builds: map[string]models.Build{}}
}

var _ publishRepo.BuildRepository = (*BuildRepository)(nil)

func (r *BuildRepository) Create(ctx context.Context, build *models.Build) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.builds {
		if b.SiteID == build.SiteID && b.Status.Active() {
			return &domain.ConflictError{
				Message:      "a build is already in progress for this site",
				ResourceType: "build",
				ResourceID:   b.ID,
			}
		}
	}
	if build.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		build.ID = id.String()
	}
	if build.Status == "" {
		build.Status = models.BuildStatusQueued
	}
	if build.CreatedAt.IsZero() {
		build.CreatedAt = time.Now().UTC()
	}
	r.builds[build.ID] = copyBuild(build)
	return nil
}

func (r *BuildRepository) GetByID(ctx context.Context, id string) (*models.Build, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.builds[id]
	if !ok {
		return nil, fmt.Errorf("build %s: %w", id, domain.ErrNotFound)
	}
	out := copyBuild(&b)
	return &out, nil
}

func (r *BuildRepository) ListBySite(ctx context.Context, siteID string, limit int) ([]models.Build, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Build
	for _, b := range r.builds {
		if b.SiteID == siteID {
			out = append(out, copyBuild(&b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *BuildRepository) GetActive(ctx context.Context, siteID string) (*models.Build, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.builds {
		if b.SiteID == siteID && b.Status.Active() {
			out := copyBuild(&b)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("active build for site %s: %w", siteID, domain.ErrNotFound)
}

func (r *BuildRepository) MarkRunning(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.builds[id]
	if !ok {
		return false, fmt.Errorf("build %s: %w", id, domain.ErrNotFound)
	}
	if b.Status != models.BuildStatusQueued {
		return false, nil
	}
	b.Status = models.BuildStatusRunning
	b.StartedAt = &startedAt
	r.builds[id] = b
	return true, nil
}

func (r *BuildRepository) SetTotal(ctx context.Context, id string, total int) error {
	return r.mutate(id, func(b *models.Build) {
		b.ItemsTotal = total
	})
}

func (r *BuildRepository) UpdateProgress(ctx context.Context, id string, p models.Progress) error {
	return r.mutate(id, func(b *models.Build) {
		b.ItemsDone = max(b.ItemsDone, p.ItemsDone)
		b.PagesWritten = max(b.PagesWritten, p.PagesWritten)
		b.BytesWritten = max(b.BytesWritten, p.BytesWritten)
	})
}

func (r *BuildRepository) MarkSucceeded(ctx context.Context, id string, finishedAt time.Time) (bool, error) {
	return r.transition(id, func(b *models.Build) bool {
		if b.Status != models.BuildStatusRunning {
			return false
		}
		b.Status = models.BuildStatusSuccess
		b.FinishedAt = &finishedAt
		return true
	})
}

func (r *BuildRepository) MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) (bool, error) {
	return r.transition(id, func(b *models.Build) bool {
		if !b.Status.Active() {
			return false
		}
		b.Status = models.BuildStatusFailed
		b.Error = &message
		b.FinishedAt = &finishedAt
		return true
	})
}

func (r *BuildRepository) ListStale(ctx context.Context, startedBefore time.Time) ([]models.Build, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Build
	for _, b := range r.builds {
		if b.Status == models.BuildStatusRunning && b.StartedAt != nil && b.StartedAt.Before(startedBefore) {
			out = append(out, copyBuild(&b))
		}
	}
	return out, nil
}

func (r *BuildRepository) ListQueued(ctx context.Context) ([]models.Build, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Build
	for _, b := range r.builds {
		if b.Status == models.BuildStatusQueued {
			out = append(out, copyBuild(&b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *BuildRepository) mutate(id string, fn func(*models.Build)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.builds[id]
	if !ok {
		return fmt.Errorf("build %s: %w", id, domain.ErrNotFound)
	}
	fn(&b)
	r.builds[id] = b
	return nil
}

// transition applies fn under the lock and reports whether it changed the build.
func (r *BuildRepository) transition(id string, fn func(*models.Build) bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.builds[id]
	if !ok {
		return false, fmt.Errorf("build %s: %w", id, domain.ErrNotFound)
	}
	if !fn(&b) {
		return false, nil
	}
	r.builds[id] = b
	return true, nil
}

func copyBuild(b *models.Build) models.Build {
	out := *b
	out.SelectedSpaceIDs = cloneStrings(b.SelectedSpaceIDs)
	out.TargetBuildID = cloneString(b.TargetBuildID)
	out.Error = cloneString(b.Error)
	if b.StartedAt != nil {
		t := *b.StartedAt
		out.StartedAt = &t
	}
	if b.FinishedAt != nil {
		t := *b.FinishedAt
		out.FinishedAt = &t
	}
	return out
}
