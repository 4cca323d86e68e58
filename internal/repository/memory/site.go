package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"folio/internal/domain"
	models "folio/internal/domain/models/publish"
	publishRepo "folio/internal/domain/repositories/publish"

	"github.com/google/uuid"
)

type SiteRepository struct {
	mu    sync.RWMutex
	sites map[string]models.Site
}

// NewSiteRepository creates an empty site repository
func NewSiteRepository() *SiteRepository {
	return &SiteRepository{sites: map[string]models.Site{}}
}

var _ publishRepo.SiteRepository = (*SiteRepository)(nil)

func (r *SiteRepository) Create(ctx context.Context, site *models.Site) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sites {
		if s.ProjectID == site.ProjectID {
			return &domain.ConflictError{
				Message:      "project already has a site",
				ResourceType: "site",
				ResourceID:   s.ID,
			}
		}
	}
	if site.ID == "" {
		site.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	site.CreatedAt, site.UpdatedAt = now, now
	r.sites[site.ID] = copySite(site)
	return nil
}

func (r *SiteRepository) GetByID(ctx context.Context, id string) (*models.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sites[id]
	if !ok {
		return nil, fmt.Errorf("site %s: %w", id, domain.ErrNotFound)
	}
	out := copySite(&s)
	return &out, nil
}

func (r *SiteRepository) GetByProject(ctx context.Context, projectID string) (*models.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sites {
		if s.ProjectID == projectID {
			out := copySite(&s)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("site for project %s: %w", projectID, domain.ErrNotFound)
}

func (r *SiteRepository) Update(ctx context.Context, site *models.Site) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.sites[site.ID]
	if !ok {
		return fmt.Errorf("site %s: %w", site.ID, domain.ErrNotFound)
	}
	site.UpdatedAt = time.Now().UTC()
	updated := copySite(site)
	updated.CreatedAt = existing.CreatedAt
	updated.LastBuildID = cloneString(existing.LastBuildID)
	updated.LastPublishedAt = existing.LastPublishedAt
	r.sites[site.ID] = updated
	return nil
}

func (r *SiteRepository) SetLastBuild(ctx context.Context, siteID, buildID string, publishedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sites[siteID]
	if !ok {
		return fmt.Errorf("site %s: %w", siteID, domain.ErrNotFound)
	}
	s.LastBuildID = &buildID
	s.LastPublishedAt = &publishedAt
	r.sites[siteID] = s
	return nil
}

func copySite(s *models.Site) models.Site {
	out := *s
	out.CustomDomains = cloneStrings(s.CustomDomains)
	out.SelectedSpaceIDs = cloneStrings(s.SelectedSpaceIDs)
	out.Name = cloneString(s.Name)
	out.LogoURL = cloneString(s.LogoURL)
	out.LastBuildID = cloneString(s.LastBuildID)
	if s.Theme != nil {
		out.Theme = append(json.RawMessage(nil), s.Theme...)
	}
	if s.LastPublishedAt != nil {
		t := *s.LastPublishedAt
		out.LastPublishedAt = &t
	}
	return out
}
