package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"folio/internal/config"
	"folio/internal/domain"
	models "folio/internal/domain/models/publish"
	docsysRepo "folio/internal/domain/repositories/docsystem"
	publishRepo "folio/internal/domain/repositories/publish"
	"folio/internal/domain/services"
	publishSvc "folio/internal/domain/services/publish"
	"folio/internal/service/auth"
	"folio/internal/service/blobstore"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Site layouts understood by the edge renderer.
var layouts = []interface{}{"sidebar", "topnav"}

// SiteConfig is the storage binding shared by every site of this deployment.
type SiteConfig struct {
	StoreID    string
	BaseURL    string
	HostSuffix string
}

type siteService struct {
	sites      publishRepo.SiteRepository
	projects   docsysRepo.ProjectRepository
	spaces     docsysRepo.SpaceRepository
	blobs      *blobstore.Store
	mirror     *Mirror
	authorizer services.ProjectAuthorizer
	cfg        SiteConfig
	logger     *slog.Logger
}

// NewSiteService creates a new site service
func NewSiteService(
	sites publishRepo.SiteRepository,
	projects docsysRepo.ProjectRepository,
	spaces docsysRepo.SpaceRepository,
	blobs *blobstore.Store,
	mirror *Mirror,
	authorizer services.ProjectAuthorizer,
	cfg SiteConfig,
	logger *slog.Logger,
) publishSvc.SiteService {
	return &siteService{
		sites:      sites,
		projects:   projects,
		spaces:     spaces,
		blobs:      blobs,
		mirror:     mirror,
		authorizer: authorizer,
		cfg:        cfg,
		logger:     logger,
	}
}

// SetupSite creates the project's site on first call and returns the
// existing one afterwards.
func (s *siteService) SetupSite(ctx context.Context, userID, projectID string, req *publishSvc.SetupSiteRequest) (*models.Site, error) {
	if _, err := auth.RequirePublisher(ctx, s.authorizer, userID, projectID); err != nil {
		return nil, err
	}
	err := validation.ValidateStruct(req,
		validation.Field(&req.Layout, validation.In(layouts...)),
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, config.MaxSpaceNameLength)),
		validation.Field(&req.LogoURL, validation.NilOrNotEmpty, is.URL),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	existing, err := s.sites.GetByProject(ctx, projectID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	host, err := NormalizeHost(project.Slug + "." + s.cfg.HostSuffix)
	if err != nil {
		return nil, err
	}

	site := &models.Site{
		ProjectID:        projectID,
		StoreID:          s.cfg.StoreID,
		BaseURL:          s.cfg.BaseURL,
		PrimaryHost:      host,
		CustomDomains:    []string{},
		SelectedSpaceIDs: []string{},
		Layout:           req.Layout,
		Name:             req.Name,
		LogoURL:          req.LogoURL,
	}
	if site.Layout == "" {
		site.Layout = models.DefaultLayout
	}

	if err := s.sites.Create(ctx, site); err != nil {
		// Lost a setup race; the winner's site is the site
		if errors.Is(err, domain.ErrConflict) {
			return s.sites.GetByProject(ctx, projectID)
		}
		return nil, err
	}
	s.logger.Info("site created", "site_id", site.ID, "project_id", projectID, "host", host)
	return site, nil
}

func (s *siteService) GetSite(ctx context.Context, userID, projectID string) (*models.Site, error) {
	if _, err := s.authorizer.Authorize(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.sites.GetByProject(ctx, projectID)
}

func (s *siteService) UpdateSite(ctx context.Context, userID, projectID string, req *publishSvc.UpdateSiteRequest) (*models.Site, error) {
	if _, err := auth.RequirePublisher(ctx, s.authorizer, userID, projectID); err != nil {
		return nil, err
	}
	err := validation.ValidateStruct(req,
		validation.Field(&req.Layout, validation.NilOrNotEmpty, validation.In(layouts...)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	site, err := s.sites.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if req.Name.Value != nil && (*req.Name.Value == "" || len(*req.Name.Value) > config.MaxSpaceNameLength) {
		return nil, fmt.Errorf("%w: name must be between 1 and %d characters", domain.ErrValidation, config.MaxSpaceNameLength)
	}
	if req.LogoURL.Value != nil {
		if err := validation.Validate(*req.LogoURL.Value, validation.Required, is.URL); err != nil {
			return nil, fmt.Errorf("%w: logo_url: %v", domain.ErrValidation, err)
		}
	}
	req.Name.Apply(&site.Name)
	req.LogoURL.Apply(&site.LogoURL)
	if req.Layout != nil {
		site.Layout = *req.Layout
	}
	if len(req.Theme) > 0 {
		if !json.Valid(req.Theme) {
			return nil, fmt.Errorf("%w: theme must be valid JSON", domain.ErrValidation)
		}
		site.Theme = req.Theme
	}

	if err := s.sites.Update(ctx, site); err != nil {
		return nil, err
	}
	return site, nil
}

// UpdateSelection replaces the ordered list of spaces to publish. Duplicates
// are dropped; every id must be a space of the project.
func (s *siteService) UpdateSelection(ctx context.Context, userID, projectID string, spaceIDs []string) (*models.Site, error) {
	if _, err := auth.RequirePublisher(ctx, s.authorizer, userID, projectID); err != nil {
		return nil, err
	}
	site, err := s.sites.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	selection := make([]string, 0, len(spaceIDs))
	for _, id := range spaceIDs {
		if slices.Contains(selection, id) {
			continue
		}
		space, err := s.spaces.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: space %s does not exist", domain.ErrValidation, id)
			}
			return nil, err
		}
		if space.ProjectID != projectID {
			return nil, fmt.Errorf("%w: space %s belongs to another project", domain.ErrValidation, id)
		}
		selection = append(selection, id)
	}

	site.SelectedSpaceIDs = selection
	if err := s.sites.Update(ctx, site); err != nil {
		return nil, err
	}
	s.logger.Info("selection updated", "site_id", site.ID, "spaces", len(selection))
	return site, nil
}

// AddDomain binds a custom domain. When the site is live the current pointer
// is mirrored to the new host right away.
func (s *siteService) AddDomain(ctx context.Context, userID, projectID, rawHost string) (*models.Site, error) {
	if _, err := auth.RequirePublisher(ctx, s.authorizer, userID, projectID); err != nil {
		return nil, err
	}
	host, err := NormalizeHost(rawHost)
	if err != nil {
		return nil, err
	}
	site, err := s.sites.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if host == site.PrimaryHost || slices.Contains(site.CustomDomains, host) {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("domain %s is already bound to this site", host),
			ResourceType: "domain",
			ResourceID:   host,
		}
	}
	if len(site.CustomDomains) >= config.MaxCustomDomains {
		return nil, fmt.Errorf("%w: a site can have at most %d custom domains", domain.ErrValidation, config.MaxCustomDomains)
	}

	site.CustomDomains = append(site.CustomDomains, host)
	if err := s.sites.Update(ctx, site); err != nil {
		return nil, err
	}
	s.logger.Info("domain added", "site_id", site.ID, "host", host)

	if site.LastBuildID != nil {
		pointer, err := s.blobs.ReadPointer(ctx, blobstore.ProjectPointerKey(projectID))
		if err != nil {
			s.logger.Warn("no live pointer to mirror", "site_id", site.ID, "error", err)
			return site, nil
		}
		report := s.mirror.Mirror(ctx, []string{host}, pointer)
		if len(report.Failed) > 0 {
			s.logger.Warn("initial mirror failed", "site_id", site.ID, "host", host)
		}
	}
	return site, nil
}

// RemoveDomain unbinds a custom domain and takes its pointer offline.
func (s *siteService) RemoveDomain(ctx context.Context, userID, projectID, rawHost string) (*models.Site, error) {
	if _, err := auth.RequirePublisher(ctx, s.authorizer, userID, projectID); err != nil {
		return nil, err
	}
	host, err := NormalizeHost(rawHost)
	if err != nil {
		return nil, err
	}
	site, err := s.sites.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	i := slices.Index(site.CustomDomains, host)
	if i < 0 {
		return nil, fmt.Errorf("domain %s: %w", host, domain.ErrNotFound)
	}
	site.CustomDomains = slices.Delete(site.CustomDomains, i, i+1)
	if err := s.sites.Update(ctx, site); err != nil {
		return nil, err
	}

	if err := s.mirror.Unbind(ctx, host); err != nil {
		s.logger.Warn("failed to remove host pointer", "host", host, "error", err)
	}
	s.logger.Info("domain removed", "site_id", site.ID, "host", host)
	return site, nil
}
