package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"folio/internal/config"
	"folio/internal/domain"
	"folio/internal/domain/models/publish"
	publishRepo "folio/internal/domain/repositories/publish"
	"folio/internal/domain/services"
	publishSvc "folio/internal/domain/services/publish"
	"folio/internal/jobs"
	"folio/internal/service/auth"
	"folio/internal/service/blobstore"

	"github.com/google/uuid"
)

type publishService struct {
	sites      publishRepo.SiteRepository
	builds     publishRepo.BuildRepository
	blobs      *blobstore.Store
	queue      jobs.Enqueuer
	authorizer services.ProjectAuthorizer
	logger     *slog.Logger
	now        func() time.Time
}

// NewPublishService creates the publish request path
func NewPublishService(
	sites publishRepo.SiteRepository,
	builds publishRepo.BuildRepository,
	blobs *blobstore.Store,
	queue jobs.Enqueuer,
	authorizer services.ProjectAuthorizer,
	logger *slog.Logger,
) publishSvc.PublishService {
	return &publishService{
		sites:      sites,
		builds:     builds,
		blobs:      blobs,
		queue:      queue,
		authorizer: authorizer,
		logger:     logger,
		now:        time.Now,
	}
}

// Publish snapshots the site's current selection into a queued build
func (s *publishService) Publish(ctx context.Context, userID, projectID string) (*publish.Build, error) {
	actor, err := auth.RequirePublisher(ctx, s.authorizer, userID, projectID)
	if err != nil {
		return nil, err
	}
	site, err := s.sites.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	build := &publish.Build{
		SiteID:           site.ID,
		Operation:        publish.OperationPublish,
		ActorID:          actor.ID,
		SelectedSpaceIDs: append([]string{}, site.SelectedSpaceIDs...),
	}
	if err := s.enqueue(ctx, build); err != nil {
		return nil, err
	}
	return build, nil
}

// Revert queues a build that re-points the site at targetBuildID. Only
// successful publish builds of the same site are valid targets.
func (s *publishService) Revert(ctx context.Context, userID, projectID, targetBuildID string) (*publish.Build, error) {
	actor, err := auth.RequirePublisher(ctx, s.authorizer, userID, projectID)
	if err != nil {
		return nil, err
	}
	if targetBuildID == "" {
		return nil, fmt.Errorf("%w: target_build_id is required", domain.ErrValidation)
	}
	site, err := s.sites.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	target, err := s.builds.GetByID(ctx, targetBuildID)
	if err != nil {
		return nil, err
	}
	if target.SiteID != site.ID {
		return nil, fmt.Errorf("build %s: %w", targetBuildID, domain.ErrNotFound)
	}
	if target.Operation != publish.OperationPublish {
		return nil, fmt.Errorf("%w: build %s is a %s, only publish builds can be reverted to", domain.ErrValidation, target.ID, target.Operation)
	}
	if target.Status != publish.BuildStatusSuccess {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("build %s is %s, only successful builds can be reverted to", target.ID, target.Status),
			ResourceType: "build",
			ResourceID:   target.ID,
		}
	}

	build := &publish.Build{
		SiteID:           site.ID,
		Operation:        publish.OperationRevert,
		ActorID:          actor.ID,
		SelectedSpaceIDs: append([]string{}, target.SelectedSpaceIDs...),
		TargetBuildID:    &target.ID,
	}
	if err := s.enqueue(ctx, build); err != nil {
		return nil, err
	}
	return build, nil
}

// enqueue enforces one active build per site, persists build as queued and
// hands it to the workers.
func (s *publishService) enqueue(ctx context.Context, build *publish.Build) error {
	active, err := s.builds.GetActive(ctx, build.SiteID)
	switch {
	case err == nil:
		return &domain.ConflictError{
			Message:      fmt.Sprintf("build %s is already %s for this site", active.ID, active.Status),
			ResourceType: "build",
			ResourceID:   active.ID,
		}
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate build id: %w", err)
	}
	build.ID = id.String()
	build.Status = publish.BuildStatusQueued
	build.CreatedAt = s.now().UTC()

	if err := s.builds.Create(ctx, build); err != nil {
		return err
	}
	s.logger.Info("build queued",
		"build_id", build.ID,
		"site_id", build.SiteID,
		"operation", build.Operation,
		"spaces", len(build.SelectedSpaceIDs),
	)

	if err := s.queue.Enqueue(build.ID); err != nil {
		// The reaper picks up queued builds the pool could not take
		s.logger.Warn("build left for recovery", "build_id", build.ID, "error", err)
	}
	return nil
}

func (s *publishService) GetBuild(ctx context.Context, userID, buildID string) (*publish.Build, error) {
	build, err := s.builds.GetByID(ctx, buildID)
	if err != nil {
		return nil, err
	}
	site, err := s.sites.GetByID(ctx, build.SiteID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizer.Authorize(ctx, userID, site.ProjectID); err != nil {
		return nil, err
	}
	return build, nil
}

func (s *publishService) ListBuilds(ctx context.Context, userID, projectID string, limit int) ([]publish.Build, error) {
	if _, err := s.authorizer.Authorize(ctx, userID, projectID); err != nil {
		return nil, err
	}
	site, err := s.sites.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = config.DefaultBuildListLimit
	}
	limit = min(limit, config.MaxBuildListLimit)

	builds, err := s.builds.ListBySite(ctx, site.ID, limit)
	if err != nil {
		return nil, err
	}
	if builds == nil {
		builds = []publish.Build{}
	}
	return builds, nil
}

// GetLive returns the project pointer and its build. A pointer whose build
// has not reached success is not reported as live.
func (s *publishService) GetLive(ctx context.Context, userID, projectID string) (*publishSvc.LiveState, error) {
	if _, err := s.authorizer.Authorize(ctx, userID, projectID); err != nil {
		return nil, err
	}

	pointer, err := s.blobs.ReadPointer(ctx, blobstore.ProjectPointerKey(projectID))
	if err != nil {
		return nil, err
	}
	build, err := s.builds.GetByID(ctx, pointer.BuildID)
	if err != nil {
		return nil, err
	}
	if build.Status != publish.BuildStatusSuccess {
		return nil, fmt.Errorf("live build %s is %s: %w", build.ID, build.Status, domain.ErrNotFound)
	}
	return &publishSvc.LiveState{Pointer: pointer, Build: build}, nil
}
