package docsystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"folio/internal/config"
	"folio/internal/domain"
	models "folio/internal/domain/models/docsystem"
	"folio/internal/domain/repositories"
	docsysRepo "folio/internal/domain/repositories/docsystem"
	"folio/internal/domain/services"
	docsysSvc "folio/internal/domain/services/docsystem"
	"folio/internal/utils"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// slugAttempts bounds how many suffixed slugs CreateProject tries when the
// derived slug is taken.
const slugAttempts = 10

// projectService implements the ProjectService interface
type projectService struct {
	projectRepo docsysRepo.ProjectRepository
	txManager   repositories.TransactionManager
	authorizer  services.ProjectAuthorizer
	logger      *slog.Logger
}

// NewProjectService creates a new project service
func NewProjectService(
	projectRepo docsysRepo.ProjectRepository,
	txManager repositories.TransactionManager,
	authorizer services.ProjectAuthorizer,
	logger *slog.Logger,
) docsysSvc.ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		txManager:   txManager,
		authorizer:  authorizer,
		logger:      logger,
	}
}

// CreateProject creates a new project owned by the caller
func (s *projectService) CreateProject(ctx context.Context, req *docsysSvc.CreateProjectRequest) (*models.Project, error) {
	if req.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	name := strings.TrimSpace(req.Name)
	base := utils.Slugify(name)
	if base == "" {
		base = "docs"
	}
	if req.Slug != nil {
		base = *req.Slug
	}

	var project *models.Project
	for attempt := 1; attempt <= slugAttempts; attempt++ {
		slug := base
		if attempt > 1 {
			slug = fmt.Sprintf("%s-%d", base, attempt)
		}
		candidate := &models.Project{
			Slug:      slug,
			Name:      name,
			OwnerID:   req.UserID,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}

		err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
			if err := s.projectRepo.Create(txCtx, candidate); err != nil {
				return err
			}
			return s.projectRepo.AddMember(txCtx, &models.ProjectMember{
				ProjectID: candidate.ID,
				UserID:    req.UserID,
				Role:      models.RoleOwner,
				CreatedAt: candidate.CreatedAt,
			})
		})

		if errors.Is(err, domain.ErrConflict) && req.Slug == nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		project = candidate
		break
	}
	if project == nil {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("no free slug for project %q", name),
			ResourceType: "project",
		}
	}

	s.logger.Info("project created",
		"id", project.ID,
		"slug", project.Slug,
		"owner_id", req.UserID,
	)

	return project, nil
}

// GetProject retrieves a project the user is a member of
func (s *projectService) GetProject(ctx context.Context, userID, projectID string) (*models.Project, error) {
	if _, err := s.authorizer.Authorize(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.projectRepo.GetByID(ctx, projectID)
}

// AddMember grants a role on the project
func (s *projectService) AddMember(ctx context.Context, userID, projectID string, req *docsysSvc.AddMemberRequest) (*models.ProjectMember, error) {
	actor, err := s.authorizer.Authorize(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleOwner && actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("role %s cannot manage members: %w", actor.Role, domain.ErrForbidden)
	}

	err = validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Role, validation.Required, validation.In(
			string(models.RoleOwner), string(models.RoleAdmin), string(models.RoleEditor), string(models.RoleViewer),
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if models.Role(req.Role) == models.RoleOwner && actor.Role != models.RoleOwner {
		return nil, fmt.Errorf("only owners can grant ownership: %w", domain.ErrForbidden)
	}

	member := &models.ProjectMember{
		ProjectID: projectID,
		UserID:    req.UserID,
		Role:      models.Role(req.Role),
		CreatedAt: time.Now(),
	}
	if err := s.projectRepo.AddMember(ctx, member); err != nil {
		return nil, err
	}

	s.logger.Info("project member added",
		"project_id", projectID,
		"user_id", member.UserID,
		"role", member.Role,
	)

	return member, nil
}

func (s *projectService) validateCreateRequest(req *docsysSvc.CreateProjectRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxProjectNameLength)),
		validation.Field(&req.Slug, validation.NilOrNotEmpty, validation.Length(1, config.MaxSlugLength), validation.By(slugRule)),
	)
}
