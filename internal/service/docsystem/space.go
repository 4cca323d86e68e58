package docsystem

import (
	"context"
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
	"folio/internal/rank"
	"folio/internal/service/auth"
	"folio/internal/utils"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// seedGroupTitle is the root group every new space starts with.
const seedGroupTitle = "Getting Started"

type spaceService struct {
	spaceRepo  docsysRepo.SpaceRepository
	docRepo    docsysRepo.DocumentRepository
	txManager  repositories.TransactionManager
	validator  *ResourceValidator
	authorizer services.ProjectAuthorizer
	logger     *slog.Logger
}

// NewSpaceService creates a new space service
func NewSpaceService(
	spaceRepo docsysRepo.SpaceRepository,
	docRepo docsysRepo.DocumentRepository,
	txManager repositories.TransactionManager,
	validator *ResourceValidator,
	authorizer services.ProjectAuthorizer,
	logger *slog.Logger,
) docsysSvc.SpaceService {
	return &spaceService{
		spaceRepo:  spaceRepo,
		docRepo:    docRepo,
		txManager:  txManager,
		validator:  validator,
		authorizer: authorizer,
		logger:     logger,
	}
}

// CreateSpace creates a space and its seed group in one transaction
func (s *spaceService) CreateSpace(ctx context.Context, req *docsysSvc.CreateSpaceRequest) (*models.Space, error) {
	if _, err := auth.RequireEditor(ctx, s.authorizer, req.UserID, req.ProjectID); err != nil {
		return nil, err
	}
	if err := validateCreateSpace(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	style := models.SpaceStyle(req.Style)
	if style == "" {
		style = models.SpaceStyleSidebar
	}

	var slug string
	if req.Slug != nil {
		slug = *req.Slug
	} else {
		existing, err := s.spaceRepo.ListByProject(ctx, req.ProjectID)
		if err != nil {
			return nil, err
		}
		taken := make(map[string]bool, len(existing))
		for _, sp := range existing {
			taken[sp.Slug] = true
		}
		slug = utils.UniqueSlug(utils.Slugify(req.Name), "space", func(c string) bool { return taken[c] })
	}

	now := time.Now()
	space := &models.Space{
		ProjectID: req.ProjectID,
		Slug:      slug,
		Name:      strings.TrimSpace(req.Name),
		IconName:  req.IconName,
		Style:     style,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.spaceRepo.Create(txCtx, space); err != nil {
			return err
		}
		return s.docRepo.Create(txCtx, &models.Document{
			SpaceID:   space.ID,
			Type:      models.DocumentTypeGroup,
			Slug:      utils.Slugify(seedGroupTitle),
			Title:     seedGroupTitle,
			Rank:      rank.Initial(),
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("space created",
		"id", space.ID,
		"slug", space.Slug,
		"project_id", space.ProjectID,
	)

	return space, nil
}

// GetSpace retrieves a space
func (s *spaceService) GetSpace(ctx context.Context, userID, spaceID string) (*models.Space, error) {
	return s.validator.ReadSpace(ctx, userID, spaceID)
}

// ListSpaces lists a project's spaces ordered by creation time
func (s *spaceService) ListSpaces(ctx context.Context, userID, projectID string) ([]models.Space, error) {
	if _, err := s.authorizer.Authorize(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.spaceRepo.ListByProject(ctx, projectID)
}

// UpdateSpace patches name, slug, icon and style
func (s *spaceService) UpdateSpace(ctx context.Context, userID, spaceID string, req *docsysSvc.UpdateSpaceRequest) (*models.Space, error) {
	space, err := s.validator.EditSpace(ctx, userID, spaceID)
	if err != nil {
		return nil, err
	}
	if err := validateUpdateSpace(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if req.Name != nil {
		space.Name = strings.TrimSpace(*req.Name)
	}
	if req.Slug != nil {
		space.Slug = *req.Slug
	}
	if req.IconName != nil {
		space.IconName = req.IconName
	}
	if req.Style != nil {
		space.Style = models.SpaceStyle(*req.Style)
	}
	space.UpdatedAt = time.Now()

	if err := s.spaceRepo.Update(ctx, space); err != nil {
		return nil, err
	}

	s.logger.Info("space updated", "id", space.ID, "slug", space.Slug)
	return space, nil
}

// DeleteSpace removes the space together with every document in it
func (s *spaceService) DeleteSpace(ctx context.Context, userID, spaceID string) error {
	if _, err := s.validator.EditSpace(ctx, userID, spaceID); err != nil {
		return err
	}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.docRepo.DeleteBySpace(txCtx, spaceID); err != nil {
			return err
		}
		return s.spaceRepo.Delete(txCtx, spaceID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("space deleted", "id", spaceID)
	return nil
}

var spaceStyles = []interface{}{string(models.SpaceStyleSidebar), string(models.SpaceStyleTabs)}

func validateCreateSpace(req *docsysSvc.CreateSpaceRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required),
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxSpaceNameLength)),
		validation.Field(&req.Slug, validation.NilOrNotEmpty, validation.Length(1, config.MaxSlugLength), validation.By(slugRule)),
		validation.Field(&req.Style, validation.In(spaceStyles...)),
	)
}

func validateUpdateSpace(req *docsysSvc.UpdateSpaceRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, config.MaxSpaceNameLength)),
		validation.Field(&req.Slug, validation.NilOrNotEmpty, validation.Length(1, config.MaxSlugLength), validation.By(slugRule)),
		validation.Field(&req.Style, validation.NilOrNotEmpty, validation.In(spaceStyles...)),
	)
}

// slugRule accepts string or *string values holding a well-formed slug.
func slugRule(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	}
	if s != "" && !utils.IsValidSlug(s) {
		return fmt.Errorf("must contain only lowercase letters, digits and single hyphens")
	}
	return nil
}
