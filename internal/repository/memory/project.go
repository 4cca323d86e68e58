package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"folio/internal/domain"
	models "folio/internal/domain/models/docsystem"
	docsysRepo "folio/internal/domain/repositories/docsystem"

	"github.com/google/uuid"
)

type ProjectRepository struct {
	mu       sync.RWMutex
	projects map[string]models.Project
	members  map[string]map[string]models.Role // project -> user -> role
}

// NewProjectRepository creates an empty project repository
func NewProjectRepository() *ProjectRepository {
	return &ProjectRepository{
		projects: map[string]models.Project{},
		members:  map[string]map[string]models.Role{},
	}
}

var _ docsysRepo.ProjectRepository = (*ProjectRepository)(nil)

func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.projects {
		if p.Slug == project.Slug {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("project slug %q is taken", project.Slug),
				ResourceType: "project",
				ResourceID:   p.ID,
			}
		}
	}
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	project.CreatedAt, project.UpdatedAt = now, now
	r.projects[project.ID] = *project
	return nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

func (r *ProjectRepository) AddMember(ctx context.Context, member *models.ProjectMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.members[member.ProjectID] == nil {
		r.members[member.ProjectID] = map[string]models.Role{}
	}
	r.members[member.ProjectID][member.UserID] = member.Role
	return nil
}

func (r *ProjectRepository) GetMemberRole(ctx context.Context, projectID, userID string) (models.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	role, ok := r.members[projectID][userID]
	if !ok {
		return "", fmt.Errorf("member %s of project %s: %w", userID, projectID, domain.ErrNotFound)
	}
	return role, nil
}
