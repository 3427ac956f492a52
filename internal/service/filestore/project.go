package filestore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"polaris/internal/config"
	"polaris/internal/domain"
	"polaris/internal/domain/models/filestore"
	"polaris/internal/domain/repositories"
	"polaris/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// projectService implements the ProjectService interface
type projectService struct {
	projectRepo repositories.ProjectRepository
	logger      *slog.Logger
}

// NewProjectService creates a new project service
func NewProjectService(
	projectRepo repositories.ProjectRepository,
	logger *slog.Logger,
) services.ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		logger:      logger,
	}
}

// CreateProject creates a new project
func (s *projectService) CreateProject(ctx context.Context, req *services.CreateProjectRequest) (*filestore.Project, error) {
	name := strings.TrimSpace(req.Name)
	if err := validation.Validate(name,
		validation.Required,
		validation.Length(1, config.MaxProjectNameLength),
	); err != nil {
		return nil, fmt.Errorf("%w: name: %v", domain.ErrValidation, err)
	}

	project := &filestore.Project{
		OwnerID: req.OwnerID,
		Name:    name,
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		"id", project.ID,
		"name", project.Name,
		"owner_id", req.OwnerID,
	)

	return project, nil
}

// GetProject retrieves a project by ID, enforcing ownership.
func (s *projectService) GetProject(ctx context.Context, id, ownerID string) (*filestore.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}

	return project, nil
}

// ListProjects retrieves all projects for a user
func (s *projectService) ListProjects(ctx context.Context, ownerID string) ([]filestore.Project, error) {
	return s.projectRepo.ListByOwner(ctx, ownerID)
}
