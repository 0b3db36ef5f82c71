package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tempus-hq/timetracker-engine/pkg/apperrors"
	"github.com/tempus-hq/timetracker-engine/pkg/authz"
	"github.com/tempus-hq/timetracker-engine/pkg/database"
	"github.com/tempus-hq/timetracker-engine/pkg/models"
	"github.com/tempus-hq/timetracker-engine/pkg/repositories"
	"github.com/tempus-hq/timetracker-engine/pkg/slug"
)

// ProjectService provides operations for managing projects.
type ProjectService interface {
	// Create creates a project under the organization. The organization's
	// contact is granted a project_admin contributor row in the same
	// transaction; a project is never committed without its admin.
	Create(ctx context.Context, org *models.Organization, creatorID uuid.UUID, name, description string) (*models.Project, error)

	// GetBySlug returns the organization's project with the given slug.
	GetBySlug(ctx context.Context, orgID uuid.UUID, projectSlug string) (*models.Project, error)

	// List returns all projects visible under the scope.
	List(ctx context.Context, scope authz.ProjectScope) ([]*models.Project, error)

	// ListByOrganization returns the organization's projects visible under
	// the scope.
	ListByOrganization(ctx context.Context, orgID uuid.UUID, scope authz.ProjectScope) ([]*models.Project, error)

	// Update updates the project's name and description.
	Update(ctx context.Context, project *models.Project, name, description string) (*models.Project, error)

	// Delete removes the project, its contributors, and its entries.
	Delete(ctx context.Context, id uuid.UUID) error
}

type projectService struct {
	projects     repositories.ProjectRepository
	contributors repositories.ContributorRepository
	tx           database.TxRunner
	logger       *zap.Logger
}

// NewProjectService creates a ProjectService.
func NewProjectService(
	projects repositories.ProjectRepository,
	contributors repositories.ContributorRepository,
	tx database.TxRunner,
	logger *zap.Logger,
) ProjectService {
	return &projectService{
		projects:     projects,
		contributors: contributors,
		tx:           tx,
		logger:       logger.Named("project-service"),
	}
}

func (s *projectService) Create(ctx context.Context, org *models.Organization, creatorID uuid.UUID, name, description string) (*models.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", apperrors.ErrValidation)
	}

	projectSlug, err := slug.Unique(ctx, name, s.projects.SlugExists)
	if err != nil {
		return nil, err
	}

	project := &models.Project{
		OrganizationID: org.ID,
		CreatorID:      &creatorID,
		Name:           name,
		Description:    description,
		Slug:           projectSlug,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.projects.Create(ctx, project); err != nil {
			return err
		}
		if org.ContactID == nil {
			return nil
		}
		return s.contributors.Create(ctx, &models.ProjectContributor{
			ProjectID:    project.ID,
			UserID:       org.ContactID,
			ProjectAdmin: true,
		})
	})
	if err != nil {
		s.logger.Error("Failed to create project",
			zap.String("organization_id", org.ID.String()),
			zap.String("name", name),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Created project",
		zap.String("project_id", project.ID.String()),
		zap.String("organization_id", org.ID.String()),
		zap.String("slug", project.Slug))
	return project, nil
}

func (s *projectService) GetBySlug(ctx context.Context, orgID uuid.UUID, projectSlug string) (*models.Project, error) {
	return s.projects.GetBySlug(ctx, orgID, projectSlug)
}

func (s *projectService) List(ctx context.Context, scope authz.ProjectScope) ([]*models.Project, error) {
	return s.projects.List(ctx, scope)
}

func (s *projectService) ListByOrganization(ctx context.Context, orgID uuid.UUID, scope authz.ProjectScope) ([]*models.Project, error) {
	return s.projects.ListByOrganization(ctx, orgID, scope)
}

func (s *projectService) Update(ctx context.Context, project *models.Project, name, description string) (*models.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", apperrors.ErrValidation)
	}
	project.Name = name
	project.Description = description
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *projectService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Deleted project", zap.String("project_id", id.String()))
	return nil
}
