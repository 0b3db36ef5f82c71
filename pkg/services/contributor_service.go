package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tempus-hq/timetracker-engine/pkg/apperrors"
	"github.com/tempus-hq/timetracker-engine/pkg/database"
	"github.com/tempus-hq/timetracker-engine/pkg/models"
	"github.com/tempus-hq/timetracker-engine/pkg/repositories"
)

// ProvisionInput is the request to add or update a contributor by email.
type ProvisionInput struct {
	Email          string
	Name           string
	ProjectAdmin   bool
	ActivityViewer bool
	ActivityEditor bool
}

// ContributorService provisions contributors onto projects and manages
// their role bits.
type ContributorService interface {
	// Provision adds a contributor to the project by email. In one
	// transaction it looks up or creates the user (new users are created
	// inactive with an activation invitation queued in the outbox), adds
	// the user to the organization's membership set, and inserts the
	// contributor row. A concurrent duplicate for the same (user, project)
	// pair surfaces as ErrDuplicateContributor; nothing partial commits.
	Provision(ctx context.Context, orgID, projectID uuid.UUID, in ProvisionInput) (*models.ProjectContributor, error)

	// Update re-runs user provisioning for the email (so a typo-fixed email
	// still ends with an existing, invited user) and rewrites the
	// contributor's role bits. The row's user binding never changes.
	Update(ctx context.Context, orgID uuid.UUID, contributor *models.ProjectContributor, in ProvisionInput) (*models.ProjectContributor, error)

	// GetByProjectAndID returns one contributor row scoped to the project.
	GetByProjectAndID(ctx context.Context, projectID, id uuid.UUID) (*models.ProjectContributor, error)

	// ListByProject returns the project's contributor rows.
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectContributor, error)

	// Delete removes a contributor row and, via cascade, its entries.
	Delete(ctx context.Context, id uuid.UUID) error
}

type contributorService struct {
	users        repositories.UserRepository
	orgs         repositories.OrganizationRepository
	contributors repositories.ContributorRepository
	invitations  repositories.InvitationRepository
	tx           database.TxRunner
	logger       *zap.Logger
}

// NewContributorService creates a ContributorService.
func NewContributorService(
	users repositories.UserRepository,
	orgs repositories.OrganizationRepository,
	contributors repositories.ContributorRepository,
	invitations repositories.InvitationRepository,
	tx database.TxRunner,
	logger *zap.Logger,
) ContributorService {
	return &contributorService{
		users:        users,
		orgs:         orgs,
		contributors: contributors,
		invitations:  invitations,
		tx:           tx,
		logger:       logger.Named("contributor-service"),
	}
}

// provisionUser looks up the user by normalized email, creating an inactive
// account with a queued invitation when none exists, and ensures org
// membership. Must run inside the caller's transaction.
func (s *contributorService) provisionUser(ctx context.Context, orgID uuid.UUID, in ProvisionInput) (*models.User, error) {
	email := models.NormalizeEmail(in.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", apperrors.ErrValidation)
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNotFound):
		user = &models.User{
			Email:    email,
			Name:     in.Name,
			IsActive: false,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		err = s.invitations.Enqueue(ctx, &models.Invitation{
			UserID: user.ID,
			Email:  email,
			Token:  uuid.NewString(),
		})
		if err != nil {
			return nil, err
		}
		s.logger.Info("Provisioned new user",
			zap.String("user_id", user.ID.String()))
	default:
		return nil, err
	}

	if err := s.orgs.AddMember(ctx, orgID, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *contributorService) Provision(ctx context.Context, orgID, projectID uuid.UUID, in ProvisionInput) (*models.ProjectContributor, error) {
	var contributor *models.ProjectContributor

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		user, err := s.provisionUser(ctx, orgID, in)
		if err != nil {
			return err
		}

		contributor = &models.ProjectContributor{
			ProjectID:      projectID,
			UserID:         &user.ID,
			ProjectAdmin:   in.ProjectAdmin,
			ActivityViewer: in.ActivityViewer,
			ActivityEditor: in.ActivityEditor,
		}
		return s.contributors.Create(ctx, contributor)
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrDuplicateContributor) {
			s.logger.Error("Failed to provision contributor",
				zap.String("project_id", projectID.String()),
				zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("Provisioned contributor",
		zap.String("contributor_id", contributor.ID.String()),
		zap.String("project_id", projectID.String()))
	return contributor, nil
}

func (s *contributorService) Update(ctx context.Context, orgID uuid.UUID, contributor *models.ProjectContributor, in ProvisionInput) (*models.ProjectContributor, error) {
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.provisionUser(ctx, orgID, in); err != nil {
			return err
		}

		contributor.ProjectAdmin = in.ProjectAdmin
		contributor.ActivityViewer = in.ActivityViewer
		contributor.ActivityEditor = in.ActivityEditor
		return s.contributors.Update(ctx, contributor)
	})
	if err != nil {
		s.logger.Error("Failed to update contributor",
			zap.String("contributor_id", contributor.ID.String()),
			zap.Error(err))
		return nil, err
	}
	return contributor, nil
}

func (s *contributorService) GetByProjectAndID(ctx context.Context, projectID, id uuid.UUID) (*models.ProjectContributor, error) {
	return s.contributors.GetByProjectAndID(ctx, projectID, id)
}

func (s *contributorService) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectContributor, error) {
	return s.contributors.ListByProject(ctx, projectID)
}

func (s *contributorService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.contributors.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Deleted contributor", zap.String("contributor_id", id.String()))
	return nil
}
