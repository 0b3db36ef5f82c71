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

// OrganizationService provides operations for managing organizations and
// their membership sets.
type OrganizationService interface {
	// Create creates an organization. When a contact is given, the contact
	// is added to the membership set in the same transaction so the
	// contact-is-member invariant holds from the first commit.
	Create(ctx context.Context, name string, contactID *uuid.UUID) (*models.Organization, error)

	// GetBySlug returns the organization with the given slug.
	GetBySlug(ctx context.Context, orgSlug string) (*models.Organization, error)

	// List returns the organizations visible under the scope.
	List(ctx context.Context, scope authz.OrganizationScope) ([]*models.Organization, error)

	// Update updates the organization's name and contact. A newly assigned
	// contact joins the membership set in the same transaction.
	Update(ctx context.Context, org *models.Organization, name string, contactID *uuid.UUID) (*models.Organization, error)

	// Delete removes the organization and everything under it.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListMembers returns the organization's members.
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]*models.User, error)

	// GetMember returns one member, or ErrNotFound for non-members.
	GetMember(ctx context.Context, orgID, userID uuid.UUID) (*models.User, error)

	// AddMember adds a user to the membership set. Idempotent.
	AddMember(ctx context.Context, orgID, userID uuid.UUID) error

	// RemoveMember removes the user from the membership set and deletes
	// their contributor rows across all of the organization's projects in
	// one transaction.
	RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error
}

type organizationService struct {
	orgs         repositories.OrganizationRepository
	contributors repositories.ContributorRepository
	tx           database.TxRunner
	logger       *zap.Logger
}

// NewOrganizationService creates an OrganizationService.
func NewOrganizationService(
	orgs repositories.OrganizationRepository,
	contributors repositories.ContributorRepository,
	tx database.TxRunner,
	logger *zap.Logger,
) OrganizationService {
	return &organizationService{
		orgs:         orgs,
		contributors: contributors,
		tx:           tx,
		logger:       logger.Named("organization-service"),
	}
}

func (s *organizationService) Create(ctx context.Context, name string, contactID *uuid.UUID) (*models.Organization, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", apperrors.ErrValidation)
	}

	orgSlug, err := slug.Unique(ctx, name, s.orgs.SlugExists)
	if err != nil {
		return nil, err
	}

	org := &models.Organization{
		Name:      name,
		Slug:      orgSlug,
		ContactID: contactID,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.orgs.Create(ctx, org); err != nil {
			return err
		}
		if contactID != nil {
			return s.orgs.AddMember(ctx, org.ID, *contactID)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create organization",
			zap.String("name", name),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Created organization",
		zap.String("organization_id", org.ID.String()),
		zap.String("slug", org.Slug))
	return org, nil
}

func (s *organizationService) GetBySlug(ctx context.Context, orgSlug string) (*models.Organization, error) {
	return s.orgs.GetBySlug(ctx, orgSlug)
}

func (s *organizationService) List(ctx context.Context, scope authz.OrganizationScope) ([]*models.Organization, error) {
	return s.orgs.List(ctx, scope)
}

func (s *organizationService) Update(ctx context.Context, org *models.Organization, name string, contactID *uuid.UUID) (*models.Organization, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", apperrors.ErrValidation)
	}

	org.Name = name
	org.ContactID = contactID

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.orgs.Update(ctx, org); err != nil {
			return err
		}
		if contactID != nil {
			return s.orgs.AddMember(ctx, org.ID, *contactID)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to update organization",
			zap.String("organization_id", org.ID.String()),
			zap.Error(err))
		return nil, err
	}
	return org, nil
}

func (s *organizationService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.orgs.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Deleted organization", zap.String("organization_id", id.String()))
	return nil
}

func (s *organizationService) ListMembers(ctx context.Context, orgID uuid.UUID) ([]*models.User, error) {
	return s.orgs.ListMembers(ctx, orgID)
}

func (s *organizationService) GetMember(ctx context.Context, orgID, userID uuid.UUID) (*models.User, error) {
	return s.orgs.GetMember(ctx, orgID, userID)
}

func (s *organizationService) AddMember(ctx context.Context, orgID, userID uuid.UUID) error {
	return s.orgs.AddMember(ctx, orgID, userID)
}

func (s *organizationService) RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error {
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.orgs.RemoveMember(ctx, orgID, userID); err != nil {
			return err
		}
		removed, err := s.contributors.DeleteByUserAndOrganization(ctx, userID, orgID)
		if err != nil {
			return err
		}
		s.logger.Info("Removed member",
			zap.String("organization_id", orgID.String()),
			zap.String("user_id", userID.String()),
			zap.Int64("contributor_rows_removed", removed))
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to remove member",
			zap.String("organization_id", orgID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
	return err
}
