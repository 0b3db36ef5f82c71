package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tempus-hq/timetracker-engine/pkg/apperrors"
	"github.com/tempus-hq/timetracker-engine/pkg/authz"
	"github.com/tempus-hq/timetracker-engine/pkg/models"
	"github.com/tempus-hq/timetracker-engine/pkg/repositories"
	"github.com/tempus-hq/timetracker-engine/pkg/slug"
)

// ActivityInput is the writable surface of an activity entry.
type ActivityInput struct {
	Name        string
	Description string
	Start       *time.Time
	End         *time.Time
	Minutes     int
}

// ActivityService provides CRUD for activity entries. The entry's project
// is denormalized; every write verifies the assigned contributor belongs to
// the entry's project.
type ActivityService interface {
	// Create creates an entry for the contributor on the project.
	// A contributor from another project yields ErrProjectMismatch.
	Create(ctx context.Context, projectID, contributorID uuid.UUID, in ActivityInput) (*models.ActivityEntry, error)

	// GetBySlug returns the project's entry with the given slug.
	GetBySlug(ctx context.Context, projectID uuid.UUID, entrySlug string) (*models.ActivityEntry, error)

	// ListByProject returns the project's entries visible under the scope.
	ListByProject(ctx context.Context, projectID uuid.UUID, scope authz.ActivityScope) ([]*models.ActivityEntry, error)

	// Update updates the entry's fields. Project and contributor bindings
	// never change after creation.
	Update(ctx context.Context, entry *models.ActivityEntry, in ActivityInput) (*models.ActivityEntry, error)

	// Delete removes an entry.
	Delete(ctx context.Context, id uuid.UUID) error
}

type activityService struct {
	activities   repositories.ActivityRepository
	contributors repositories.ContributorRepository
	logger       *zap.Logger
}

// NewActivityService creates an ActivityService.
func NewActivityService(
	activities repositories.ActivityRepository,
	contributors repositories.ContributorRepository,
	logger *zap.Logger,
) ActivityService {
	return &activityService{
		activities:   activities,
		contributors: contributors,
		logger:       logger.Named("activity-service"),
	}
}

func validateActivityInput(in ActivityInput) error {
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", apperrors.ErrValidation)
	}
	if in.Minutes < 0 {
		return fmt.Errorf("%w: minutes must not be negative", apperrors.ErrValidation)
	}
	if in.Start != nil && in.End != nil && in.End.Before(*in.Start) {
		return fmt.Errorf("%w: end must not precede start", apperrors.ErrValidation)
	}
	return nil
}

func (s *activityService) Create(ctx context.Context, projectID, contributorID uuid.UUID, in ActivityInput) (*models.ActivityEntry, error) {
	if err := validateActivityInput(in); err != nil {
		return nil, err
	}

	// GetByProjectAndID resolves only within the project, so a contributor
	// row from any other project comes back ErrNotFound.
	if _, err := s.contributors.GetByProjectAndID(ctx, projectID, contributorID); err != nil {
		return nil, fmt.Errorf("%w: contributor %s", apperrors.ErrProjectMismatch, contributorID)
	}

	entrySlug, err := slug.Unique(ctx, in.Name, s.activities.SlugExists)
	if err != nil {
		return nil, err
	}

	entry := &models.ActivityEntry{
		ProjectID:     projectID,
		ContributorID: contributorID,
		Name:          in.Name,
		Description:   in.Description,
		Slug:          entrySlug,
		Start:         in.Start,
		End:           in.End,
		Minutes:       in.Minutes,
	}
	if err := s.activities.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to create activity entry",
			zap.String("project_id", projectID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Created activity entry",
		zap.String("entry_id", entry.ID.String()),
		zap.String("project_id", projectID.String()))
	return entry, nil
}

func (s *activityService) GetBySlug(ctx context.Context, projectID uuid.UUID, entrySlug string) (*models.ActivityEntry, error) {
	return s.activities.GetBySlug(ctx, projectID, entrySlug)
}

func (s *activityService) ListByProject(ctx context.Context, projectID uuid.UUID, scope authz.ActivityScope) ([]*models.ActivityEntry, error) {
	return s.activities.ListByProject(ctx, projectID, scope)
}

func (s *activityService) Update(ctx context.Context, entry *models.ActivityEntry, in ActivityInput) (*models.ActivityEntry, error) {
	if err := validateActivityInput(in); err != nil {
		return nil, err
	}

	entry.Name = in.Name
	entry.Description = in.Description
	entry.Start = in.Start
	entry.End = in.End
	entry.Minutes = in.Minutes
	if err := s.activities.Update(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *activityService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.activities.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Deleted activity entry", zap.String("entry_id", id.String()))
	return nil
}
