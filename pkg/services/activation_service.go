package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/tempus-hq/timetracker-engine/pkg/models"
	"github.com/tempus-hq/timetracker-engine/pkg/repositories"
)

// ActivationService turns invitation tokens into active accounts.
type ActivationService interface {
	// ActivateByToken marks the invited user active. Unknown tokens return
	// ErrNotFound; activating twice is harmless.
	ActivateByToken(ctx context.Context, token string) (*models.User, error)
}

type activationService struct {
	users       repositories.UserRepository
	invitations repositories.InvitationRepository
	logger      *zap.Logger
}

// NewActivationService creates an ActivationService.
func NewActivationService(
	users repositories.UserRepository,
	invitations repositories.InvitationRepository,
	logger *zap.Logger,
) ActivationService {
	return &activationService{
		users:       users,
		invitations: invitations,
		logger:      logger.Named("activation-service"),
	}
}

func (s *activationService) ActivateByToken(ctx context.Context, token string) (*models.User, error) {
	invitation, err := s.invitations.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := s.users.Activate(ctx, invitation.UserID); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, invitation.UserID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Activated user account",
		zap.String("user_id", user.ID.String()))
	return user, nil
}
