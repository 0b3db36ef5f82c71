package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tempus-hq/timetracker-engine/pkg/apperrors"
	"github.com/tempus-hq/timetracker-engine/pkg/database"
	"github.com/tempus-hq/timetracker-engine/pkg/models"
)

// InvitationRepository defines the interface for the invitation outbox.
type InvitationRepository interface {
	Enqueue(ctx context.Context, invitation *models.Invitation) error
	ClaimPending(ctx context.Context, limit int) ([]*models.Invitation, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, maxAttempts int) error
	GetByToken(ctx context.Context, token string) (*models.Invitation, error)
}

// invitationRepository implements InvitationRepository using PostgreSQL.
type invitationRepository struct {
	db *database.DB
}

// NewInvitationRepository creates a new invitation repository.
func NewInvitationRepository(db *database.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

const invitationColumns = `id, user_id, email, token, status, attempts, created_at, sent_at`

func scanInvitation(row pgx.Row) (*models.Invitation, error) {
	var invitation models.Invitation
	err := row.Scan(
		&invitation.ID,
		&invitation.UserID,
		&invitation.Email,
		&invitation.Token,
		&invitation.Status,
		&invitation.Attempts,
		&invitation.CreatedAt,
		&invitation.SentAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan invitation: %w", err)
	}
	return &invitation, nil
}

// Enqueue writes a pending invitation. Callers run this inside the
// provisioning transaction so the row only exists if the user does.
func (r *invitationRepository) Enqueue(ctx context.Context, invitation *models.Invitation) error {
	if invitation.ID == uuid.Nil {
		invitation.ID = uuid.New()
	}
	invitation.Status = models.InvitationPending
	invitation.CreatedAt = time.Now()

	query := `
		INSERT INTO invitation_outbox (id, user_id, email, token, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Querier(ctx).Exec(ctx, query,
		invitation.ID,
		invitation.UserID,
		invitation.Email,
		invitation.Token,
		invitation.Status,
		invitation.Attempts,
		invitation.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to enqueue invitation: %w", err)
	}
	return nil
}

// ClaimPending returns up to limit pending invitations, locking them so
// concurrent dispatchers skip each other's batches.
func (r *invitationRepository) ClaimPending(ctx context.Context, limit int) ([]*models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitation_outbox
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	rows, err := r.db.Querier(ctx).Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim invitations: %w", err)
	}
	defer rows.Close()

	invitations := []*models.Invitation{}
	for rows.Next() {
		invitation, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, invitation)
	}
	return invitations, rows.Err()
}

// MarkSent records a successful delivery.
func (r *invitationRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE invitation_outbox
		SET status = 'sent', attempts = attempts + 1, sent_at = $2
		WHERE id = $1`
	result, err := r.db.Querier(ctx).Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark invitation sent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkFailed bumps the attempt counter. The row stays pending until it
// exhausts maxAttempts, after which it is parked as failed.
func (r *invitationRepository) MarkFailed(ctx context.Context, id uuid.UUID, maxAttempts int) error {
	query := `
		UPDATE invitation_outbox
		SET attempts = attempts + 1,
		    status = CASE WHEN attempts + 1 >= $2 THEN 'failed' ELSE 'pending' END
		WHERE id = $1`
	result, err := r.db.Querier(ctx).Exec(ctx, query, id, maxAttempts)
	if err != nil {
		return fmt.Errorf("failed to mark invitation failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// GetByToken retrieves an invitation by its activation token.
func (r *invitationRepository) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitation_outbox WHERE token = $1`
	return scanInvitation(r.db.Querier(ctx).QueryRow(ctx, query, token))
}
