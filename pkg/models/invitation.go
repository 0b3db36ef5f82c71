package models

import (
	"time"

	"github.com/google/uuid"
)

// InvitationStatus tracks an outbox row through dispatch.
type InvitationStatus string

const (
	InvitationPending InvitationStatus = "pending"
	InvitationSent    InvitationStatus = "sent"
	InvitationFailed  InvitationStatus = "failed"
)

// Invitation is an account-activation email queued in the outbox.
// Rows are written inside the contributor-provisioning transaction and
// dispatched after commit, so delivery failures can never roll back or
// fail a successful provisioning request.
type Invitation struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Email     string           `json:"email"`
	Token     string           `json:"token"`
	Status    InvitationStatus `json:"status"`
	Attempts  int              `json:"attempts"`
	CreatedAt time.Time        `json:"created_at"`
	SentAt    *time.Time       `json:"sent_at,omitempty"`
}
