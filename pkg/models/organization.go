package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the top-level tenant. The contact is the designated
// primary owner; creation logic guarantees the contact is also a member.
type Organization struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	ContactID *uuid.UUID `json:"contact_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsContact reports whether the given user is the organization's contact.
func (o *Organization) IsContact(userID uuid.UUID) bool {
	return o.ContactID != nil && *o.ContactID == userID
}
