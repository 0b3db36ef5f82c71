package models

import (
	"time"

	"github.com/google/uuid"
)

// Project belongs to exactly one organization and is deleted with it.
type Project struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	CreatorID      *uuid.UUID `json:"creator_id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Slug           string     `json:"slug"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
