package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityEntry is a block of time logged by a contributor.
// ProjectID is denormalized and must always equal the contributor's
// project; the activity service rejects writes that break this.
type ActivityEntry struct {
	ID            uuid.UUID  `json:"id"`
	ProjectID     uuid.UUID  `json:"project_id"`
	ContributorID uuid.UUID  `json:"contributor_id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Slug          string     `json:"slug"`
	Start         *time.Time `json:"start,omitempty"`
	End           *time.Time `json:"end,omitempty"`
	Minutes       int        `json:"minutes"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
