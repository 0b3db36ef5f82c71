package models

import (
	"time"

	"github.com/google/uuid"
)

// ProjectContributor carries a user's role bits for one project.
// The bits are independent: project_admin grants full control through
// explicit authorization rules, not by implying the other two bits here.
// At most one row exists per (user, project) pair.
type ProjectContributor struct {
	ID             uuid.UUID  `json:"id"`
	ProjectID      uuid.UUID  `json:"project_id"`
	UserID         *uuid.UUID `json:"user_id"`
	ProjectAdmin   bool       `json:"project_admin"`
	ActivityViewer bool       `json:"activity_viewer"`
	ActivityEditor bool       `json:"activity_editor"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsUser reports whether the contributor row belongs to the given user.
// Rows whose user was deleted (user_id NULL) belong to nobody.
func (c *ProjectContributor) IsUser(userID uuid.UUID) bool {
	return c.UserID != nil && *c.UserID == userID
}
