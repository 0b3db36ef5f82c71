package authz

import (
	"github.com/google/uuid"

	"github.com/tempus-hq/timetracker-engine/pkg/models"
)

// Capability is one project-scoped grant held by a contributor.
type Capability uint8

const (
	// ProjectAdmin grants full control over the project, its contributors,
	// and its activity entries.
	ProjectAdmin Capability = 1 << iota
	// ActivityViewer grants read access to all activity entries of the project.
	ActivityViewer
	// ActivityEditor grants write access to the contributor's own entries.
	ActivityEditor
)

// implications maps a capability to the capabilities it subsumes.
// ProjectAdmin subsumes both activity capabilities; the two activity
// capabilities imply nothing beyond themselves.
var implications = map[Capability]Capability{
	ProjectAdmin: ActivityViewer | ActivityEditor,
}

// Role is a principal's resolved capability set for one project.
// The zero Role holds no capabilities.
type Role struct {
	ContributorID uuid.UUID
	ProjectID     uuid.UUID
	caps          Capability
}

// NewRole builds a Role from raw capability bits. Used by tests and the
// resolver; production roles always come from a contributor row.
func NewRole(contributorID, projectID uuid.UUID, caps Capability) Role {
	return Role{ContributorID: contributorID, ProjectID: projectID, caps: caps}
}

// RoleFromContributor maps a contributor row's independent booleans onto
// a capability set.
func RoleFromContributor(c *models.ProjectContributor) Role {
	var caps Capability
	if c.ProjectAdmin {
		caps |= ProjectAdmin
	}
	if c.ActivityViewer {
		caps |= ActivityViewer
	}
	if c.ActivityEditor {
		caps |= ActivityEditor
	}
	return Role{ContributorID: c.ID, ProjectID: c.ProjectID, caps: caps}
}

// Has reports whether the capability bit is held directly.
func (r Role) Has(c Capability) bool { return r.caps&c == c }

// Can reports whether the capability is held directly or through the
// implication table.
func (r Role) Can(c Capability) bool {
	if r.Has(c) {
		return true
	}
	for held, implied := range implications {
		if r.Has(held) && implied&c == c {
			return true
		}
	}
	return false
}

// HasAny reports whether the role holds at least one capability.
// A contributor row can exist with all bits false; such a role grants
// nothing and does not make its project visible.
func (r Role) HasAny() bool { return r.caps != 0 }
