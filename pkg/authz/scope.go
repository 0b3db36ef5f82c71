package authz

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Scoped query filters: authorization expressed as a query predicate
// rather than a boolean. List endpoints never 403 a principal who simply
// has no qualifying resources — repositories translate these scopes to SQL
// and an unqualified principal gets an empty result set. Path scoping
// (org slug, project slug) is always applied as a hard filter before the
// role filter.

// OrganizationScope narrows an organization list.
type OrganizationScope struct {
	// All grants the unfiltered set (staff).
	All bool
	// ContactID limits the set to organizations whose contact is this user.
	ContactID uuid.UUID
}

// ProjectScope narrows a project list.
type ProjectScope struct {
	// All grants the unfiltered set (staff).
	All bool
	// UserID limits the set to projects where this user holds any
	// capability bit on a contributor row.
	UserID uuid.UUID
}

// ActivityScope narrows an activity-entry list within one project.
type ActivityScope struct {
	// All grants every entry of the project (staff, admin, viewer).
	All bool
	// ContributorID limits the set to entries owned by this contributor
	// (editor without viewer or admin).
	ContributorID uuid.UUID
}

// ScopeOrganizations computes the visible organization set.
func (a *Authorizer) ScopeOrganizations(p Principal) OrganizationScope {
	if p.Staff {
		return OrganizationScope{All: true}
	}
	return OrganizationScope{ContactID: p.ID}
}

// ScopeProjects computes the visible project set for both the global
// project list and the org-scoped list.
func (a *Authorizer) ScopeProjects(p Principal) ProjectScope {
	if p.Staff {
		return ProjectScope{All: true}
	}
	return ProjectScope{UserID: p.ID}
}

// ScopeActivities computes the visible entry set within one project.
// Returns apperrors.ErrNotFound for principals with no contributor row —
// activity endpoints hide the project's existence from outsiders.
func (a *Authorizer) ScopeActivities(ctx context.Context, p Principal, projectID uuid.UUID) (ActivityScope, error) {
	if p.Staff {
		return ActivityScope{All: true}, nil
	}

	role, err := a.resolver.Resolve(ctx, p.ID, projectID)
	if err != nil {
		return ActivityScope{}, fmt.Errorf("activity scope: %w", err)
	}

	if role.Has(ProjectAdmin) || role.Has(ActivityViewer) {
		return ActivityScope{All: true}, nil
	}
	return ActivityScope{ContributorID: role.ContributorID}, nil
}
