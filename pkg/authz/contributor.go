package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tempus-hq/timetracker-engine/pkg/apperrors"
	"github.com/tempus-hq/timetracker-engine/pkg/models"
)

// ContributorAccess is the coarse gate for listing and creating
// contributors on a project: staff or a project_admin contributor.
// Everyone else gets NotFound — contributor endpoints hide whether the
// project exists from principals who cannot administer it.
func (a *Authorizer) ContributorAccess(ctx context.Context, p Principal, projectID uuid.UUID) (Decision, error) {
	return staffBypassE(p, func() (Decision, error) {
		role, err := a.resolver.Resolve(ctx, p.ID, projectID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return NotFound, nil
			}
			return NotFound, fmt.Errorf("contributor access: %w", err)
		}
		if role.Has(ProjectAdmin) {
			return Allow, nil
		}
		return NotFound, nil
	})
}

// ContributorDecision is the object-level check for one contributor row.
// Staff and project_admins have full access. A contributor may view their
// own row with safe methods, but may never update or delete it — role
// changes always come from an admin. Principals with no contributor row on
// the project get NotFound; contributors without admin get 403.
func (a *Authorizer) ContributorDecision(ctx context.Context, p Principal, method string, obj *models.ProjectContributor) (Decision, error) {
	return staffBypassE(p, func() (Decision, error) {
		role, err := a.resolver.Resolve(ctx, p.ID, obj.ProjectID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return NotFound, nil
			}
			return NotFound, fmt.Errorf("contributor decision: %w", err)
		}

		if SafeMethod(method) && obj.IsUser(p.ID) {
			return Allow, nil
		}
		if role.Has(ProjectAdmin) {
			return Allow, nil
		}
		return Forbidden, nil
	})
}
