package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tempus-hq/timetracker-engine/pkg/apperrors"
	"github.com/tempus-hq/timetracker-engine/pkg/models"
)

// ActivityCreateDecision gates POST of an activity entry.
// contributorID is the contributor the request body assigns the entry to.
//
// Staff are explicitly denied: staff administer projects but do not log
// time. Project admins are likewise denied — see adminMayCreateEntries.
// An activity_editor may create entries only for their own contributor
// row; logging time as someone else is never allowed.
func (a *Authorizer) ActivityCreateDecision(ctx context.Context, p Principal, projectID, contributorID uuid.UUID) (Decision, error) {
	// Staff carve-out: checked before the uniform staff bypass.
	if p.Staff {
		return Forbidden, nil
	}

	role, err := a.resolver.Resolve(ctx, p.ID, projectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return NotFound, nil
		}
		return NotFound, fmt.Errorf("activity create decision: %w", err)
	}

	if !adminMayCreateEntries && role.Has(ProjectAdmin) {
		return Forbidden, nil
	}
	if role.Has(ActivityEditor) && role.ContributorID == contributorID {
		return Allow, nil
	}
	return Forbidden, nil
}

// adminMayCreateEntries controls whether a project_admin can post activity
// entries. The shipped behavior denies it, matching the contract the
// product has always had; admins administer time, editors log it. Kept as
// a single named rule so flipping it is a one-line change.
const adminMayCreateEntries = false

// ActivityDecision is the object-level check for one activity entry.
// Staff, the entry's owner, and project_admins have full access; an
// activity_viewer may use safe methods on any entry in the project.
// Principals with no contributor row on the project get NotFound.
func (a *Authorizer) ActivityDecision(ctx context.Context, p Principal, method string, entry *models.ActivityEntry) (Decision, error) {
	return staffBypassE(p, func() (Decision, error) {
		role, err := a.resolver.Resolve(ctx, p.ID, entry.ProjectID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return NotFound, nil
			}
			return NotFound, fmt.Errorf("activity decision: %w", err)
		}

		if entry.ContributorID == role.ContributorID || role.Has(ProjectAdmin) {
			return Allow, nil
		}
		if SafeMethod(method) && role.Has(ActivityViewer) {
			return Allow, nil
		}
		return Forbidden, nil
	})
}
