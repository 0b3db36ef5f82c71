package authz

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tempus-hq/timetracker-engine/pkg/apperrors"
	"github.com/tempus-hq/timetracker-engine/pkg/models"
)

// CanListProjects gates the project list endpoints, both global and
// org-scoped. Like all list endpoints, it never denies an authenticated
// principal; ScopeProjects narrows the result set and a non-contributor
// gets an empty list, not an error.
func (a *Authorizer) CanListProjects(p Principal) Decision {
	return Allow
}

// CanCreateProject gates POST /organizations/{org}/projects:
// staff or the owning organization's contact.
func (a *Authorizer) CanCreateProject(p Principal, org *models.Organization) Decision {
	return staffBypass(p, func() Decision {
		if org.IsContact(p.ID) {
			return Allow
		}
		return Forbidden
	})
}

// ProjectDecision is the object-level check for one project. Staff may do
// anything; a project_admin contributor may view and update; viewer or
// editor contributors may use safe methods; delete is staff only.
// Non-contributors get 403 — the project detail URL embeds the org slug the
// caller already navigated, so existence is not treated as sensitive here.
func (a *Authorizer) ProjectDecision(ctx context.Context, p Principal, method string, project *models.Project) (Decision, error) {
	return staffBypassE(p, func() (Decision, error) {
		if method == http.MethodDelete {
			return Forbidden, nil
		}

		role, err := a.resolver.Resolve(ctx, p.ID, project.ID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return Forbidden, nil
			}
			return Forbidden, fmt.Errorf("project decision: %w", err)
		}

		if role.Has(ProjectAdmin) {
			return Allow, nil
		}
		if SafeMethod(method) && (role.Has(ActivityViewer) || role.Has(ActivityEditor)) {
			return Allow, nil
		}
		return Forbidden, nil
	})
}
