package authz

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tempus-hq/timetracker-engine/pkg/models"
)

// CanCreateOrganization gates POST /organizations. Staff only.
func (a *Authorizer) CanCreateOrganization(p Principal) Decision {
	return staffBypass(p, func() Decision {
		return Forbidden
	})
}

// CanListOrganizations gates GET /organizations. Listing never denies an
// authenticated principal; ScopeOrganizations narrows the result set, and
// a principal who is contact of nothing simply gets an empty list.
func (a *Authorizer) CanListOrganizations(p Principal) Decision {
	return Allow
}

// OrganizationDecision is the object-level check for one organization.
// Staff may do anything including delete; the contact may view and update
// but never delete. Denials expose existence: a non-contact probing an
// organization detail gets 403.
func (a *Authorizer) OrganizationDecision(p Principal, method string, org *models.Organization) Decision {
	return staffBypass(p, func() Decision {
		if method == http.MethodDelete {
			return Forbidden
		}
		if org.IsContact(p.ID) {
			return Allow
		}
		return Forbidden
	})
}

// MemberListDecision gates listing and adding organization members:
// staff or any member of the organization.
func (a *Authorizer) MemberListDecision(ctx context.Context, p Principal, org *models.Organization) (Decision, error) {
	return staffBypassE(p, func() (Decision, error) {
		member, err := a.members.IsMember(ctx, org.ID, p.ID)
		if err != nil {
			return Forbidden, fmt.Errorf("failed to check membership: %w", err)
		}
		if member {
			return Allow, nil
		}
		return Forbidden, nil
	})
}

// MemberManageDecision is the object-level check for adding or removing a
// member: staff or the organization contact only.
func (a *Authorizer) MemberManageDecision(p Principal, org *models.Organization) Decision {
	return staffBypass(p, func() Decision {
		if org.IsContact(p.ID) {
			return Allow
		}
		return Forbidden
	})
}
