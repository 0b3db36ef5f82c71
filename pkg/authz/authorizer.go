package authz

import (
	"context"

	"github.com/google/uuid"
)

// MembershipChecker is the organization-membership lookup the member
// decisions need. Satisfied by repositories.OrganizationRepository.
type MembershipChecker interface {
	IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
}

// Authorizer evaluates the per-resource decision tables. It holds no
// request state; one instance serves all requests.
type Authorizer struct {
	resolver Resolver
	members  MembershipChecker
}

// NewAuthorizer creates an Authorizer.
func NewAuthorizer(resolver Resolver, members MembershipChecker) *Authorizer {
	return &Authorizer{resolver: resolver, members: members}
}
