package auth

import (
	"context"
	"fmt"

	"github.com/tempus-hq/timetracker-engine/pkg/authz"
)

// GetPrincipal retrieves the resolved principal from the request context.
// Returns the zero principal and false outside an authenticated request.
func GetPrincipal(ctx context.Context) (authz.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(authz.Principal)
	return p, ok
}

// RequirePrincipal retrieves the principal or errors. Use in code paths
// that must not run unauthenticated.
func RequirePrincipal(ctx context.Context) (authz.Principal, error) {
	p, ok := GetPrincipal(ctx)
	if !ok {
		return authz.Principal{}, fmt.Errorf("no principal in context")
	}
	return p, nil
}
