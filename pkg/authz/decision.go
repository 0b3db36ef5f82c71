// Package authz is the authorization core. Every decision is computed and
// returned as an explicit Decision value; nothing in this package panics or
// writes HTTP responses. Handlers translate decisions to status codes.
//
// Each decision carries its visibility choice: Forbidden means the caller
// may learn the resource exists (403), NotFound means existence is hidden
// and the denial is indistinguishable from a missing resource (404).
package authz

import (
	"net/http"

	"github.com/google/uuid"
)

// Decision is the outcome of a coarse or fine authorization check.
type Decision uint8

const (
	// Unauthenticated denies because no valid principal was presented.
	Unauthenticated Decision = iota
	// Forbidden denies while exposing that the resource exists.
	Forbidden
	// NotFound denies while hiding whether the resource exists.
	NotFound
	// Allow grants the request.
	Allow
)

// Allowed reports whether the decision grants the request.
func (d Decision) Allowed() bool { return d == Allow }

func (d Decision) String() string {
	switch d {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Allow:
		return "allow"
	default:
		return "unknown"
	}
}

// Principal is the authenticated actor a decision is evaluated for.
// Staff is a principal-wide superuser flag, orthogonal to project roles.
type Principal struct {
	ID    uuid.UUID
	Staff bool
}

// SafeMethod reports whether the HTTP method is read-only.
func SafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// staffBypass applies the uniform is_staff short-circuit ahead of the
// resource-specific rule. The single rule with a staff carve-out
// (activity-entry create) checks staff itself before reaching here.
func staffBypass(p Principal, rule func() Decision) Decision {
	if p.Staff {
		return Allow
	}
	return rule()
}

// staffBypassE is staffBypass for rules that consult storage.
func staffBypassE(p Principal, rule func() (Decision, error)) (Decision, error) {
	if p.Staff {
		return Allow, nil
	}
	return rule()
}
