package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tempus-hq/timetracker-engine/pkg/apperrors"
	"github.com/tempus-hq/timetracker-engine/pkg/models"
)

// ContributorSource is the contributor lookup the resolver needs.
// Satisfied by repositories.ContributorRepository.
type ContributorSource interface {
	GetByUserAndProject(ctx context.Context, userID, projectID uuid.UUID) (*models.ProjectContributor, error)
}

// Resolver resolves a principal's role for one project. Role bits are read
// fresh on every call so a revoked grant takes effect on the next request.
type Resolver interface {
	// Resolve returns the principal's role for the project, or
	// apperrors.ErrNotFound if no contributor row exists. Callers on
	// project-scoped paths surface that as the resource-not-found outcome,
	// hiding whether the project exists.
	Resolve(ctx context.Context, userID, projectID uuid.UUID) (Role, error)
}

type contributorResolver struct {
	contributors ContributorSource
}

// NewResolver creates a Resolver backed by the contributor store.
func NewResolver(contributors ContributorSource) Resolver {
	return &contributorResolver{contributors: contributors}
}

func (r *contributorResolver) Resolve(ctx context.Context, userID, projectID uuid.UUID) (Role, error) {
	contributor, err := r.contributors.GetByUserAndProject(ctx, userID, projectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return Role{}, apperrors.ErrNotFound
		}
		return Role{}, fmt.Errorf("failed to resolve role: %w", err)
	}
	return RoleFromContributor(contributor), nil
}

var _ Resolver = (*contributorResolver)(nil)
