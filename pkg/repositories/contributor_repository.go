package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tempus-hq/timetracker-engine/pkg/apperrors"
	"github.com/tempus-hq/timetracker-engine/pkg/database"
	"github.com/tempus-hq/timetracker-engine/pkg/models"
)

// ContributorRepository defines the interface for project-contributor data
// access. GetByUserAndProject is the lookup behind every authorization
// decision, so it stays a single indexed query.
type ContributorRepository interface {
	Create(ctx context.Context, contributor *models.ProjectContributor) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ProjectContributor, error)
	GetByProjectAndID(ctx context.Context, projectID, id uuid.UUID) (*models.ProjectContributor, error)
	GetByUserAndProject(ctx context.Context, userID, projectID uuid.UUID) (*models.ProjectContributor, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectContributor, error)
	Update(ctx context.Context, contributor *models.ProjectContributor) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUserAndOrganization(ctx context.Context, userID, orgID uuid.UUID) (int64, error)
}

// contributorRepository implements ContributorRepository using PostgreSQL.
type contributorRepository struct {
	db *database.DB
}

// NewContributorRepository creates a new contributor repository.
func NewContributorRepository(db *database.DB) ContributorRepository {
	return &contributorRepository{db: db}
}

const contributorColumns = `id, project_id, user_id, project_admin, activity_viewer, activity_editor, created_at, updated_at`

func scanContributor(row pgx.Row) (*models.ProjectContributor, error) {
	var contributor models.ProjectContributor
	err := row.Scan(
		&contributor.ID,
		&contributor.ProjectID,
		&contributor.UserID,
		&contributor.ProjectAdmin,
		&contributor.ActivityViewer,
		&contributor.ActivityEditor,
		&contributor.CreatedAt,
		&contributor.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan contributor: %w", err)
	}
	return &contributor, nil
}

// Create inserts a new contributor row. The unique (project_id, user_id)
// constraint turns a concurrent duplicate into ErrDuplicateContributor.
func (r *contributorRepository) Create(ctx context.Context, contributor *models.ProjectContributor) error {
	if contributor.ID == uuid.Nil {
		contributor.ID = uuid.New()
	}
	now := time.Now()
	contributor.CreatedAt = now
	contributor.UpdatedAt = now

	query := `
		INSERT INTO project_contributors (id, project_id, user_id, project_admin, activity_viewer, activity_editor, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Querier(ctx).Exec(ctx, query,
		contributor.ID,
		contributor.ProjectID,
		contributor.UserID,
		contributor.ProjectAdmin,
		contributor.ActivityViewer,
		contributor.ActivityEditor,
		contributor.CreatedAt,
		contributor.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicateContributor
		}
		return fmt.Errorf("failed to create contributor: %w", err)
	}
	return nil
}

// GetByID retrieves a contributor by ID.
func (r *contributorRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ProjectContributor, error) {
	query := `SELECT ` + contributorColumns + ` FROM project_contributors WHERE id = $1`
	return scanContributor(r.db.Querier(ctx).QueryRow(ctx, query, id))
}

// GetByProjectAndID retrieves a contributor by ID, scoped to one project so
// a row from another project resolves as not found.
func (r *contributorRepository) GetByProjectAndID(ctx context.Context, projectID, id uuid.UUID) (*models.ProjectContributor, error) {
	query := `SELECT ` + contributorColumns + ` FROM project_contributors WHERE project_id = $1 AND id = $2`
	return scanContributor(r.db.Querier(ctx).QueryRow(ctx, query, projectID, id))
}

// GetByUserAndProject retrieves the user's contributor row on a project,
// or ErrNotFound when the user is not a contributor.
func (r *contributorRepository) GetByUserAndProject(ctx context.Context, userID, projectID uuid.UUID) (*models.ProjectContributor, error) {
	query := `SELECT ` + contributorColumns + ` FROM project_contributors WHERE user_id = $1 AND project_id = $2`
	return scanContributor(r.db.Querier(ctx).QueryRow(ctx, query, userID, projectID))
}

// ListByProject returns all contributor rows for a project.
func (r *contributorRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectContributor, error) {
	query := `SELECT ` + contributorColumns + ` FROM project_contributors WHERE project_id = $1 ORDER BY created_at`

	rows, err := r.db.Querier(ctx).Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributors: %w", err)
	}
	defer rows.Close()

	contributors := []*models.ProjectContributor{}
	for rows.Next() {
		contributor, err := scanContributor(rows)
		if err != nil {
			return nil, err
		}
		contributors = append(contributors, contributor)
	}
	return contributors, rows.Err()
}

// Update rewrites the contributor's role bits.
func (r *contributorRepository) Update(ctx context.Context, contributor *models.ProjectContributor) error {
	contributor.UpdatedAt = time.Now()
	query := `
		UPDATE project_contributors
		SET project_admin = $2, activity_viewer = $3, activity_editor = $4, updated_at = $5
		WHERE id = $1`
	result, err := r.db.Querier(ctx).Exec(ctx, query,
		contributor.ID,
		contributor.ProjectAdmin,
		contributor.ActivityViewer,
		contributor.ActivityEditor,
		contributor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update contributor: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete removes a contributor row. The row's activity entries go with it
// via the cascade constraint.
func (r *contributorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Querier(ctx).Exec(ctx, `DELETE FROM project_contributors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contributor: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteByUserAndOrganization removes the user's contributor rows across
// every project in the organization. Used when a member is removed, inside
// the same transaction as the membership delete.
func (r *contributorRepository) DeleteByUserAndOrganization(ctx context.Context, userID, orgID uuid.UUID) (int64, error) {
	query := `
		DELETE FROM project_contributors
		WHERE user_id = $1
		  AND project_id IN (SELECT id FROM projects WHERE organization_id = $2)`
	result, err := r.db.Querier(ctx).Exec(ctx, query, userID, orgID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete contributors for member: %w", err)
	}
	return result.RowsAffected(), nil
}
