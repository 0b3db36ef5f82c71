package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tempus-hq/timetracker-engine/pkg/apperrors"
	"github.com/tempus-hq/timetracker-engine/pkg/authz"
	"github.com/tempus-hq/timetracker-engine/pkg/database"
	"github.com/tempus-hq/timetracker-engine/pkg/models"
)

// ProjectRepository defines the interface for project data access.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*models.Project, error)
	List(ctx context.Context, scope authz.ProjectScope) ([]*models.Project, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID, scope authz.ProjectScope) ([]*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// projectRepository implements ProjectRepository using PostgreSQL.
type projectRepository struct {
	db *database.DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *database.DB) ProjectRepository {
	return &projectRepository{db: db}
}

const projectColumns = `id, organization_id, creator_id, name, description, slug, created_at, updated_at`

func scanProject(row pgx.Row) (*models.Project, error) {
	var project models.Project
	err := row.Scan(
		&project.ID,
		&project.OrganizationID,
		&project.CreatorID,
		&project.Name,
		&project.Description,
		&project.Slug,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	return &project, nil
}

// Create inserts a new project.
func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now

	query := `
		INSERT INTO projects (id, organization_id, creator_id, name, description, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Querier(ctx).Exec(ctx, query,
		project.ID,
		project.OrganizationID,
		project.CreatorID,
		project.Name,
		project.Description,
		project.Slug,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetBySlug retrieves a project by slug within one organization.
func (r *projectRepository) GetBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE organization_id = $1 AND slug = $2`
	return scanProject(r.db.Querier(ctx).QueryRow(ctx, query, orgID, slug))
}

// scopeProjectsQuery appends the role filter for non-staff scopes: the
// project is visible when the user holds any capability bit on it.
const scopeProjectsJoin = `
	JOIN project_contributors pc ON pc.project_id = p.id
	WHERE pc.user_id = %s
	  AND (pc.project_admin OR pc.activity_viewer OR pc.activity_editor)`

// List returns all projects visible under the given scope.
func (r *projectRepository) List(ctx context.Context, scope authz.ProjectScope) ([]*models.Project, error) {
	var query string
	args := []any{}
	if scope.All {
		query = `SELECT ` + projectColumns + ` FROM projects ORDER BY name`
	} else {
		query = `
			SELECT p.id, p.organization_id, p.creator_id, p.name, p.description, p.slug, p.created_at, p.updated_at
			FROM projects p` + fmt.Sprintf(scopeProjectsJoin, "$1") + `
			ORDER BY p.name`
		args = append(args, scope.UserID)
	}
	return r.queryProjects(ctx, query, args...)
}

// ListByOrganization returns the organization's projects visible under the
// given scope. The organization filter applies before the role filter.
func (r *projectRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID, scope authz.ProjectScope) ([]*models.Project, error) {
	var query string
	args := []any{orgID}
	if scope.All {
		query = `SELECT ` + projectColumns + ` FROM projects WHERE organization_id = $1 ORDER BY name`
	} else {
		query = `
			SELECT p.id, p.organization_id, p.creator_id, p.name, p.description, p.slug, p.created_at, p.updated_at
			FROM projects p` + fmt.Sprintf(scopeProjectsJoin, "$2") + `
			  AND p.organization_id = $1
			ORDER BY p.name`
		args = append(args, scope.UserID)
	}
	return r.queryProjects(ctx, query, args...)
}

func (r *projectRepository) queryProjects(ctx context.Context, query string, args ...any) ([]*models.Project, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []*models.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// Update updates a project's name and description.
func (r *projectRepository) Update(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now()
	query := `UPDATE projects SET name = $2, description = $3, updated_at = $4 WHERE id = $1`
	result, err := r.db.Querier(ctx).Exec(ctx, query,
		project.ID, project.Name, project.Description, project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete removes a project and, via cascade, its contributors and entries.
func (r *projectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Querier(ctx).Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SlugExists reports whether any project already uses the slug.
// Project slugs are globally unique, not per-organization.
func (r *projectRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.Querier(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM projects WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check project slug: %w", err)
	}
	return exists, nil
}
