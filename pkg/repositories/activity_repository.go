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

// ActivityRepository defines the interface for activity-entry data access.
type ActivityRepository interface {
	Create(ctx context.Context, entry *models.ActivityEntry) error
	GetBySlug(ctx context.Context, projectID uuid.UUID, slug string) (*models.ActivityEntry, error)
	ListByProject(ctx context.Context, projectID uuid.UUID, scope authz.ActivityScope) ([]*models.ActivityEntry, error)
	Update(ctx context.Context, entry *models.ActivityEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// activityRepository implements ActivityRepository using PostgreSQL.
type activityRepository struct {
	db *database.DB
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(db *database.DB) ActivityRepository {
	return &activityRepository{db: db}
}

const activityColumns = `id, project_id, contributor_id, name, description, slug, start_time, end_time, minutes, created_at, updated_at`

func scanActivity(row pgx.Row) (*models.ActivityEntry, error) {
	var entry models.ActivityEntry
	err := row.Scan(
		&entry.ID,
		&entry.ProjectID,
		&entry.ContributorID,
		&entry.Name,
		&entry.Description,
		&entry.Slug,
		&entry.Start,
		&entry.End,
		&entry.Minutes,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan activity entry: %w", err)
	}
	return &entry, nil
}

// Create inserts a new activity entry.
func (r *activityRepository) Create(ctx context.Context, entry *models.ActivityEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	query := `
		INSERT INTO activity_entries (id, project_id, contributor_id, name, description, slug, start_time, end_time, minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Querier(ctx).Exec(ctx, query,
		entry.ID,
		entry.ProjectID,
		entry.ContributorID,
		entry.Name,
		entry.Description,
		entry.Slug,
		entry.Start,
		entry.End,
		entry.Minutes,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create activity entry: %w", err)
	}
	return nil
}

// GetBySlug retrieves an activity entry by slug within one project.
func (r *activityRepository) GetBySlug(ctx context.Context, projectID uuid.UUID, slug string) (*models.ActivityEntry, error) {
	query := `SELECT ` + activityColumns + ` FROM activity_entries WHERE project_id = $1 AND slug = $2`
	return scanActivity(r.db.Querier(ctx).QueryRow(ctx, query, projectID, slug))
}

// ListByProject returns the project's entries visible under the given scope,
// newest first.
func (r *activityRepository) ListByProject(ctx context.Context, projectID uuid.UUID, scope authz.ActivityScope) ([]*models.ActivityEntry, error) {
	query := `SELECT ` + activityColumns + ` FROM activity_entries WHERE project_id = $1`
	args := []any{projectID}
	if !scope.All {
		query += ` AND contributor_id = $2`
		args = append(args, scope.ContributorID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity entries: %w", err)
	}
	defer rows.Close()

	entries := []*models.ActivityEntry{}
	for rows.Next() {
		entry, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Update updates an entry's fields. ProjectID and ContributorID never change.
func (r *activityRepository) Update(ctx context.Context, entry *models.ActivityEntry) error {
	entry.UpdatedAt = time.Now()
	query := `
		UPDATE activity_entries
		SET name = $2, description = $3, start_time = $4, end_time = $5, minutes = $6, updated_at = $7
		WHERE id = $1`
	result, err := r.db.Querier(ctx).Exec(ctx, query,
		entry.ID, entry.Name, entry.Description, entry.Start, entry.End, entry.Minutes, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update activity entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete removes an activity entry.
func (r *activityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Querier(ctx).Exec(ctx, `DELETE FROM activity_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete activity entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SlugExists reports whether any activity entry already uses the slug.
func (r *activityRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.Querier(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM activity_entries WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check activity slug: %w", err)
	}
	return exists, nil
}
