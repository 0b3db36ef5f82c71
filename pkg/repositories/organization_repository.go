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

// OrganizationRepository defines the interface for organization data access,
// including the membership set.
type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)
	List(ctx context.Context, scope authz.OrganizationScope) ([]*models.Organization, error)
	Update(ctx context.Context, org *models.Organization) error
	Delete(ctx context.Context, id uuid.UUID) error
	SlugExists(ctx context.Context, slug string) (bool, error)

	AddMember(ctx context.Context, orgID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]*models.User, error)
	GetMember(ctx context.Context, orgID, userID uuid.UUID) (*models.User, error)
	IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
}

// organizationRepository implements OrganizationRepository using PostgreSQL.
type organizationRepository struct {
	db *database.DB
}

// NewOrganizationRepository creates a new organization repository.
func NewOrganizationRepository(db *database.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

const orgColumns = `id, name, slug, contact_id, created_at, updated_at`

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var org models.Organization
	err := row.Scan(
		&org.ID,
		&org.Name,
		&org.Slug,
		&org.ContactID,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan organization: %w", err)
	}
	return &org, nil
}

// Create inserts a new organization.
func (r *organizationRepository) Create(ctx context.Context, org *models.Organization) error {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	now := time.Now()
	org.CreatedAt = now
	org.UpdatedAt = now

	query := `
		INSERT INTO organizations (id, name, slug, contact_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Querier(ctx).Exec(ctx, query,
		org.ID, org.Name, org.Slug, org.ContactID, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// GetBySlug retrieves an organization by slug.
func (r *organizationRepository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE slug = $1`
	return scanOrganization(r.db.Querier(ctx).QueryRow(ctx, query, slug))
}

// List returns organizations visible under the given scope, ordered by name.
func (r *organizationRepository) List(ctx context.Context, scope authz.OrganizationScope) ([]*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations`
	args := []any{}
	if !scope.All {
		query += ` WHERE contact_id = $1`
		args = append(args, scope.ContactID)
	}
	query += ` ORDER BY name`

	rows, err := r.db.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	orgs := []*models.Organization{}
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// Update updates an organization's name and contact.
func (r *organizationRepository) Update(ctx context.Context, org *models.Organization) error {
	org.UpdatedAt = time.Now()
	query := `UPDATE organizations SET name = $2, contact_id = $3, updated_at = $4 WHERE id = $1`
	result, err := r.db.Querier(ctx).Exec(ctx, query, org.ID, org.Name, org.ContactID, org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete removes an organization. Projects, contributors, and activity
// entries underneath it are removed by the cascade constraints.
func (r *organizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Querier(ctx).Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SlugExists reports whether any organization already uses the slug.
func (r *organizationRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.Querier(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM organizations WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check organization slug: %w", err)
	}
	return exists, nil
}

// AddMember adds a user to the organization's membership set.
// Adding an existing member is a no-op.
func (r *organizationRepository) AddMember(ctx context.Context, orgID, userID uuid.UUID) error {
	query := `
		INSERT INTO organization_members (organization_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (organization_id, user_id) DO NOTHING`
	_, err := r.db.Querier(ctx).Exec(ctx, query, orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// RemoveMember removes a user from the membership set.
func (r *organizationRepository) RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error {
	query := `DELETE FROM organization_members WHERE organization_id = $1 AND user_id = $2`
	result, err := r.db.Querier(ctx).Exec(ctx, query, orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListMembers returns the organization's members ordered by email.
func (r *organizationRepository) ListMembers(ctx context.Context, orgID uuid.UUID) ([]*models.User, error) {
	query := `
		SELECT u.id, u.email, u.name, u.phone_number, u.is_active, u.is_staff, u.created_at, u.updated_at
		FROM users u
		JOIN organization_members m ON m.user_id = u.id
		WHERE m.organization_id = $1
		ORDER BY u.email`

	rows, err := r.db.Querier(ctx).Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// GetMember returns a member of the organization, or ErrNotFound if the
// user is not in the membership set.
func (r *organizationRepository) GetMember(ctx context.Context, orgID, userID uuid.UUID) (*models.User, error) {
	query := `
		SELECT u.id, u.email, u.name, u.phone_number, u.is_active, u.is_staff, u.created_at, u.updated_at
		FROM users u
		JOIN organization_members m ON m.user_id = u.id
		WHERE m.organization_id = $1 AND u.id = $2`
	return scanUser(r.db.Querier(ctx).QueryRow(ctx, query, orgID, userID))
}

// IsMember reports whether the user is in the organization's membership set.
func (r *organizationRepository) IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.Querier(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM organization_members WHERE organization_id = $1 AND user_id = $2)`,
		orgID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}
