//go:build integration

package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/tempus-hq/timetracker-engine/pkg/apperrors"
	"github.com/tempus-hq/timetracker-engine/pkg/models"
	"github.com/tempus-hq/timetracker-engine/pkg/testhelpers"
)

// contributorTestContext holds all dependencies for contributor repository
// integration tests.
type contributorTestContext struct {
	t        *testing.T
	engineDB *testhelpers.EngineDB
	repo     ContributorRepository

	orgID     uuid.UUID
	projectID uuid.UUID
}

// setupContributorTest creates a test context with a real database and a
// fresh organization + project to attach contributor rows to.
func setupContributorTest(t *testing.T) *contributorTestContext {
	t.Helper()

	engineDB := testhelpers.GetEngineDB(t)

	tc := &contributorTestContext{
		t:        t,
		engineDB: engineDB,
		repo:     NewContributorRepository(engineDB.DB),
	}

	ctx := context.Background()
	tc.orgID = uuid.New()
	_, err := engineDB.DB.Pool.Exec(ctx, `
		INSERT INTO organizations (id, name, slug)
		VALUES ($1, $2, $3)
	`, tc.orgID, "Contributor Test Org", "contrib-test-org-"+tc.orgID.String())
	if err != nil {
		t.Fatalf("Failed to create test organization: %v", err)
	}

	tc.projectID = uuid.New()
	_, err = engineDB.DB.Pool.Exec(ctx, `
		INSERT INTO projects (id, organization_id, name, slug)
		VALUES ($1, $2, $3, $4)
	`, tc.projectID, tc.orgID, "Contributor Test Project", "contrib-test-"+tc.projectID.String())
	if err != nil {
		t.Fatalf("Failed to create test project: %v", err)
	}

	return tc
}

// createTestUser inserts a user row and returns its ID.
func (tc *contributorTestContext) createTestUser() uuid.UUID {
	tc.t.Helper()

	id := uuid.New()
	_, err := tc.engineDB.DB.Pool.Exec(context.Background(), `
		INSERT INTO users (id, email, name, is_active)
		VALUES ($1, $2, $3, TRUE)
	`, id, id.String()+"@example.com", "Test User")
	if err != nil {
		tc.t.Fatalf("Failed to create test user: %v", err)
	}
	return id
}

func TestContributorRepository_CreateAndLookup(t *testing.T) {
	tc := setupContributorTest(t)
	ctx := context.Background()
	userID := tc.createTestUser()

	contributor := &models.ProjectContributor{
		ProjectID:      tc.projectID,
		UserID:         &userID,
		ActivityEditor: true,
	}
	if err := tc.repo.Create(ctx, contributor); err != nil {
		t.Fatalf("Failed to create contributor: %v", err)
	}

	got, err := tc.repo.GetByUserAndProject(ctx, userID, tc.projectID)
	if err != nil {
		t.Fatalf("GetByUserAndProject failed: %v", err)
	}
	if got.ID != contributor.ID {
		t.Errorf("Expected contributor %s, got %s", contributor.ID, got.ID)
	}
	if got.ProjectAdmin || got.ActivityViewer || !got.ActivityEditor {
		t.Errorf("Role bits not persisted: %+v", got)
	}
}

func TestContributorRepository_DuplicateUserProject(t *testing.T) {
	tc := setupContributorTest(t)
	ctx := context.Background()
	userID := tc.createTestUser()

	first := &models.ProjectContributor{ProjectID: tc.projectID, UserID: &userID}
	if err := tc.repo.Create(ctx, first); err != nil {
		t.Fatalf("Failed to create contributor: %v", err)
	}

	second := &models.ProjectContributor{ProjectID: tc.projectID, UserID: &userID, ProjectAdmin: true}
	err := tc.repo.Create(ctx, second)
	if !errors.Is(err, apperrors.ErrDuplicateContributor) {
		t.Errorf("Expected ErrDuplicateContributor, got %v", err)
	}
}

func TestContributorRepository_GetByProjectAndID_WrongProject(t *testing.T) {
	tc := setupContributorTest(t)
	ctx := context.Background()
	userID := tc.createTestUser()

	contributor := &models.ProjectContributor{ProjectID: tc.projectID, UserID: &userID}
	if err := tc.repo.Create(ctx, contributor); err != nil {
		t.Fatalf("Failed to create contributor: %v", err)
	}

	// A valid row looked up under another project must be indistinguishable
	// from a missing one.
	_, err := tc.repo.GetByProjectAndID(ctx, uuid.New(), contributor.ID)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestContributorRepository_DeleteByUserAndOrganization(t *testing.T) {
	tc := setupContributorTest(t)
	ctx := context.Background()
	userID := tc.createTestUser()

	// Second project in the same org; the user contributes to both.
	secondProject := uuid.New()
	_, err := tc.engineDB.DB.Pool.Exec(ctx, `
		INSERT INTO projects (id, organization_id, name, slug)
		VALUES ($1, $2, $3, $4)
	`, secondProject, tc.orgID, "Second Project", "second-"+secondProject.String())
	if err != nil {
		t.Fatalf("Failed to create second project: %v", err)
	}

	for _, projectID := range []uuid.UUID{tc.projectID, secondProject} {
		if err := tc.repo.Create(ctx, &models.ProjectContributor{ProjectID: projectID, UserID: &userID}); err != nil {
			t.Fatalf("Failed to create contributor: %v", err)
		}
	}

	deleted, err := tc.repo.DeleteByUserAndOrganization(ctx, userID, tc.orgID)
	if err != nil {
		t.Fatalf("DeleteByUserAndOrganization failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deleted rows, got %d", deleted)
	}

	_, err = tc.repo.GetByUserAndProject(ctx, userID, tc.projectID)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after cascade, got %v", err)
	}
}

func TestContributorRepository_DeleteCascadesEntries(t *testing.T) {
	tc := setupContributorTest(t)
	ctx := context.Background()
	userID := tc.createTestUser()

	contributor := &models.ProjectContributor{ProjectID: tc.projectID, UserID: &userID, ActivityEditor: true}
	if err := tc.repo.Create(ctx, contributor); err != nil {
		t.Fatalf("Failed to create contributor: %v", err)
	}

	entryID := uuid.New()
	_, err := tc.engineDB.DB.Pool.Exec(ctx, `
		INSERT INTO activity_entries (id, project_id, contributor_id, name, slug, minutes)
		VALUES ($1, $2, $3, $4, $5, 30)
	`, entryID, tc.projectID, contributor.ID, "Logged work", "logged-"+entryID.String())
	if err != nil {
		t.Fatalf("Failed to create activity entry: %v", err)
	}

	if err := tc.repo.Delete(ctx, contributor.ID); err != nil {
		t.Fatalf("Failed to delete contributor: %v", err)
	}

	var count int
	err = tc.engineDB.DB.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM activity_entries WHERE contributor_id = $1
	`, contributor.ID).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count entries: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected entries to cascade with contributor, found %d", count)
	}
}
