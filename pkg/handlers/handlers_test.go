package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempus-hq/timetracker-engine/pkg/apperrors"
	"github.com/tempus-hq/timetracker-engine/pkg/authz"
	"github.com/tempus-hq/timetracker-engine/pkg/models"
)

func do(env *testEnv, method, path string, body any, prefix string, id uuid.UUID) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, path, &buf)
	if prefix != "" {
		bearer(r, prefix, id)
	}
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, r)
	return w
}

func TestHealthNoAuth(t *testing.T) {
	env := newTestEnv()
	w := do(env, http.MethodGet, "/health", nil, "", uuid.Nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnauthenticatedRequests(t *testing.T) {
	env := newTestEnv()
	w := do(env, http.MethodGet, "/api/v1/organizations", nil, "", uuid.Nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrganizationList(t *testing.T) {
	env := newTestEnv()

	// Staff see every organization.
	w := do(env, http.MethodGet, "/api/v1/organizations", nil, "staff", uuid.New())
	require.Equal(t, http.StatusOK, w.Code)
	var staffList []models.Organization
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &staffList))
	assert.Len(t, staffList, 1)

	// A stranger gets 200 with an empty list, never 403.
	w = do(env, http.MethodGet, "/api/v1/organizations", nil, "user", uuid.New())
	require.Equal(t, http.StatusOK, w.Code)
	var strangerList []models.Organization
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &strangerList))
	assert.Empty(t, strangerList)

	// The contact sees their organization.
	w = do(env, http.MethodGet, "/api/v1/organizations", nil, "user", env.contact)
	require.Equal(t, http.StatusOK, w.Code)
	var contactList []models.Organization
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &contactList))
	assert.Len(t, contactList, 1)
}

func TestOrganizationCreateStaffOnly(t *testing.T) {
	env := newTestEnv()
	body := OrganizationRequest{Name: "New Org"}

	w := do(env, http.MethodPost, "/api/v1/organizations", body, "user", env.contact)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(env, http.MethodPost, "/api/v1/organizations", body, "staff", uuid.New())
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestOrganizationDetail(t *testing.T) {
	env := newTestEnv()

	// Unknown slug is 404 for everyone.
	w := do(env, http.MethodGet, "/api/v1/organizations/ghost", nil, "staff", uuid.New())
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Existence is exposed to non-contacts: 403, not 404.
	w = do(env, http.MethodGet, "/api/v1/organizations/acme", nil, "user", uuid.New())
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(env, http.MethodGet, "/api/v1/organizations/acme", nil, "user", env.contact)
	assert.Equal(t, http.StatusOK, w.Code)

	// The contact may update but never delete.
	w = do(env, http.MethodPut, "/api/v1/organizations/acme", OrganizationRequest{Name: "Renamed"}, "user", env.contact)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(env, http.MethodDelete, "/api/v1/organizations/acme", nil, "user", env.contact)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(env, http.MethodDelete, "/api/v1/organizations/acme", nil, "staff", uuid.New())
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMemberEndpoints(t *testing.T) {
	env := newTestEnv()

	// Members may list.
	w := do(env, http.MethodGet, "/api/v1/organizations/acme/members", nil, "user", env.contact)
	assert.Equal(t, http.StatusOK, w.Code)

	// Non-members may not.
	w = do(env, http.MethodGet, "/api/v1/organizations/acme/members", nil, "user", uuid.New())
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Only staff or contact may add and remove.
	newUser := uuid.New()
	w = do(env, http.MethodPost, "/api/v1/organizations/acme/members", AddMemberRequest{UserID: newUser}, "user", uuid.New())
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(env, http.MethodPost, "/api/v1/organizations/acme/members", AddMemberRequest{UserID: newUser}, "user", env.contact)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(env, http.MethodDelete, "/api/v1/organizations/acme/members/"+newUser.String(), nil, "staff", uuid.New())
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestProjectListNeverForbids(t *testing.T) {
	env := newTestEnv()

	w := do(env, http.MethodGet, "/api/v1/projects", nil, "user", uuid.New())
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list)

	w = do(env, http.MethodGet, "/api/v1/projects", nil, "staff", uuid.New())
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestProjectDetailDecisions(t *testing.T) {
	env := newTestEnv()

	// Non-contributor: the project detail exposes existence with 403.
	w := do(env, http.MethodGet, "/api/v1/organizations/acme/projects/app", nil, "user", uuid.New())
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Viewer may read but not update.
	viewer := uuid.New()
	env.resolver.grant(viewer, env.project.ID, authz.ActivityViewer)
	w = do(env, http.MethodGet, "/api/v1/organizations/acme/projects/app", nil, "user", viewer)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(env, http.MethodPut, "/api/v1/organizations/acme/projects/app", ProjectRequest{Name: "X"}, "user", viewer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Admin may update but not delete.
	admin := uuid.New()
	env.resolver.grant(admin, env.project.ID, authz.ProjectAdmin)
	w = do(env, http.MethodPut, "/api/v1/organizations/acme/projects/app", ProjectRequest{Name: "X"}, "user", admin)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(env, http.MethodDelete, "/api/v1/organizations/acme/projects/app", nil, "user", admin)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(env, http.MethodDelete, "/api/v1/organizations/acme/projects/app", nil, "staff", uuid.New())
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestProjectCreate(t *testing.T) {
	env := newTestEnv()

	w := do(env, http.MethodPost, "/api/v1/organizations/acme/projects", ProjectRequest{Name: "P"}, "user", uuid.New())
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(env, http.MethodPost, "/api/v1/organizations/acme/projects", ProjectRequest{Name: "P"}, "user", env.contact)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestContributorEndpointsHideProject(t *testing.T) {
	env := newTestEnv()
	base := "/api/v1/organizations/acme/projects/app/contributors"

	// Non-contributors and plain editors get 404, not 403.
	w := do(env, http.MethodGet, base, nil, "user", uuid.New())
	assert.Equal(t, http.StatusNotFound, w.Code)

	editor := uuid.New()
	env.resolver.grant(editor, env.project.ID, authz.ActivityEditor)
	w = do(env, http.MethodGet, base, nil, "user", editor)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Admins and staff may list and provision.
	admin := uuid.New()
	env.resolver.grant(admin, env.project.ID, authz.ProjectAdmin)
	w = do(env, http.MethodGet, base, nil, "user", admin)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(env, http.MethodPost, base, ContributorRequest{Email: "x@example.com", ActivityEditor: true}, "user", admin)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestContributorDuplicateConflict(t *testing.T) {
	env := newTestEnv()
	env.contributors.provisionErr = apperrors.ErrDuplicateContributor

	admin := uuid.New()
	env.resolver.grant(admin, env.project.ID, authz.ProjectAdmin)

	w := do(env, http.MethodPost, "/api/v1/organizations/acme/projects/app/contributors",
		ContributorRequest{Email: "x@example.com"}, "user", admin)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestContributorSelfView(t *testing.T) {
	env := newTestEnv()

	editor := uuid.New()
	contributorID := env.resolver.grant(editor, env.project.ID, authz.ActivityEditor)
	env.contributors.rows[contributorID] = &models.ProjectContributor{
		ID: contributorID, ProjectID: env.project.ID, UserID: &editor, ActivityEditor: true,
	}

	path := "/api/v1/organizations/acme/projects/app/contributors/" + contributorID.String()

	// A contributor may view their own row.
	w := do(env, http.MethodGet, path, nil, "user", editor)
	assert.Equal(t, http.StatusOK, w.Code)

	// But never change or delete it.
	w = do(env, http.MethodPut, path, ContributorRequest{Email: "x@example.com", ProjectAdmin: true}, "user", editor)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(env, http.MethodDelete, path, nil, "user", editor)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestActivityCreateDecisions(t *testing.T) {
	env := newTestEnv()
	base := "/api/v1/organizations/acme/projects/app/activity-entries"

	editor := uuid.New()
	contributorID := env.resolver.grant(editor, env.project.ID, authz.ActivityEditor)

	// Staff cannot log time.
	w := do(env, http.MethodPost, base, ActivityRequest{ContributorID: contributorID, Name: "Work"}, "staff", uuid.New())
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Admins cannot either.
	admin := uuid.New()
	adminContributor := env.resolver.grant(admin, env.project.ID, authz.ProjectAdmin)
	w = do(env, http.MethodPost, base, ActivityRequest{ContributorID: adminContributor, Name: "Work"}, "user", admin)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// An editor may log time as themself only.
	w = do(env, http.MethodPost, base, ActivityRequest{ContributorID: contributorID, Name: "Work"}, "user", editor)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(env, http.MethodPost, base, ActivityRequest{ContributorID: adminContributor, Name: "Work"}, "user", editor)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Outsiders cannot tell the project exists.
	w = do(env, http.MethodPost, base, ActivityRequest{ContributorID: contributorID, Name: "Work"}, "user", uuid.New())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestActivityListScope(t *testing.T) {
	env := newTestEnv()
	base := "/api/v1/organizations/acme/projects/app/activity-entries"

	editor := uuid.New()
	editorContributor := env.resolver.grant(editor, env.project.ID, authz.ActivityEditor)
	otherContributor := uuid.New()

	env.activities.entries["mine"] = &models.ActivityEntry{
		ID: uuid.New(), ProjectID: env.project.ID, ContributorID: editorContributor, Name: "Mine", Slug: "mine",
	}
	env.activities.entries["theirs"] = &models.ActivityEntry{
		ID: uuid.New(), ProjectID: env.project.ID, ContributorID: otherContributor, Name: "Theirs", Slug: "theirs",
	}

	// Editor without viewer sees only their own entries.
	w := do(env, http.MethodGet, base, nil, "user", editor)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.ActivityEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "mine", list[0].Slug)

	// Staff see everything.
	w = do(env, http.MethodGet, base, nil, "staff", uuid.New())
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	// Outsiders get 404.
	w = do(env, http.MethodGet, base, nil, "user", uuid.New())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestActivityDetailDecisions(t *testing.T) {
	env := newTestEnv()

	editor := uuid.New()
	editorContributor := env.resolver.grant(editor, env.project.ID, authz.ActivityEditor)
	viewer := uuid.New()
	env.resolver.grant(viewer, env.project.ID, authz.ActivityViewer)

	env.activities.entries["work"] = &models.ActivityEntry{
		ID: uuid.New(), ProjectID: env.project.ID, ContributorID: editorContributor, Name: "Work", Slug: "work",
	}
	path := "/api/v1/organizations/acme/projects/app/activity-entries/work"

	// Owner may update and delete.
	w := do(env, http.MethodPut, path, ActivityRequest{Name: "Edited"}, "user", editor)
	assert.Equal(t, http.StatusOK, w.Code)

	// Viewer may read but not modify another's entry.
	w = do(env, http.MethodGet, path, nil, "user", viewer)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(env, http.MethodPut, path, ActivityRequest{Name: "Hijack"}, "user", viewer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Outsiders cannot tell it exists.
	w = do(env, http.MethodGet, path, nil, "user", uuid.New())
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(env, http.MethodDelete, path, nil, "user", editor)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestValidationMapsTo400(t *testing.T) {
	env := newTestEnv()
	env.activities.createErr = apperrors.ErrProjectMismatch

	editor := uuid.New()
	contributorID := env.resolver.grant(editor, env.project.ID, authz.ActivityEditor)

	w := do(env, http.MethodPost, "/api/v1/organizations/acme/projects/app/activity-entries",
		ActivityRequest{ContributorID: contributorID, Name: "Work"}, "user", editor)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
