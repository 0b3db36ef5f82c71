package handlers

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tempus-hq/timetracker-engine/pkg/apperrors"
	"github.com/tempus-hq/timetracker-engine/pkg/auth"
	"github.com/tempus-hq/timetracker-engine/pkg/authz"
	"github.com/tempus-hq/timetracker-engine/pkg/models"
	"github.com/tempus-hq/timetracker-engine/pkg/services"
)

// stubTokens validates any bearer token of the form "user:<uuid>" or
// "staff:<uuid>", so each test request picks its own principal.
type stubTokens struct{}

func (stubTokens) ValidateToken(tokenString string) (*auth.Claims, error) {
	staff := false
	id := tokenString
	if len(tokenString) > 6 && tokenString[:6] == "staff:" {
		staff = true
		id = tokenString[6:]
	} else if len(tokenString) > 5 && tokenString[:5] == "user:" {
		id = tokenString[5:]
	}
	return &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: id},
		Staff:            staff,
	}, nil
}

func (stubTokens) Close() {}

func bearer(r *http.Request, prefix string, id uuid.UUID) {
	r.Header.Set("Authorization", "Bearer "+prefix+":"+id.String())
}

// fakeResolver resolves roles from a static (user, project) table.
type fakeResolver struct {
	roles map[[2]uuid.UUID]authz.Role
}

func (f *fakeResolver) grant(userID, projectID uuid.UUID, caps authz.Capability) uuid.UUID {
	if f.roles == nil {
		f.roles = map[[2]uuid.UUID]authz.Role{}
	}
	contributorID := uuid.New()
	f.roles[[2]uuid.UUID{userID, projectID}] = authz.NewRole(contributorID, projectID, caps)
	return contributorID
}

func (f *fakeResolver) Resolve(ctx context.Context, userID, projectID uuid.UUID) (authz.Role, error) {
	role, ok := f.roles[[2]uuid.UUID{userID, projectID}]
	if !ok {
		return authz.Role{}, apperrors.ErrNotFound
	}
	return role, nil
}

type fakeMembers struct {
	members map[uuid.UUID][]uuid.UUID
}

func (f *fakeMembers) IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	for _, id := range f.members[orgID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

// In-memory service fakes. They return canned data; authorization behavior
// under test comes from the real authz.Authorizer above them.

type fakeOrgService struct {
	orgs        map[string]*models.Organization
	memberUsers []*models.User
	removed     []uuid.UUID
}

func (f *fakeOrgService) Create(ctx context.Context, name string, contactID *uuid.UUID) (*models.Organization, error) {
	org := &models.Organization{ID: uuid.New(), Name: name, Slug: "new-org", ContactID: contactID}
	return org, nil
}

func (f *fakeOrgService) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	if org, ok := f.orgs[slug]; ok {
		return org, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeOrgService) List(ctx context.Context, scope authz.OrganizationScope) ([]*models.Organization, error) {
	out := []*models.Organization{}
	for _, org := range f.orgs {
		if scope.All || org.IsContact(scope.ContactID) {
			out = append(out, org)
		}
	}
	return out, nil
}

func (f *fakeOrgService) Update(ctx context.Context, org *models.Organization, name string, contactID *uuid.UUID) (*models.Organization, error) {
	org.Name = name
	org.ContactID = contactID
	return org, nil
}

func (f *fakeOrgService) Delete(ctx context.Context, id uuid.UUID) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeOrgService) ListMembers(ctx context.Context, orgID uuid.UUID) ([]*models.User, error) {
	return f.memberUsers, nil
}

func (f *fakeOrgService) GetMember(ctx context.Context, orgID, userID uuid.UUID) (*models.User, error) {
	return &models.User{ID: userID}, nil
}

func (f *fakeOrgService) AddMember(ctx context.Context, orgID, userID uuid.UUID) error {
	return nil
}

func (f *fakeOrgService) RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error {
	f.removed = append(f.removed, userID)
	return nil
}

type fakeProjectService struct {
	projects map[string]*models.Project
	visible  []*models.Project
}

func (f *fakeProjectService) Create(ctx context.Context, org *models.Organization, creatorID uuid.UUID, name, description string) (*models.Project, error) {
	return &models.Project{ID: uuid.New(), OrganizationID: org.ID, Name: name, Slug: "new-project"}, nil
}

func (f *fakeProjectService) GetBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*models.Project, error) {
	if p, ok := f.projects[slug]; ok && p.OrganizationID == orgID {
		return p, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeProjectService) List(ctx context.Context, scope authz.ProjectScope) ([]*models.Project, error) {
	if scope.All {
		return f.visible, nil
	}
	return []*models.Project{}, nil
}

func (f *fakeProjectService) ListByOrganization(ctx context.Context, orgID uuid.UUID, scope authz.ProjectScope) ([]*models.Project, error) {
	return f.List(ctx, scope)
}

func (f *fakeProjectService) Update(ctx context.Context, project *models.Project, name, description string) (*models.Project, error) {
	project.Name = name
	project.Description = description
	return project, nil
}

func (f *fakeProjectService) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

type fakeContributorService struct {
	rows         map[uuid.UUID]*models.ProjectContributor
	provisionErr error
}

func (f *fakeContributorService) Provision(ctx context.Context, orgID, projectID uuid.UUID, in services.ProvisionInput) (*models.ProjectContributor, error) {
	if f.provisionErr != nil {
		return nil, f.provisionErr
	}
	userID := uuid.New()
	return &models.ProjectContributor{
		ID: uuid.New(), ProjectID: projectID, UserID: &userID,
		ProjectAdmin: in.ProjectAdmin, ActivityViewer: in.ActivityViewer, ActivityEditor: in.ActivityEditor,
	}, nil
}

func (f *fakeContributorService) Update(ctx context.Context, orgID uuid.UUID, contributor *models.ProjectContributor, in services.ProvisionInput) (*models.ProjectContributor, error) {
	contributor.ProjectAdmin = in.ProjectAdmin
	contributor.ActivityViewer = in.ActivityViewer
	contributor.ActivityEditor = in.ActivityEditor
	return contributor, nil
}

func (f *fakeContributorService) GetByProjectAndID(ctx context.Context, projectID, id uuid.UUID) (*models.ProjectContributor, error) {
	if c, ok := f.rows[id]; ok && c.ProjectID == projectID {
		return c, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeContributorService) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectContributor, error) {
	out := []*models.ProjectContributor{}
	for _, c := range f.rows {
		if c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeContributorService) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

type fakeActivityService struct {
	entries   map[string]*models.ActivityEntry
	createErr error
}

func (f *fakeActivityService) Create(ctx context.Context, projectID, contributorID uuid.UUID, in services.ActivityInput) (*models.ActivityEntry, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.ActivityEntry{
		ID: uuid.New(), ProjectID: projectID, ContributorID: contributorID,
		Name: in.Name, Slug: "new-entry", Minutes: in.Minutes,
	}, nil
}

func (f *fakeActivityService) GetBySlug(ctx context.Context, projectID uuid.UUID, slug string) (*models.ActivityEntry, error) {
	if e, ok := f.entries[slug]; ok && e.ProjectID == projectID {
		return e, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeActivityService) ListByProject(ctx context.Context, projectID uuid.UUID, scope authz.ActivityScope) ([]*models.ActivityEntry, error) {
	out := []*models.ActivityEntry{}
	for _, e := range f.entries {
		if e.ProjectID != projectID {
			continue
		}
		if scope.All || e.ContributorID == scope.ContributorID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeActivityService) Update(ctx context.Context, entry *models.ActivityEntry, in services.ActivityInput) (*models.ActivityEntry, error) {
	entry.Name = in.Name
	return entry, nil
}

func (f *fakeActivityService) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

// testEnv wires the handlers onto a mux with the real authorizer and the
// fakes above.
type testEnv struct {
	mux          *http.ServeMux
	resolver     *fakeResolver
	members      *fakeMembers
	orgs         *fakeOrgService
	projects     *fakeProjectService
	contributors *fakeContributorService
	activities   *fakeActivityService

	org     *models.Organization
	project *models.Project
	contact uuid.UUID
}

func newTestEnv() *testEnv {
	contact := uuid.New()
	org := &models.Organization{ID: uuid.New(), Name: "Acme", Slug: "acme", ContactID: &contact}
	project := &models.Project{ID: uuid.New(), OrganizationID: org.ID, Name: "App", Slug: "app"}

	env := &testEnv{
		mux:      http.NewServeMux(),
		resolver: &fakeResolver{},
		members:  &fakeMembers{members: map[uuid.UUID][]uuid.UUID{org.ID: {contact}}},
		orgs: &fakeOrgService{
			orgs: map[string]*models.Organization{"acme": org},
		},
		projects: &fakeProjectService{
			projects: map[string]*models.Project{"app": project},
			visible:  []*models.Project{project},
		},
		contributors: &fakeContributorService{rows: map[uuid.UUID]*models.ProjectContributor{}},
		activities:   &fakeActivityService{entries: map[string]*models.ActivityEntry{}},
		org:          org,
		project:      project,
		contact:      contact,
	}

	logger := zap.NewNop()
	authorizer := authz.NewAuthorizer(env.resolver, env.members)
	mw := auth.NewMiddleware(auth.NewAuthService(stubTokens{}, logger), logger)

	NewOrganizationsHandler(env.orgs, authorizer, logger).RegisterRoutes(env.mux, mw)
	NewMembersHandler(env.orgs, authorizer, logger).RegisterRoutes(env.mux, mw)
	NewProjectsHandler(env.orgs, env.projects, authorizer, logger).RegisterRoutes(env.mux, mw)
	NewContributorsHandler(env.orgs, env.projects, env.contributors, authorizer, logger).RegisterRoutes(env.mux, mw)
	NewActivitiesHandler(env.orgs, env.projects, env.activities, authorizer, logger).RegisterRoutes(env.mux, mw)
	NewHealthHandler("test", logger).RegisterRoutes(env.mux)

	return env
}
