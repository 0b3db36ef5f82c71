package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/tempus-hq/timetracker-engine/pkg/apperrors"
	"github.com/tempus-hq/timetracker-engine/pkg/authz"
	"github.com/tempus-hq/timetracker-engine/pkg/models"
)

// passTx runs the function directly. Services compose repository calls
// through TxRunner; tests only need the composition, not a database.
type passTx struct {
	calls int
}

func (t *passTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

// failTx simulates a transaction whose body fails partway.
type failTx struct{}

func (failTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockUserRepo struct {
	byEmail   map[string]*models.User
	created   []*models.User
	activated []uuid.UUID
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byEmail: map[string]*models.User{}}
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.created = append(m.created, user)
	m.byEmail[user.Email] = user
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockUserRepo) Activate(ctx context.Context, id uuid.UUID) error {
	m.activated = append(m.activated, id)
	for _, u := range m.byEmail {
		if u.ID == id {
			u.IsActive = true
			return nil
		}
	}
	return apperrors.ErrNotFound
}

type mockOrgRepo struct {
	orgs          map[uuid.UUID]*models.Organization
	members       map[uuid.UUID][]uuid.UUID
	memberAdds    int
	memberRemoves int
	removeErr     error
	slugs         map[string]bool
}

func newMockOrgRepo() *mockOrgRepo {
	return &mockOrgRepo{
		orgs:    map[uuid.UUID]*models.Organization{},
		members: map[uuid.UUID][]uuid.UUID{},
		slugs:   map[string]bool{},
	}
}

func (m *mockOrgRepo) Create(ctx context.Context, org *models.Organization) error {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	m.orgs[org.ID] = org
	m.slugs[org.Slug] = true
	return nil
}

func (m *mockOrgRepo) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	for _, o := range m.orgs {
		if o.Slug == slug {
			return o, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockOrgRepo) List(ctx context.Context, scope authz.OrganizationScope) ([]*models.Organization, error) {
	out := []*models.Organization{}
	for _, o := range m.orgs {
		if scope.All || o.IsContact(scope.ContactID) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrgRepo) Update(ctx context.Context, org *models.Organization) error {
	if _, ok := m.orgs[org.ID]; !ok {
		return apperrors.ErrNotFound
	}
	m.orgs[org.ID] = org
	return nil
}

func (m *mockOrgRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.orgs[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.orgs, id)
	return nil
}

func (m *mockOrgRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	return m.slugs[slug], nil
}

func (m *mockOrgRepo) AddMember(ctx context.Context, orgID, userID uuid.UUID) error {
	m.memberAdds++
	for _, id := range m.members[orgID] {
		if id == userID {
			return nil
		}
	}
	m.members[orgID] = append(m.members[orgID], userID)
	return nil
}

func (m *mockOrgRepo) RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.memberRemoves++
	ids := m.members[orgID]
	for i, id := range ids {
		if id == userID {
			m.members[orgID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockOrgRepo) ListMembers(ctx context.Context, orgID uuid.UUID) ([]*models.User, error) {
	return []*models.User{}, nil
}

func (m *mockOrgRepo) GetMember(ctx context.Context, orgID, userID uuid.UUID) (*models.User, error) {
	for _, id := range m.members[orgID] {
		if id == userID {
			return &models.User{ID: id}, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockOrgRepo) IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	for _, id := range m.members[orgID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

type mockProjectRepo struct {
	projects  map[uuid.UUID]*models.Project
	slugs     map[string]bool
	createErr error
}

func newMockProjectRepo() *mockProjectRepo {
	return &mockProjectRepo{projects: map[uuid.UUID]*models.Project{}, slugs: map[string]bool{}}
}

func (m *mockProjectRepo) Create(ctx context.Context, project *models.Project) error {
	if m.createErr != nil {
		return m.createErr
	}
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	m.projects[project.ID] = project
	m.slugs[project.Slug] = true
	return nil
}

func (m *mockProjectRepo) GetBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*models.Project, error) {
	for _, p := range m.projects {
		if p.OrganizationID == orgID && p.Slug == slug {
			return p, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockProjectRepo) List(ctx context.Context, scope authz.ProjectScope) ([]*models.Project, error) {
	return []*models.Project{}, nil
}

func (m *mockProjectRepo) ListByOrganization(ctx context.Context, orgID uuid.UUID, scope authz.ProjectScope) ([]*models.Project, error) {
	return []*models.Project{}, nil
}

func (m *mockProjectRepo) Update(ctx context.Context, project *models.Project) error {
	if _, ok := m.projects[project.ID]; !ok {
		return apperrors.ErrNotFound
	}
	return nil
}

func (m *mockProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.projects[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *mockProjectRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	return m.slugs[slug], nil
}

type mockContributorRepo struct {
	rows           map[uuid.UUID]*models.ProjectContributor
	createErr      error
	cascadeDeletes []uuid.UUID
	cascadeErr     error
}

func newMockContributorRepo() *mockContributorRepo {
	return &mockContributorRepo{rows: map[uuid.UUID]*models.ProjectContributor{}}
}

func (m *mockContributorRepo) Create(ctx context.Context, c *models.ProjectContributor) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.rows {
		if existing.ProjectID == c.ProjectID && existing.UserID != nil && c.UserID != nil && *existing.UserID == *c.UserID {
			return apperrors.ErrDuplicateContributor
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.rows[c.ID] = c
	return nil
}

func (m *mockContributorRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ProjectContributor, error) {
	if c, ok := m.rows[id]; ok {
		return c, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockContributorRepo) GetByProjectAndID(ctx context.Context, projectID, id uuid.UUID) (*models.ProjectContributor, error) {
	if c, ok := m.rows[id]; ok && c.ProjectID == projectID {
		return c, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockContributorRepo) GetByUserAndProject(ctx context.Context, userID, projectID uuid.UUID) (*models.ProjectContributor, error) {
	for _, c := range m.rows {
		if c.ProjectID == projectID && c.IsUser(userID) {
			return c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockContributorRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectContributor, error) {
	out := []*models.ProjectContributor{}
	for _, c := range m.rows {
		if c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockContributorRepo) Update(ctx context.Context, c *models.ProjectContributor) error {
	if _, ok := m.rows[c.ID]; !ok {
		return apperrors.ErrNotFound
	}
	m.rows[c.ID] = c
	return nil
}

func (m *mockContributorRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.rows[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *mockContributorRepo) DeleteByUserAndOrganization(ctx context.Context, userID, orgID uuid.UUID) (int64, error) {
	if m.cascadeErr != nil {
		return 0, m.cascadeErr
	}
	m.cascadeDeletes = append(m.cascadeDeletes, userID)
	var n int64
	for id, c := range m.rows {
		if c.IsUser(userID) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

type mockInvitationRepo struct {
	enqueued []*models.Invitation
	pending  []*models.Invitation
	sent     []uuid.UUID
	failed   []uuid.UUID
	byToken  map[string]*models.Invitation
}

func newMockInvitationRepo() *mockInvitationRepo {
	return &mockInvitationRepo{byToken: map[string]*models.Invitation{}}
}

func (m *mockInvitationRepo) Enqueue(ctx context.Context, inv *models.Invitation) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	m.enqueued = append(m.enqueued, inv)
	m.byToken[inv.Token] = inv
	return nil
}

func (m *mockInvitationRepo) ClaimPending(ctx context.Context, limit int) ([]*models.Invitation, error) {
	if len(m.pending) > limit {
		return m.pending[:limit], nil
	}
	return m.pending, nil
}

func (m *mockInvitationRepo) MarkSent(ctx context.Context, id uuid.UUID) error {
	m.sent = append(m.sent, id)
	return nil
}

func (m *mockInvitationRepo) MarkFailed(ctx context.Context, id uuid.UUID, maxAttempts int) error {
	m.failed = append(m.failed, id)
	return nil
}

func (m *mockInvitationRepo) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	if inv, ok := m.byToken[token]; ok {
		return inv, nil
	}
	return nil, apperrors.ErrNotFound
}

type mockActivityRepo struct {
	entries map[uuid.UUID]*models.ActivityEntry
	slugs   map[string]bool
}

func newMockActivityRepo() *mockActivityRepo {
	return &mockActivityRepo{entries: map[uuid.UUID]*models.ActivityEntry{}, slugs: map[string]bool{}}
}

func (m *mockActivityRepo) Create(ctx context.Context, entry *models.ActivityEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	m.entries[entry.ID] = entry
	m.slugs[entry.Slug] = true
	return nil
}

func (m *mockActivityRepo) GetBySlug(ctx context.Context, projectID uuid.UUID, slug string) (*models.ActivityEntry, error) {
	for _, e := range m.entries {
		if e.ProjectID == projectID && e.Slug == slug {
			return e, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockActivityRepo) ListByProject(ctx context.Context, projectID uuid.UUID, scope authz.ActivityScope) ([]*models.ActivityEntry, error) {
	out := []*models.ActivityEntry{}
	for _, e := range m.entries {
		if e.ProjectID != projectID {
			continue
		}
		if scope.All || e.ContributorID == scope.ContributorID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockActivityRepo) Update(ctx context.Context, entry *models.ActivityEntry) error {
	if _, ok := m.entries[entry.ID]; !ok {
		return apperrors.ErrNotFound
	}
	return nil
}

func (m *mockActivityRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.entries[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *mockActivityRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	return m.slugs[slug], nil
}
