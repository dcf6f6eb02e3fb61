package orgs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vecino-erp/vecino-erp/internal/rbac"
	"github.com/vecino-erp/vecino-erp/internal/shared"
)

type memberKey struct {
	org  uuid.UUID
	user uuid.UUID
}

type memoryOrgsRepo struct {
	orgs    map[uuid.UUID]Organization
	members map[memberKey]Member
}

func newMemoryOrgsRepo() *memoryOrgsRepo {
	return &memoryOrgsRepo{
		orgs:    make(map[uuid.UUID]Organization),
		members: make(map[memberKey]Member),
	}
}

func (m *memoryOrgsRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]Organization, error) {
	var out []Organization
	for key, member := range m.members {
		if member.UserID == userID {
			out = append(out, m.orgs[key.org])
		}
	}
	return out, nil
}

func (m *memoryOrgsRepo) Get(_ context.Context, orgID uuid.UUID) (Organization, error) {
	org, ok := m.orgs[orgID]
	if !ok {
		return Organization{}, shared.ErrNotFound
	}
	return org, nil
}

func (m *memoryOrgsRepo) Create(_ context.Context, name string, ownerID uuid.UUID) (Organization, error) {
	org := Organization{ID: uuid.New(), Name: name}
	m.orgs[org.ID] = org
	m.members[memberKey{org.ID, ownerID}] = Member{OrgID: org.ID, UserID: ownerID, Role: rbac.RoleAdmin}
	return org, nil
}

func (m *memoryOrgsRepo) GetMembership(_ context.Context, orgID, userID uuid.UUID) (Member, error) {
	member, ok := m.members[memberKey{orgID, userID}]
	if !ok {
		return Member{}, shared.ErrNotFound
	}
	return member, nil
}

func (m *memoryOrgsRepo) ListMembers(_ context.Context, orgID uuid.UUID) ([]Member, error) {
	var out []Member
	for key, member := range m.members {
		if key.org == orgID {
			out = append(out, member)
		}
	}
	return out, nil
}

func (m *memoryOrgsRepo) UpsertMember(_ context.Context, orgID, userID uuid.UUID, role rbac.Role) (Member, error) {
	member := Member{OrgID: orgID, UserID: userID, Role: role}
	m.members[memberKey{orgID, userID}] = member
	return member, nil
}

func (m *memoryOrgsRepo) RemoveMember(_ context.Context, orgID, userID uuid.UUID) error {
	key := memberKey{orgID, userID}
	if _, ok := m.members[key]; !ok {
		return shared.ErrNotFound
	}
	delete(m.members, key)
	return nil
}

func TestCreateOrganizationSeedsAdmin(t *testing.T) {
	repo := newMemoryOrgsRepo()
	svc := NewService(repo, nil)
	owner := uuid.New()

	org, err := svc.Create(context.Background(), "Residencial El Roble", owner)
	require.NoError(t, err)

	member, err := svc.Membership(context.Background(), org.ID, owner)
	require.NoError(t, err)
	require.Equal(t, rbac.RoleAdmin, member.Role)
}

func TestCreateOrganizationRequiresName(t *testing.T) {
	svc := NewService(newMemoryOrgsRepo(), nil)
	_, err := svc.Create(context.Background(), "   ", uuid.New())
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSelectRejectsNonMember(t *testing.T) {
	repo := newMemoryOrgsRepo()
	svc := NewService(repo, nil)
	org, err := svc.Create(context.Background(), "Condominio Luna", uuid.New())
	require.NoError(t, err)

	_, err = svc.Select(context.Background(), org.ID, uuid.New())
	require.ErrorIs(t, err, shared.ErrTenantScope)
}

func TestAssignRoleRejectsUnknownRole(t *testing.T) {
	repo := newMemoryOrgsRepo()
	svc := NewService(repo, nil)
	owner := uuid.New()
	org, err := svc.Create(context.Background(), "Condominio Luna", owner)
	require.NoError(t, err)

	rc := shared.RequestContext{UserID: owner, OrgID: org.ID, Role: string(rbac.RoleAdmin)}
	_, err = svc.AssignRole(context.Background(), rc, uuid.New(), rbac.Role("superuser"))
	require.ErrorIs(t, err, shared.ErrValidation)

	member, err := svc.AssignRole(context.Background(), rc, uuid.New(), rbac.RoleTesorero)
	require.NoError(t, err)
	require.Equal(t, rbac.RoleTesorero, member.Role)
}

func TestRemoveMemberCannotRemoveSelf(t *testing.T) {
	repo := newMemoryOrgsRepo()
	svc := NewService(repo, nil)
	owner := uuid.New()
	org, err := svc.Create(context.Background(), "Condominio Luna", owner)
	require.NoError(t, err)

	rc := shared.RequestContext{UserID: owner, OrgID: org.ID, Role: string(rbac.RoleAdmin)}
	err = svc.RemoveMember(context.Background(), rc, owner)
	require.ErrorIs(t, err, shared.ErrValidation)

	other := uuid.New()
	_, err = svc.AssignRole(context.Background(), rc, other, rbac.RoleLector)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveMember(context.Background(), rc, other))
	err = svc.RemoveMember(context.Background(), rc, other)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRequireOrgInjectsRequestContext(t *testing.T) {
	repo := newMemoryOrgsRepo()
	svc := NewService(repo, nil)
	owner := uuid.New()
	org, err := svc.Create(context.Background(), "Condominio Luna", owner)
	require.NoError(t, err)

	mw := Middleware{Service: svc}

	var captured shared.RequestContext
	handler := mw.RequireOrg(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, ok := shared.RequestContextFromContext(r.Context())
		require.True(t, ok)
		captured = rc
		w.WriteHeader(http.StatusOK)
	}))

	sess := &shared.Session{}
	sess.SetUser(owner.String())
	sess.SetOrg(org.ID.String())

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, owner, captured.UserID)
	require.Equal(t, org.ID, captured.OrgID)
	require.Equal(t, string(rbac.RoleAdmin), captured.Role)
}

func TestRequireOrgWithoutLoginIsUnauthorized(t *testing.T) {
	mw := Middleware{Service: NewService(newMemoryOrgsRepo(), nil)}
	handler := mw.RequireOrg(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), &shared.Session{}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireOrgWithoutSelectionIsForbidden(t *testing.T) {
	mw := Middleware{Service: NewService(newMemoryOrgsRepo(), nil)}
	handler := mw.RequireOrg(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	sess := &shared.Session{}
	sess.SetUser(uuid.NewString())

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireOrgRevalidatesMembership(t *testing.T) {
	repo := newMemoryOrgsRepo()
	svc := NewService(repo, nil)
	owner := uuid.New()
	org, err := svc.Create(context.Background(), "Condominio Luna", owner)
	require.NoError(t, err)

	intruder := uuid.New()
	mw := Middleware{Service: svc}
	handler := mw.RequireOrg(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	sess := &shared.Session{}
	sess.SetUser(intruder.String())
	sess.SetOrg(org.ID.String())

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Empty(t, sess.Org())
}
