package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sweepdesk/sweepdesk/internal/rbac"
	"github.com/sweepdesk/sweepdesk/internal/shared"
)

type mockRepo struct {
	users   map[int64]*User
	created []CreateParams
	nextID  int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[int64]*User), nextID: 1}
}

func (m *mockRepo) GetByID(ctx context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (m *mockRepo) List(ctx context.Context) ([]User, error) {
	var out []User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *mockRepo) UpdateProfile(ctx context.Context, id int64, name, phone string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	u.Name = name
	u.Phone = phone
	out := *u
	return &out, nil
}

func (m *mockRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockRepo) SetActive(ctx context.Context, id int64, active bool) error {
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.IsActive = active
	return nil
}

func (m *mockRepo) Create(ctx context.Context, params CreateParams) (*User, error) {
	m.created = append(m.created, params)
	u := &User{ID: m.nextID, Name: params.Name, Email: params.Email, Phone: params.Phone, IsActive: true}
	m.users[u.ID] = u
	m.nextID++
	out := *u
	return &out, nil
}

var _ Repository = (*mockRepo)(nil)

type stubRoles struct {
	roles map[string]*rbac.Role
}

func (s *stubRoles) ResolveRole(ctx context.Context, nameOrID string) (*rbac.Role, error) {
	r, ok := s.roles[nameOrID]
	if !ok {
		return nil, rbac.ErrNotFound
	}
	return r, nil
}

type recordingAuditor struct {
	logs []shared.AuditLog
}

func (a *recordingAuditor) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newFixture() (*Service, *mockRepo, *recordingAuditor) {
	repo := newMockRepo()
	auditor := &recordingAuditor{}
	roles := &stubRoles{roles: map[string]*rbac.Role{
		rbac.RoleOrg:   {ID: 2, Name: rbac.RoleOrg},
		rbac.RoleEmp:   {ID: 3, Name: rbac.RoleEmp},
		rbac.RoleAdmin: {ID: 4, Name: rbac.RoleAdmin},
	}}
	return NewService(repo, roles, auditor), repo, auditor
}

func TestCreateStaffAcceptsOnlyStaffRoles(t *testing.T) {
	service, repo, _ := newFixture()

	_, err := service.CreateStaff(context.Background(), 1, CreateStaffInput{
		Name: "Crew", Email: "crew@test.local", Password: "s3cret-enough", Role: "Emp",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), repo.created[0].RoleID)

	_, err = service.CreateStaff(context.Background(), 1, CreateStaffInput{
		Name: "Eve", Email: "eve@test.local", Password: "s3cret-enough", Role: "admin",
	})
	require.Error(t, err, "admin accounts must not be creatable through the staff path")

	_, err = service.CreateStaff(context.Background(), 1, CreateStaffInput{
		Name: "Eve", Email: "eve@test.local", Password: "s3cret-enough", Role: "super-admin",
	})
	require.Error(t, err)
}

func TestCreateStaffHashesPassword(t *testing.T) {
	service, repo, _ := newFixture()

	_, err := service.CreateStaff(context.Background(), 1, CreateStaffInput{
		Name: "Crew", Email: "crew@test.local", Password: "s3cret-enough", Role: rbac.RoleOrg,
	})
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-enough", repo.created[0].PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(repo.created[0].PasswordHash), []byte("s3cret-enough")))
}

func TestCreateAdminUsesAdminRole(t *testing.T) {
	service, repo, auditor := newFixture()

	_, err := service.CreateAdmin(context.Background(), 1, CreateStaffInput{
		Name: "Root", Email: "root@test.local", Password: "s3cret-enough",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), repo.created[0].RoleID)
	require.Len(t, auditor.logs, 1)
	assert.Equal(t, "users.create", auditor.logs[0].Action)
}

func TestDeleteAccountIsAudited(t *testing.T) {
	service, repo, auditor := newFixture()
	repo.users[9] = &User{ID: 9, Email: "gone@test.local"}

	require.NoError(t, service.DeleteAccount(context.Background(), 1, 9))
	_, err := repo.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	require.Len(t, auditor.logs, 1)
	assert.Equal(t, "users.delete", auditor.logs[0].Action)
	assert.Equal(t, int64(1), auditor.logs[0].ActorID)
}

func TestSetActiveTogglesAndAudits(t *testing.T) {
	service, repo, auditor := newFixture()
	repo.users[9] = &User{ID: 9, IsActive: true}

	require.NoError(t, service.SetActive(context.Background(), 1, 9, false))
	assert.False(t, repo.users[9].IsActive)
	require.Len(t, auditor.logs, 1)
	assert.Equal(t, map[string]any{"active": false}, auditor.logs[0].Meta)
}
