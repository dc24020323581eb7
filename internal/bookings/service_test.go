package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweepdesk/sweepdesk/internal/rbac"
	"github.com/sweepdesk/sweepdesk/internal/shared"
)

type mockRepository struct {
	byRef  map[string]*Booking
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{byRef: make(map[string]*Booking), nextID: 1}
}

func (m *mockRepository) Create(ctx context.Context, b *Booking) (*Booking, error) {
	b.ID = m.nextID
	m.nextID++
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	m.byRef[b.Reference] = b
	out := *b
	return &out, nil
}

func (m *mockRepository) GetByReference(ctx context.Context, ref string) (*Booking, error) {
	b, ok := m.byRef[ref]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *b
	return &out, nil
}

func (m *mockRepository) ListByUser(ctx context.Context, userID int64) ([]Booking, error) {
	var out []Booking
	for _, b := range m.byRef {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockRepository) ListByEmployee(ctx context.Context, employeeID int64) ([]Booking, error) {
	var out []Booking
	for _, b := range m.byRef {
		if b.EmployeeID != nil && *b.EmployeeID == employeeID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockRepository) UpdateDetails(ctx context.Context, ref string, serviceType, address string, scheduledAt time.Time, notes string) error {
	b, ok := m.byRef[ref]
	if !ok {
		return shared.ErrNotFound
	}
	b.ServiceType = serviceType
	b.Address = address
	b.ScheduledAt = scheduledAt
	b.Notes = notes
	return nil
}

func (m *mockRepository) Assign(ctx context.Context, ref string, employeeID int64) error {
	b, ok := m.byRef[ref]
	if !ok {
		return shared.ErrNotFound
	}
	b.EmployeeID = &employeeID
	b.Status = StatusAssigned
	return nil
}

func (m *mockRepository) SetStatus(ctx context.Context, ref string, status Status) error {
	b, ok := m.byRef[ref]
	if !ok {
		return shared.ErrNotFound
	}
	b.Status = status
	return nil
}

func (m *mockRepository) SetPhoto(ctx context.Context, ref string, after bool, url string, status Status) error {
	b, ok := m.byRef[ref]
	if !ok {
		return shared.ErrNotFound
	}
	if after {
		b.AfterPhoto = url
	} else {
		b.BeforePhoto = url
	}
	b.Status = status
	return nil
}

var _ Repository = (*mockRepository)(nil)

type roleResolver struct {
	roles map[int64]string
}

func (r *roleResolver) PrincipalAccess(ctx context.Context, userID int64) (*rbac.Access, error) {
	role, ok := r.roles[userID]
	if !ok {
		return nil, rbac.ErrNotFound
	}
	return &rbac.Access{UserID: userID, RoleName: role}, nil
}

type recordingNotifier struct {
	refs []string
	ids  []int64
	err  error
}

func (n *recordingNotifier) BookingAssigned(ctx context.Context, ref string, employeeID int64) error {
	n.refs = append(n.refs, ref)
	n.ids = append(n.ids, employeeID)
	return n.err
}

func newFixture() (*Service, *mockRepository, *recordingNotifier) {
	repo := newMockRepository()
	notifier := &recordingNotifier{}
	access := &roleResolver{roles: map[int64]string{
		10: rbac.RoleUser,
		20: rbac.RoleEmp,
		30: rbac.RoleAdmin,
	}}
	return NewService(repo, access, notifier), repo, notifier
}

func createPending(t *testing.T, service *Service) *Booking {
	t.Helper()
	b, err := service.Create(context.Background(), 10, CreateInput{
		ServiceType: "deep-clean",
		Address:     "1 Main St",
		ScheduledAt: time.Now().Add(48 * time.Hour),
	})
	require.NoError(t, err)
	return b
}

func TestCreateStartsPendingWithReference(t *testing.T) {
	service, _, _ := newFixture()
	b := createPending(t, service)

	assert.Equal(t, StatusPending, b.Status)
	assert.NotEmpty(t, b.Reference)
	assert.Equal(t, int64(10), b.UserID)
}

func TestOwnerUpdatesPendingBooking(t *testing.T) {
	service, _, _ := newFixture()
	b := createPending(t, service)

	updated, err := service.Update(context.Background(),
		shared.Identity{UserID: 10, Role: rbac.RoleUser}, b.Reference,
		CreateInput{ServiceType: "windows", Address: "1 Main St", ScheduledAt: b.ScheduledAt})
	require.NoError(t, err)
	assert.Equal(t, "windows", updated.ServiceType)
}

func TestNonOwnerCannotUpdate(t *testing.T) {
	service, _, _ := newFixture()
	b := createPending(t, service)

	_, err := service.Update(context.Background(),
		shared.Identity{UserID: 99, Role: rbac.RoleUser}, b.Reference,
		CreateInput{ServiceType: "windows"})
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestOwnerCannotUpdateAfterAssignment(t *testing.T) {
	service, _, _ := newFixture()
	b := createPending(t, service)
	_, err := service.Assign(context.Background(), b.Reference, 20)
	require.NoError(t, err)

	_, err = service.Update(context.Background(),
		shared.Identity{UserID: 10, Role: rbac.RoleUser}, b.Reference,
		CreateInput{ServiceType: "windows"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAssignRequiresEmployeeRole(t *testing.T) {
	service, _, _ := newFixture()
	b := createPending(t, service)

	_, err := service.Assign(context.Background(), b.Reference, 30)
	assert.ErrorIs(t, err, ErrNotEmployee)

	_, err = service.Assign(context.Background(), b.Reference, 404)
	assert.ErrorIs(t, err, rbac.ErrNotFound)
}

func TestAssignNotifiesAndSurvivesNotifierFailure(t *testing.T) {
	service, _, notifier := newFixture()
	notifier.err = assert.AnError
	b := createPending(t, service)

	assigned, err := service.Assign(context.Background(), b.Reference, 20)
	require.NoError(t, err, "notifier failure must not fail the assignment")
	assert.Equal(t, StatusAssigned, assigned.Status)
	require.Len(t, notifier.refs, 1)
	assert.Equal(t, b.Reference, notifier.refs[0])
	assert.Equal(t, int64(20), notifier.ids[0])
}

func TestAssignRejectsLateTransitions(t *testing.T) {
	service, repo, _ := newFixture()
	b := createPending(t, service)
	require.NoError(t, repo.SetStatus(context.Background(), b.Reference, StatusCompleted))

	_, err := service.Assign(context.Background(), b.Reference, 20)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPhotoLifecycle(t *testing.T) {
	service, _, _ := newFixture()
	b := createPending(t, service)
	_, err := service.Assign(context.Background(), b.Reference, 20)
	require.NoError(t, err)
	emp := shared.Identity{UserID: 20, Role: rbac.RoleEmp}

	// After photo before the work starts is out of order.
	_, err = service.AttachPhoto(context.Background(), emp, b.Reference, true, "https://cdn.test/after.jpg")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	inProgress, err := service.AttachPhoto(context.Background(), emp, b.Reference, false, "https://cdn.test/before.jpg")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, inProgress.Status)

	done, err := service.AttachPhoto(context.Background(), emp, b.Reference, true, "https://cdn.test/after.jpg")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.NotEmpty(t, done.BeforePhoto)
	assert.NotEmpty(t, done.AfterPhoto)
}

func TestPhotoOnlyByAssignee(t *testing.T) {
	service, _, _ := newFixture()
	b := createPending(t, service)
	_, err := service.Assign(context.Background(), b.Reference, 20)
	require.NoError(t, err)

	_, err = service.AttachPhoto(context.Background(),
		shared.Identity{UserID: 21, Role: rbac.RoleEmp}, b.Reference, false, "https://cdn.test/x.jpg")
	assert.ErrorIs(t, err, ErrNotAssignee)
}
