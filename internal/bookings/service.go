package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sweepdesk/sweepdesk/internal/rbac"
	"github.com/sweepdesk/sweepdesk/internal/shared"
)

// Notifier enqueues booking notifications for background delivery.
type Notifier interface {
	BookingAssigned(ctx context.Context, bookingRef string, employeeID int64) error
}

// Service wraps booking business rules.
type Service struct {
	repo     Repository
	access   rbac.AccessResolver
	notifier Notifier
}

// NewService constructs a Service.
func NewService(repo Repository, access rbac.AccessResolver, notifier Notifier) *Service {
	return &Service{repo: repo, access: access, notifier: notifier}
}

// CreateInput collects booking creation fields.
type CreateInput struct {
	ServiceType string
	Address     string
	ScheduledAt time.Time
	Notes       string
}

// Create registers a new pending booking owned by the caller.
func (s *Service) Create(ctx context.Context, userID int64, in CreateInput) (*Booking, error) {
	return s.repo.Create(ctx, &Booking{
		Reference:   uuid.NewString(),
		UserID:      userID,
		ServiceType: in.ServiceType,
		Address:     in.Address,
		ScheduledAt: in.ScheduledAt,
		Status:      StatusPending,
		Notes:       in.Notes,
	})
}

// Mine returns the caller's own bookings.
func (s *Service) Mine(ctx context.Context, userID int64) ([]Booking, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Assigned returns bookings assigned to the calling employee.
func (s *Service) Assigned(ctx context.Context, employeeID int64) ([]Booking, error) {
	return s.repo.ListByEmployee(ctx, employeeID)
}

// Update edits booking details. End users may only edit their own bookings
// and only while still pending; back-office roles may edit any booking.
func (s *Service) Update(ctx context.Context, actor shared.Identity, ref string, in CreateInput) (*Booking, error) {
	b, err := s.repo.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if actor.Role == rbac.RoleUser {
		if b.UserID != actor.UserID {
			return nil, ErrNotOwner
		}
		if b.Status != StatusPending {
			return nil, ErrInvalidTransition
		}
	}
	if err := s.repo.UpdateDetails(ctx, ref, in.ServiceType, in.Address, in.ScheduledAt, in.Notes); err != nil {
		return nil, err
	}
	return s.repo.GetByReference(ctx, ref)
}

// Assign attaches an employee to a pending or already-assigned booking. The
// target account must freshly resolve to the emp role.
func (s *Service) Assign(ctx context.Context, ref string, employeeID int64) (*Booking, error) {
	b, err := s.repo.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusPending && b.Status != StatusAssigned {
		return nil, ErrInvalidTransition
	}
	access, err := s.access.PrincipalAccess(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if access.RoleName != rbac.RoleEmp {
		return nil, ErrNotEmployee
	}
	if err := s.repo.Assign(ctx, ref, employeeID); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		// Delivery failure must not fail the assignment itself.
		_ = s.notifier.BookingAssigned(ctx, ref, employeeID)
	}
	return s.repo.GetByReference(ctx, ref)
}

// AttachPhoto records a before or after photo from the assigned employee.
// A before photo moves the booking to IN_PROGRESS, an after photo to
// COMPLETED.
func (s *Service) AttachPhoto(ctx context.Context, actor shared.Identity, ref string, after bool, url string) (*Booking, error) {
	b, err := s.repo.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if b.EmployeeID == nil || *b.EmployeeID != actor.UserID {
		return nil, ErrNotAssignee
	}
	var next Status
	if after {
		if b.Status != StatusInProgress {
			return nil, ErrInvalidTransition
		}
		next = StatusCompleted
	} else {
		if b.Status != StatusAssigned {
			return nil, ErrInvalidTransition
		}
		next = StatusInProgress
	}
	if err := s.repo.SetPhoto(ctx, ref, after, url, next); err != nil {
		return nil, err
	}
	return s.repo.GetByReference(ctx, ref)
}
