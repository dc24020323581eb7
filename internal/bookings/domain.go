// Package bookings manages service-visit bookings from creation through
// assignment and completion.
package bookings

import (
	"errors"
	"time"
)

// Status is the booking lifecycle state.
type Status string

// Booking lifecycle: PENDING → ASSIGNED → IN_PROGRESS → COMPLETED, with
// CANCELLED reachable before work starts.
const (
	StatusPending    Status = "PENDING"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

var (
	// ErrInvalidTransition indicates a lifecycle move the current status
	// does not permit.
	ErrInvalidTransition = errors.New("bookings: invalid status transition")
	// ErrNotOwner indicates the caller does not own the booking.
	ErrNotOwner = errors.New("bookings: not the booking owner")
	// ErrNotAssignee indicates the caller is not the assigned employee.
	ErrNotAssignee = errors.New("bookings: not the assigned employee")
	// ErrNotEmployee indicates an assignment target without the emp role.
	ErrNotEmployee = errors.New("bookings: assignee is not an employee")
)

// Booking is one scheduled service visit.
type Booking struct {
	ID          int64     `json:"id"`
	Reference   string    `json:"reference"`
	UserID      int64     `json:"user_id"`
	EmployeeID  *int64    `json:"employee_id,omitempty"`
	ServiceType string    `json:"service_type"`
	Address     string    `json:"address"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      Status    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	BeforePhoto string    `json:"before_photo,omitempty"`
	AfterPhoto  string    `json:"after_photo,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
