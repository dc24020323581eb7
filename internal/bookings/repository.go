package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sweepdesk/sweepdesk/internal/shared"
)

// Repository defines persistence operations for bookings.
type Repository interface {
	Create(ctx context.Context, b *Booking) (*Booking, error)
	GetByReference(ctx context.Context, ref string) (*Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]Booking, error)
	ListByEmployee(ctx context.Context, employeeID int64) ([]Booking, error)
	UpdateDetails(ctx context.Context, ref string, serviceType, address string, scheduledAt time.Time, notes string) error
	Assign(ctx context.Context, ref string, employeeID int64) error
	SetStatus(ctx context.Context, ref string, status Status) error
	SetPhoto(ctx context.Context, ref string, after bool, url string, status Status) error
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const bookingColumns = `id, reference, user_id, employee_id, service_type, address,
	scheduled_at, status, notes, before_photo, after_photo, created_at, updated_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.Reference, &b.UserID, &b.EmployeeID, &b.ServiceType,
		&b.Address, &b.ScheduledAt, &b.Status, &b.Notes, &b.BeforePhoto,
		&b.AfterPhoto, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Create inserts a new booking.
func (r *PGRepository) Create(ctx context.Context, b *Booking) (*Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx, `
		INSERT INTO bookings (reference, user_id, service_type, address, scheduled_at, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING `+bookingColumns,
		b.Reference, b.UserID, b.ServiceType, b.Address, b.ScheduledAt, b.Status, b.Notes))
}

// GetByReference fetches a booking by its public reference.
func (r *PGRepository) GetByReference(ctx context.Context, ref string) (*Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE reference = $1`, ref))
}

func (r *PGRepository) list(ctx context.Context, query string, arg any) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.Reference, &b.UserID, &b.EmployeeID, &b.ServiceType,
			&b.Address, &b.ScheduledAt, &b.Status, &b.Notes, &b.BeforePhoto,
			&b.AfterPhoto, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListByUser returns all bookings created by the given user.
func (r *PGRepository) ListByUser(ctx context.Context, userID int64) ([]Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY scheduled_at DESC`, userID)
}

// ListByEmployee returns all bookings assigned to the given employee.
func (r *PGRepository) ListByEmployee(ctx context.Context, employeeID int64) ([]Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE employee_id = $1 ORDER BY scheduled_at DESC`, employeeID)
}

// UpdateDetails updates the owner-editable booking fields.
func (r *PGRepository) UpdateDetails(ctx context.Context, ref string, serviceType, address string, scheduledAt time.Time, notes string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bookings
		SET service_type = $2, address = $3, scheduled_at = $4, notes = $5, updated_at = NOW()
		WHERE reference = $1`, ref, serviceType, address, scheduledAt, notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Assign attaches an employee and moves the booking to ASSIGNED.
func (r *PGRepository) Assign(ctx context.Context, ref string, employeeID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bookings
		SET employee_id = $2, status = $3, updated_at = NOW()
		WHERE reference = $1`, ref, employeeID, StatusAssigned)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetStatus updates the lifecycle state.
func (r *PGRepository) SetStatus(ctx context.Context, ref string, status Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bookings SET status = $2, updated_at = NOW() WHERE reference = $1`, ref, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetPhoto records a before/after photo URL alongside the matching status move.
func (r *PGRepository) SetPhoto(ctx context.Context, ref string, after bool, url string, status Status) error {
	column := "before_photo"
	if after {
		column = "after_photo"
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE bookings SET `+column+` = $2, status = $3, updated_at = NOW() WHERE reference = $1`,
		ref, url, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
