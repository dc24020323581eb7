package reviews

import (
	"context"

	"github.com/sweepdesk/sweepdesk/internal/bookings"
)

// BookingLookup resolves bookings for review eligibility checks.
type BookingLookup interface {
	GetByReference(ctx context.Context, ref string) (*bookings.Booking, error)
}

// Service wraps review rules.
type Service struct {
	repo     Repository
	bookings BookingLookup
}

// NewService constructs a Service.
func NewService(repo Repository, lookup BookingLookup) *Service {
	return &Service{repo: repo, bookings: lookup}
}

// CreateInput collects review submission fields.
type CreateInput struct {
	BookingRef string
	Rating     int
	Comment    string
}

// Create records a review. Only the booking owner may review, and only once
// the visit has completed.
func (s *Service) Create(ctx context.Context, userID int64, in CreateInput) (*Review, error) {
	booking, err := s.bookings.GetByReference(ctx, in.BookingRef)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID || booking.Status != bookings.StatusCompleted {
		return nil, ErrNotReviewable
	}
	return s.repo.Create(ctx, &Review{
		BookingID: booking.ID,
		UserID:    userID,
		Rating:    in.Rating,
		Comment:   in.Comment,
	})
}

// List returns all reviews for the back office.
func (s *Service) List(ctx context.Context) ([]Review, error) {
	return s.repo.List(ctx)
}
