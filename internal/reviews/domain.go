// Package reviews collects customer feedback on completed bookings.
package reviews

import (
	"errors"
	"time"
)

var (
	// ErrAlreadyReviewed indicates a second review against the same booking.
	ErrAlreadyReviewed = errors.New("reviews: booking already reviewed")
	// ErrNotReviewable indicates the booking is not completed or not owned
	// by the caller.
	ErrNotReviewable = errors.New("reviews: booking cannot be reviewed")
)

// Review is one customer's feedback on a completed booking.
type Review struct {
	ID        int64     `json:"id"`
	BookingID int64     `json:"booking_id"`
	UserID    int64     `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
