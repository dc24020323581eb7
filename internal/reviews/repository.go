package reviews

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence operations for reviews.
type Repository interface {
	Create(ctx context.Context, rv *Review) (*Review, error)
	List(ctx context.Context) ([]Review, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a review. The unique constraint on booking_id enforces one
// review per booking.
func (r *PGRepository) Create(ctx context.Context, rv *Review) (*Review, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO reviews (booking_id, user_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at`,
		rv.BookingID, rv.UserID, rv.Rating, rv.Comment).Scan(&rv.ID, &rv.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	return rv, nil
}

// List returns all reviews, newest first.
func (r *PGRepository) List(ctx context.Context) ([]Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, booking_id, user_id, rating, comment, created_at
		FROM reviews ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Review
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.BookingID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
