package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sweepdesk/sweepdesk/internal/shared"
)

// ErrEmailTaken indicates a registration against an existing email.
var ErrEmailTaken = errors.New("auth: email already registered")

// CreateUserParams collects the fields needed to insert an account.
type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	RoleID       int64
}

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, params CreateUserParams) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a user with its role name joined in.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.name, u.email, u.password_hash, u.phone, u.is_active,
		       u.role_id, ro.name, u.created_at, u.updated_at
		FROM users u
		JOIN roles ro ON ro.id = u.role_id
		WHERE u.email = $1`, email).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Phone,
		&user.IsActive, &user.RoleID, &user.RoleName, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new account. A unique-violation on email is reported
// as ErrEmailTaken.
func (r *PGRepository) CreateUser(ctx context.Context, params CreateUserParams) (*User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, phone, is_active, role_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, NOW(), NOW())
		RETURNING id, name, email, password_hash, phone, is_active, role_id, created_at, updated_at`,
		params.Name, params.Email, params.PasswordHash, params.Phone, params.RoleID).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Phone,
		&user.IsActive, &user.RoleID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
