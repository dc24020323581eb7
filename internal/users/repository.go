package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sweepdesk/sweepdesk/internal/shared"
)

// ErrDuplicateEmail indicates an account creation against an existing email.
var ErrDuplicateEmail = errors.New("users: email already registered")

// CreateParams collects fields for administrative account creation.
type CreateParams struct {
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	RoleID       int64
}

// Repository defines persistence operations for account management.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context) ([]User, error)
	UpdateProfile(ctx context.Context, id int64, name, phone string) (*User, error)
	Delete(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) error
	Create(ctx context.Context, params CreateParams) (*User, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectUser = `
	SELECT u.id, u.name, u.email, u.phone, u.is_active, ro.name, u.created_at, u.updated_at
	FROM users u
	JOIN roles ro ON ro.id = u.role_id`

func scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Phone,
		&user.IsActive, &user.RoleName, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByID fetches one account with its role name joined in.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE u.id = $1`, id))
}

// List returns all accounts.
func (r *PGRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, selectUser+` ORDER BY u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.Phone,
			&user.IsActive, &user.RoleName, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateProfile updates the owner-editable fields.
func (r *PGRepository) UpdateProfile(ctx context.Context, id int64, name, phone string) (*User, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET name = $2, phone = $3, updated_at = NOW() WHERE id = $1`,
		id, name, phone)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes an account permanently.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetActive toggles the account active flag.
func (r *PGRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Create inserts an account with an explicit role.
func (r *PGRepository) Create(ctx context.Context, params CreateParams) (*User, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, phone, is_active, role_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, NOW(), NOW())
		RETURNING id`,
		params.Name, params.Email, params.PasswordHash, params.Phone, params.RoleID).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

var _ Repository = (*PGRepository)(nil)
