package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sweepdesk/sweepdesk/internal/platform/db"
)

// Store defines persistence operations for roles and permissions.
type Store interface {
	GetRoleByID(ctx context.Context, id int64) (*Role, error)
	GetRoleByName(ctx context.Context, name string) (*Role, error)
	RolePermissions(ctx context.Context, roleID int64) ([]Permission, error)
	ListRoles(ctx context.Context) ([]Role, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	PrincipalAccess(ctx context.Context, userID int64) (*Access, error)
	UpsertPermissions(ctx context.Context, seeds []PermissionSeed) error
	UpsertRoles(ctx context.Context, seeds []RoleSeed) error
}

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PostgreSQL store.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const roleColumns = `id, name, description, created_at, updated_at`

func scanRole(row pgx.Row) (*Role, error) {
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// GetRoleByID fetches a role by primary key.
func (s *PGStore) GetRoleByID(ctx context.Context, id int64) (*Role, error) {
	return scanRole(s.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
}

// GetRoleByName fetches a role by its unique name.
func (s *PGStore) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	return scanRole(s.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name))
}

// RolePermissions returns the permission set attached to a role.
func (s *PGStore) RolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.code, p.description
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.code`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Code, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// ListRoles returns all roles ordered by name.
func (s *PGStore) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ListPermissions returns all permissions ordered by code.
func (s *PGStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, code, description FROM permissions ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Code, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// PrincipalAccess resolves a user through the user→role→permissions join.
// This is always a fresh read so out-of-band permission edits are honoured.
func (s *PGStore) PrincipalAccess(ctx context.Context, userID int64) (*Access, error) {
	access := Access{UserID: userID}
	err := s.pool.QueryRow(ctx, `
		SELECT r.name
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1`, userID).Scan(&access.RoleName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT p.code
		FROM users u
		JOIN role_permissions rp ON rp.role_id = u.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE u.id = $1
		ORDER BY p.code`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		access.Permissions = append(access.Permissions, code)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &access, nil
}

// UpsertPermissions inserts or refreshes permissions keyed by unique code.
func (s *PGStore) UpsertPermissions(ctx context.Context, seeds []PermissionSeed) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, seed := range seeds {
			if _, err := tx.Exec(ctx, `
				INSERT INTO permissions (code, description)
				VALUES ($1, $2)
				ON CONFLICT (code) DO UPDATE SET description = EXCLUDED.description`,
				seed.Code, seed.Description); err != nil {
				return fmt.Errorf("rbac: upsert permission %s: %w", seed.Code, err)
			}
		}
		return nil
	})
}

// UpsertRoles inserts or refreshes roles keyed by unique name and reconciles
// each role's permission set to exactly the seeded codes.
func (s *PGStore) UpsertRoles(ctx context.Context, seeds []RoleSeed) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, seed := range seeds {
			var roleID int64
			if err := tx.QueryRow(ctx, `
				INSERT INTO roles (name, description)
				VALUES ($1, $2)
				ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, updated_at = NOW()
				RETURNING id`, seed.Name, seed.Description).Scan(&roleID); err != nil {
				return fmt.Errorf("rbac: upsert role %s: %w", seed.Name, err)
			}
			if _, err := tx.Exec(ctx, `
				DELETE FROM role_permissions
				WHERE role_id = $1
				  AND permission_id NOT IN (SELECT id FROM permissions WHERE code = ANY($2))`,
				roleID, seed.Permissions); err != nil {
				return fmt.Errorf("rbac: detach stale permissions for %s: %w", seed.Name, err)
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO role_permissions (role_id, permission_id)
				SELECT $1, id FROM permissions WHERE code = ANY($2)
				ON CONFLICT DO NOTHING`, roleID, seed.Permissions); err != nil {
				return fmt.Errorf("rbac: attach permissions for %s: %w", seed.Name, err)
			}
		}
		return nil
	})
}

var _ Store = (*PGStore)(nil)
