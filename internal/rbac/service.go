package rbac

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// Service orchestrates role and permission resolution.
type Service struct {
	store Store
}

// NewService constructs a Service backed by the provided store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ResolveRole loads a role by numeric id when the input parses as one,
// otherwise by name.
func (s *Service) ResolveRole(ctx context.Context, nameOrID string) (*Role, error) {
	if id, err := strconv.ParseInt(nameOrID, 10, 64); err == nil {
		return s.store.GetRoleByID(ctx, id)
	}
	return s.store.GetRoleByName(ctx, NormalizeRoleName(nameOrID))
}

// RoleWithPermissions loads a role with its permission set populated. Used
// when a fresh, non-snapshot permission view is required.
func (s *Service) RoleWithPermissions(ctx context.Context, roleID int64) (*Role, error) {
	role, err := s.store.GetRoleByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	perms, err := s.store.RolePermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}
	role.Permissions = perms
	return role, nil
}

// PrincipalAccess resolves the caller's role name and permission codes with a
// fresh two-level read, never from a token snapshot.
func (s *Service) PrincipalAccess(ctx context.Context, userID int64) (*Access, error) {
	return s.store.PrincipalAccess(ctx, userID)
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

// ListPermissions returns all permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

// EnsurePermissions idempotently upserts the permission vocabulary. Safe to
// re-run; keyed by unique code.
func (s *Service) EnsurePermissions(ctx context.Context, seeds []PermissionSeed) error {
	for _, seed := range seeds {
		if seed.Code == "" {
			return errors.New("rbac: permission code required")
		}
	}
	return s.store.UpsertPermissions(ctx, seeds)
}

// EnsureRoles idempotently upserts roles and reconciles their permission
// sets. Role names outside the fixed enumeration are refused.
func (s *Service) EnsureRoles(ctx context.Context, seeds []RoleSeed) error {
	for _, seed := range seeds {
		if !ValidRoleName(seed.Name) {
			return fmt.Errorf("rbac: unknown role name %q", seed.Name)
		}
	}
	return s.store.UpsertRoles(ctx, seeds)
}
