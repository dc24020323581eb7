package users

import (
	"context"
	"fmt"

	"github.com/sweepdesk/sweepdesk/internal/auth"
	"github.com/sweepdesk/sweepdesk/internal/rbac"
	"github.com/sweepdesk/sweepdesk/internal/shared"
)

// Auditor records destructive account actions.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service wraps account-management rules.
type Service struct {
	repo    Repository
	roles   auth.RoleDirectory
	auditor Auditor
}

// NewService constructs a Service.
func NewService(repo Repository, roles auth.RoleDirectory, auditor Auditor) *Service {
	return &Service{repo: repo, roles: roles, auditor: auditor}
}

// Profile returns the caller's own account.
func (s *Service) Profile(ctx context.Context, userID int64) (*User, error) {
	return s.repo.GetByID(ctx, userID)
}

// UpdateProfile updates the caller's own account.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, name, phone string) (*User, error) {
	return s.repo.UpdateProfile(ctx, userID, name, phone)
}

// ListAccounts returns every account for the back office.
func (s *Service) ListAccounts(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// DeleteAccount removes an account permanently and records who did it.
func (s *Service) DeleteAccount(ctx context.Context, actorID, targetID int64) error {
	if err := s.repo.Delete(ctx, targetID); err != nil {
		return err
	}
	s.audit(ctx, actorID, "users.delete", targetID, nil)
	return nil
}

// SetActive toggles the active flag on an account.
func (s *Service) SetActive(ctx context.Context, actorID, targetID int64, active bool) error {
	if err := s.repo.SetActive(ctx, targetID, active); err != nil {
		return err
	}
	s.audit(ctx, actorID, "users.set_active", targetID, map[string]any{"active": active})
	return nil
}

// CreateStaffInput collects fields for organization/employee account creation.
type CreateStaffInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Role     string
}

// CreateStaff creates an org or emp account. Other roles are refused here;
// admins are created through CreateAdmin.
func (s *Service) CreateStaff(ctx context.Context, actorID int64, in CreateStaffInput) (*User, error) {
	roleName := rbac.NormalizeRoleName(in.Role)
	if roleName != rbac.RoleOrg && roleName != rbac.RoleEmp {
		return nil, fmt.Errorf("users: role %q is not a staff role", in.Role)
	}
	return s.createWithRole(ctx, actorID, in.Name, in.Email, in.Password, in.Phone, roleName)
}

// CreateAdmin creates an admin account.
func (s *Service) CreateAdmin(ctx context.Context, actorID int64, in CreateStaffInput) (*User, error) {
	return s.createWithRole(ctx, actorID, in.Name, in.Email, in.Password, in.Phone, rbac.RoleAdmin)
}

func (s *Service) createWithRole(ctx context.Context, actorID int64, name, email, password, phone, roleName string) (*User, error) {
	role, err := s.roles.ResolveRole(ctx, roleName)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.Create(ctx, CreateParams{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Phone:        phone,
		RoleID:       role.ID,
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actorID, "users.create", user.ID, map[string]any{"role": roleName})
	return user, nil
}

func (s *Service) audit(ctx context.Context, actorID int64, action string, targetID int64, meta map[string]any) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: fmt.Sprintf("%d", targetID),
		Meta:     meta,
	})
}
