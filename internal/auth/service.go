package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/sweepdesk/sweepdesk/internal/rbac"
	"github.com/sweepdesk/sweepdesk/internal/shared"
)

// BcryptCost is the fixed adaptive-hash cost factor for password hashes.
const BcryptCost = 10

// RoleDirectory resolves role records for account creation.
type RoleDirectory interface {
	ResolveRole(ctx context.Context, nameOrID string) (*rbac.Role, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo  Repository
	roles RoleDirectory
}

// NewService constructs a new Service.
func NewService(repo Repository, roles RoleDirectory) *Service {
	return &Service{repo: repo, roles: roles}
}

// HashPassword produces a salted bcrypt hash at the fixed cost factor.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Authenticate validates email/password credentials. Read-only; the plaintext
// password is never logged. Returns shared.ErrNotFound when no account
// matches and shared.ErrInvalidCredentials when the hash comparison fails or
// the account is deactivated.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterInput collects self-registration fields.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// Register creates an account with the default end-user role.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	role, err := s.roles.ResolveRole(ctx, rbac.RoleUser)
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Phone:        in.Phone,
		RoleID:       role.ID,
	})
	if err != nil {
		return nil, err
	}
	user.RoleName = role.Name
	return user, nil
}
