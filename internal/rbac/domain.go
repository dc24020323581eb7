// Package rbac implements role and permission resolution plus the request
// guards that gate every protected route.
package rbac

import (
	"strings"
	"time"
)

// Role names form a closed enumeration. Anything outside it is rejected.
const (
	RoleUser       = "user"
	RoleOrg        = "org"
	RoleEmp        = "emp"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super-admin"
)

// SuperRole is the one role granted unconditional authorization bypass in the
// permission policy. The bypass lives in exactly one branch and is audited.
const SuperRole = RoleSuperAdmin

// AllRoleNames lists the closed role enumeration.
var AllRoleNames = []string{RoleUser, RoleOrg, RoleEmp, RoleAdmin, RoleSuperAdmin}

// Permission codes are a fixed external vocabulary.
const (
	PermCreateBooking      = "CREATE_BOOKING"
	PermUpdateBooking      = "UPDATE_BOOKING"
	PermGetProfileSelf     = "GET_PROFILE_SELF"
	PermUpdateProfileSelf  = "UPDATE_PROFILE_SELF"
	PermDeleteProfileSelf  = "DELETE_PROFILE_SELF"
	PermGetAssignedBooking = "GET_ASSIGNED_BOOKING"
	PermUpdateBeforePhoto  = "UPDATE_BEFORE_PHOTO"
	PermUpdateAfterPhoto   = "UPDATE_AFTER_PHOTO"
	PermGetAllAccounts     = "GET_ALL_ACCOUNTS"
	PermDeleteAccount      = "DELETE_ACCOUNT"
	PermUpdateAssign       = "UPDATE_ASSIGN_BOOKING"
	PermViewAllReviews     = "VIEW_ALL_REVIEWS"
	PermCreateOrgEmp       = "CREATE_ORG_EMP"
	PermCreateAdmin        = "CREATE_ADMIN"
)

// NormalizeRoleName lowercases and trims a claimed role name.
func NormalizeRoleName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidRoleName reports whether the name belongs to the enumeration.
func ValidRoleName(name string) bool {
	switch name {
	case RoleUser, RoleOrg, RoleEmp, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Role is a named bucket of permissions.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// PermissionCodes returns the codes of the populated permission set.
func (r *Role) PermissionCodes() []string {
	codes := make([]string, len(r.Permissions))
	for i, p := range r.Permissions {
		codes[i] = p.Code
	}
	return codes
}

// Permission is an atomic, uniquely coded capability.
type Permission struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Access is the freshly resolved view of a principal's role and permission
// codes, read through the user→role→permissions join rather than any token
// snapshot.
type Access struct {
	UserID      int64
	RoleName    string
	Permissions []string
}

// HasPermission reports whether the access set carries the code.
func (a *Access) HasPermission(code string) bool {
	for _, p := range a.Permissions {
		if p == code {
			return true
		}
	}
	return false
}

// PermissionSeed describes one permission for idempotent seeding.
type PermissionSeed struct {
	Code        string
	Description string
}

// RoleSeed describes one role and its permission codes for idempotent seeding.
type RoleSeed struct {
	Name        string
	Description string
	Permissions []string
}
