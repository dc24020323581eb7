package auth

import "time"

// User is an authenticated account principal.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	IsActive     bool
	RoleID       int64
	RoleName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
