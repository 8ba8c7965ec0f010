package domain

import "time"

// Role controls what a user may do on the platform.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the domain model for platform members who publish and unlock
// stories.
type User struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  string
	Role          Role
	EmailVerified bool
	Status        UserStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
