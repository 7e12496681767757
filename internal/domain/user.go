package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

func (r UserRole) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID        uuid.UUID
	Email     string
	FullName  string
	AvatarURL string
	IsActive  bool
	Role      UserRole
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanActFor reports whether the user may modify the profile of the user
// with the given id: themselves, or anyone when they are an admin.
func (u *User) CanActFor(id uuid.UUID) bool {
	return u.ID == id || u.Role == RoleAdmin
}
