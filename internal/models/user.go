package models

import "time"

// Role is an actor's platform role.
type Role string

const (
	RoleBuilder Role = "BUILDER"
	RoleSponsor Role = "SPONSOR"
	RoleAdmin   Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleBuilder, RoleSponsor, RoleAdmin:
		return true
	}
	return false
}

// CanSponsor reports whether the role may create grants.
func (r Role) CanSponsor() bool {
	return r == RoleSponsor || r == RoleAdmin
}

// User is an authenticated actor. Rows are created on first sign-in and
// never deleted by the engine.
type User struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Role      Role      `gorm:"type:varchar(16);not null;default:BUILDER" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
