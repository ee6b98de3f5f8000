package model

import (
	"time"

	"github.com/google/uuid"
)

// Role controls which mutations a user may perform.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleLibrarian Role = "librarian"
	RoleMember    Role = "member"
)

// Staff reports whether the role may act on other users' loans.
func (r Role) Staff() bool { return r == RoleAdmin || r == RoleLibrarian }

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLibrarian, RoleMember:
		return true
	}
	return false
}

// User is a borrower or staff identity.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Salt         string    `json:"-" db:"salt"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Actor is the caller identity the core trusts, supplied by the auth layer.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}
