// internal/membership/service.go
package membership

import (
	"context"

	"github.com/google/uuid"

	"libris/internal/model"
)

// Service manages borrower and staff identities. The lending core trusts
// the identities this service authenticates.
type Service interface {
	// Register self-registers a new member account.
	Register(ctx context.Context, username, password string) (*model.User, error)

	// Authenticate verifies credentials and returns the user.
	Authenticate(ctx context.Context, username, password string) (*model.User, error)

	// CreateUser creates an account with an explicit role. Admin flows.
	CreateUser(ctx context.Context, username, password string, role model.Role) (*model.User, error)

	// UpdateRole changes a user's role.
	UpdateRole(ctx context.Context, username string, role model.Role) error

	// ChangePassword rotates a user's password after verifying the old one.
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error

	// DeleteUser removes an account. The acting user may not delete
	// itself; that fails with model.ErrForbidden.
	DeleteUser(ctx context.Context, username string, actor model.Actor) error

	ListUsers(ctx context.Context) ([]model.User, error)
}
