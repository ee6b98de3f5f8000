// internal/membership/implementation.go
package membership

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"libris/internal/model"
	"libris/internal/storage"
)

const minPasswordLength = 8

// service implements the Service interface.
type service struct {
	store   storage.Store
	limiter *rate.Limiter
	now     func() time.Time
}

// NewService creates a membership service. Register and Authenticate share
// a rate limiter to slow down credential stuffing.
func NewService(store storage.Store) Service {
	return &service{
		store:   store,
		limiter: rate.NewLimiter(rate.Every(time.Second), 10),
		now:     time.Now,
	}
}

func (s *service) Register(ctx context.Context, username, password string) (*model.User, error) {
	if !s.limiter.Allow() {
		return nil, fmt.Errorf("%w: rate limit exceeded", model.ErrConflict)
	}
	return s.create(ctx, username, password, model.RoleMember)
}

func (s *service) CreateUser(ctx context.Context, username, password string, role model.Role) (*model.User, error) {
	if role == "" {
		role = model.RoleMember
	}
	if !role.Valid() {
		return nil, model.Validationf("unknown role %q", role)
	}
	return s.create(ctx, username, password, role)
}

func (s *service) create(ctx context.Context, username, password string, role model.Role) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, model.Validationf("username is required")
	}
	if len(password) < minPasswordLength {
		return nil, model.Validationf("password must be at least %d characters", minPasswordLength)
	}

	hash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", model.ErrStorage, err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Salt:         salt,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.InsertUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	if !s.limiter.Allow() {
		return nil, fmt.Errorf("%w: rate limit exceeded", model.ErrConflict)
	}

	user, err := s.store.GetUserByName(ctx, strings.TrimSpace(username))
	if err != nil {
		// Same answer for unknown user and bad password.
		return nil, fmt.Errorf("%w: invalid credentials", model.ErrForbidden)
	}

	ok, err := verifyPassword(password, user.Salt, user.PasswordHash)
	if err != nil || !ok {
		return nil, fmt.Errorf("%w: invalid credentials", model.ErrForbidden)
	}
	return user, nil
}

func (s *service) UpdateRole(ctx context.Context, username string, role model.Role) error {
	if !role.Valid() {
		return model.Validationf("unknown role %q", role)
	}
	user, err := s.store.GetUserByName(ctx, strings.TrimSpace(username))
	if err != nil {
		return err
	}
	return s.store.UpdateUserRole(ctx, user.ID, role)
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return model.Validationf("password must be at least %d characters", minPasswordLength)
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := verifyPassword(oldPassword, user.Salt, user.PasswordHash)
	if err != nil || !ok {
		return fmt.Errorf("%w: invalid credentials", model.ErrForbidden)
	}

	hash, salt, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: hash password: %v", model.ErrStorage, err)
	}
	return s.store.UpdateUserPassword(ctx, userID, hash, salt)
}

func (s *service) DeleteUser(ctx context.Context, username string, actor model.Actor) error {
	user, err := s.store.GetUserByName(ctx, strings.TrimSpace(username))
	if err != nil {
		return err
	}
	if user.ID == actor.UserID {
		return fmt.Errorf("%w: cannot delete the account you are logged in as", model.ErrForbidden)
	}
	return s.store.DeleteUser(ctx, user.ID)
}

func (s *service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.store.ListUsers(ctx)
}
