package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lanternhq/vestibule/internal/provider/domain"
	"github.com/lanternhq/vestibule/internal/provider/store"
	"github.com/lanternhq/vestibule/pkg/cryptox"
	"github.com/lanternhq/vestibule/pkg/slogx"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")
)

// UserService manages resource-owner accounts. Password storage goes through
// the pluggable hasher so the scheme can be swapped without touching callers.
type UserService struct {
	Store  store.Store
	Hasher cryptox.PasswordHasher
}

// CreateUser registers a new user. Returns ErrUsernameTaken when the
// username is already held; uniqueness is enforced by the store.
func (s *UserService) CreateUser(ctx context.Context, username, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.User{}, ErrInvalidRequest
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUsernameTaken
		}
		l.Error("failed to create user", "error", err)
		return domain.User{}, err
	}

	l.Info("user created", "username", username)
	return user, nil
}

// VerifyPassword checks the password against the stored hash. Returns
// ErrInvalidCredentials for both unknown users and wrong passwords so the
// two cases are indistinguishable to callers.
func (s *UserService) VerifyPassword(ctx context.Context, username, password string) error {
	user, err := s.Store.Users().GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if err := s.Hasher.Verify(password, user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// UpdatePassword rehashes and stores a new password for the user.
func (s *UserService) UpdatePassword(ctx context.Context, username, newPassword string) error {
	if newPassword == "" {
		return ErrInvalidRequest
	}

	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.Store.Users().UpdatePasswordHash(ctx, username, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	slogx.FromContext(ctx).Info("user password updated", "username", username)
	return nil
}

// DeleteUser removes a user account.
func (s *UserService) DeleteUser(ctx context.Context, username string) error {
	if err := s.Store.Users().DeleteUser(ctx, username); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	slogx.FromContext(ctx).Info("user deleted", "username", username)
	return nil
}

// ListUsers returns all users. Password hashes are still present; callers
// exposing the result externally must redact them.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}
