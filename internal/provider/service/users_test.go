package service

import (
	"context"
	"testing"

	"github.com/lanternhq/vestibule/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T) *UserService {
	t.Helper()
	return &UserService{Store: newTestStore(t), Hasher: cryptox.SaltedSHA256Hasher{}}
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a hash, not the password", func(t *testing.T) {
		svc := newUserService(t)
		user, err := svc.CreateUser(ctx, "alice", "hunter2")
		require.NoError(t, err)
		require.Equal(t, "alice", user.Username)
		require.NotEmpty(t, user.PasswordHash)
		require.NotContains(t, user.PasswordHash, "hunter2")
	})

	t.Run("rejects duplicate usernames", func(t *testing.T) {
		svc := newUserService(t)
		_, err := svc.CreateUser(ctx, "alice", "hunter2")
		require.NoError(t, err)

		_, err = svc.CreateUser(ctx, "alice", "other")
		require.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("rejects blank username or password", func(t *testing.T) {
		svc := newUserService(t)
		_, err := svc.CreateUser(ctx, "  ", "hunter2")
		require.ErrorIs(t, err, ErrInvalidRequest)

		_, err = svc.CreateUser(ctx, "alice", "")
		require.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestVerifyPassword(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	_, err := svc.CreateUser(ctx, "alice", "hunter2")
	require.NoError(t, err)

	t.Run("accepts the right password", func(t *testing.T) {
		require.NoError(t, svc.VerifyPassword(ctx, "alice", "hunter2"))
	})

	t.Run("unknown user and wrong password are indistinguishable", func(t *testing.T) {
		wrongPassword := svc.VerifyPassword(ctx, "alice", "nope")
		unknownUser := svc.VerifyPassword(ctx, "bob", "hunter2")
		require.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
		require.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	})
}

func TestUpdatePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("old password stops working, new one takes over", func(t *testing.T) {
		svc := newUserService(t)
		_, err := svc.CreateUser(ctx, "alice", "hunter2")
		require.NoError(t, err)

		require.NoError(t, svc.UpdatePassword(ctx, "alice", "correct-horse"))

		require.ErrorIs(t, svc.VerifyPassword(ctx, "alice", "hunter2"), ErrInvalidCredentials)
		require.NoError(t, svc.VerifyPassword(ctx, "alice", "correct-horse"))
	})

	t.Run("rejects empty password", func(t *testing.T) {
		svc := newUserService(t)
		_, err := svc.CreateUser(ctx, "alice", "hunter2")
		require.NoError(t, err)

		require.ErrorIs(t, svc.UpdatePassword(ctx, "alice", ""), ErrInvalidRequest)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc := newUserService(t)
		require.ErrorIs(t, svc.UpdatePassword(ctx, "ghost", "pw"), ErrUserNotFound)
	})
}
