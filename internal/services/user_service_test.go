package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chaptershq/chapters/internal/models"
	apperrors "github.com/chaptershq/chapters/pkg/errors"
)

func mustUserService(t *testing.T, db *gorm.DB) *UserService {
	t.Helper()

	service, err := NewUserService(db, mustQuotaService(t, db))
	require.NoError(t, err)
	return service
}

func TestRegisterAndAuthenticate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	users := mustUserService(t, db)

	user, err := users.Register(testCtx, RegisterInput{
		Username:  "Alice",
		Email:     "Alice@Example.com",
		Password:  "correct-horse",
		BookTitle: "A Book of Mornings",
	})
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, models.MaxOpenPages, user.OpenPages)
	require.NotEqual(t, "correct-horse", user.PasswordHash)

	// Both username and email work as the login identifier.
	for _, identifier := range []string{"alice", "ALICE@example.com"} {
		got, err := users.Authenticate(testCtx, identifier, "correct-horse")
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
	}

	_, err = users.Authenticate(testCtx, "alice", "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = users.Authenticate(testCtx, "nobody", "whatever")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestRegisterDuplicate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	users := mustUserService(t, db)

	_, err := users.Register(testCtx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	_, err = users.Register(testCtx, RegisterInput{
		Username: "alice",
		Email:    "other@example.com",
		Password: "correct-horse",
	})
	require.ErrorIs(t, err, ErrAccountExists)

	_, err = users.Register(testCtx, RegisterInput{
		Username: "alice2",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.ErrorIs(t, err, ErrAccountExists)
}

func TestUserGet(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	users := mustUserService(t, db)

	got, err := users.Get(testCtx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)
	require.NotNil(t, got.LastGrantAt)

	_, err = users.Get(testCtx, "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
