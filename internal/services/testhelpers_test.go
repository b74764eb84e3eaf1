package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chaptershq/chapters/internal/database/testutil"
	"github.com/chaptershq/chapters/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		BookTitle:    "The Book of " + username,
		OpenPages:    models.MaxOpenPages,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedChapters(t *testing.T, db *gorm.DB, authorID string, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		chapter := &models.Chapter{
			AuthorID: authorID,
			Title:    fmt.Sprintf("Chapter %d", i+1),
			Body:     "Some words worth reading.",
		}
		require.NoError(t, db.Create(chapter).Error)
	}
}

func seedMutualFollow(t *testing.T, db *gorm.DB, a, b string) {
	t.Helper()

	require.NoError(t, db.Create(&models.Follow{FollowerID: a, FollowedID: b}).Error)
	require.NoError(t, db.Create(&models.Follow{FollowerID: b, FollowedID: a}).Error)
}

// seedEligiblePair creates two accounts that pass every eligibility check.
func seedEligiblePair(t *testing.T, db *gorm.DB) (*models.User, *models.User) {
	t.Helper()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	seedMutualFollow(t, db, alice.ID, bob.ID)
	seedChapters(t, db, alice.ID, MinPublishedChapters)
	seedChapters(t, db, bob.ID, MinPublishedChapters)
	return alice, bob
}

func seedOpenThread(t *testing.T, db *gorm.DB, a, b string) *models.BTLThread {
	t.Helper()

	low, high := models.OrderPair(a, b)
	openKey := models.ThreadPairKey(a, b)
	thread := &models.BTLThread{
		ParticipantLowID:  low,
		ParticipantHighID: high,
		PairKey:           openKey,
		OpenKey:           &openKey,
		Status:            models.ThreadStatusOpen,
	}
	require.NoError(t, db.Create(thread).Error)
	return thread
}

func mustEligibilityService(t *testing.T, db *gorm.DB) *EligibilityService {
	t.Helper()

	service, err := NewEligibilityService(db)
	require.NoError(t, err)
	return service
}

func mustModerationService(t *testing.T, db *gorm.DB, opts ...ModerationOption) *ModerationService {
	t.Helper()

	service, err := NewModerationService(db, opts...)
	require.NoError(t, err)
	return service
}

func mustQuotaService(t *testing.T, db *gorm.DB, opts ...QuotaOption) *QuotaService {
	t.Helper()

	service, err := NewQuotaService(db, opts...)
	require.NoError(t, err)
	return service
}

var testCtx = context.Background()
