package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chaptershq/chapters/internal/models"
	apperrors "github.com/chaptershq/chapters/pkg/errors"
)

func mustChapterService(t *testing.T, db *gorm.DB) *ChapterService {
	t.Helper()

	service, err := NewChapterService(db, mustQuotaService(t, db), mustModerationService(t, db))
	require.NoError(t, err)
	return service
}

func TestPublishConsumesOnePage(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	chapters := mustChapterService(t, db)

	chapter, balance, err := chapters.Publish(testCtx, alice.ID, PublishChapterInput{
		Title: "The Quiet Morning",
		Body:  "It began with coffee.",
		Mood:  "calm",
	})
	require.NoError(t, err)
	require.Equal(t, alice.ID, chapter.AuthorID)
	require.Equal(t, models.MaxOpenPages-1, balance)
}

func TestPublishExhaustsQuota(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	chapters := mustChapterService(t, db)

	for i := 0; i < models.MaxOpenPages; i++ {
		_, _, err := chapters.Publish(testCtx, alice.ID, PublishChapterInput{
			Title: "Chapter",
			Body:  "Words.",
		})
		require.NoError(t, err)
	}

	_, _, err := chapters.Publish(testCtx, alice.ID, PublishChapterInput{
		Title: "One Too Many",
		Body:  "Words.",
	})
	require.ErrorIs(t, err, apperrors.ErrQuotaExhausted)

	// The failed publish wrote nothing.
	var count int64
	require.NoError(t, db.Model(&models.Chapter{}).Where("author_id = ?", alice.ID).Count(&count).Error)
	require.EqualValues(t, models.MaxOpenPages, count)
}

func TestPublishValidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	chapters := mustChapterService(t, db)

	_, _, err := chapters.Publish(testCtx, alice.ID, PublishChapterInput{Title: "  ", Body: "text"})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrBadRequest.Code, apperrors.FromError(err).Code)
}

func TestChapterVisibilityUnderBlock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	chapters := mustChapterService(t, db)

	chapter, _, err := chapters.Publish(testCtx, bob.ID, PublishChapterInput{Title: "Visible", Body: "Words."})
	require.NoError(t, err)

	got, err := chapters.Get(testCtx, chapter.ID, alice.ID)
	require.NoError(t, err)
	require.Equal(t, chapter.ID, got.ID)

	moderation := mustModerationService(t, db)
	_, err = moderation.Block(testCtx, bob.ID, alice.ID)
	require.NoError(t, err)

	// A block in either direction hides the chapter as if it did not exist.
	_, err = chapters.Get(testCtx, chapter.ID, alice.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = chapters.ListByAuthor(testCtx, bob.ID, alice.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	// The author still sees their own work.
	got, err = chapters.Get(testCtx, chapter.ID, bob.ID)
	require.NoError(t, err)
	require.Equal(t, chapter.ID, got.ID)
}

func TestListByAuthor(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	seedChapters(t, db, alice.ID, 3)
	chapters := mustChapterService(t, db)

	listed, err := chapters.ListByAuthor(testCtx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)

	_, err = chapters.ListByAuthor(testCtx, "missing", bob.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
