package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chaptershq/chapters/internal/models"
	apperrors "github.com/chaptershq/chapters/pkg/errors"
)

func TestBlockSeversRelationship(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice, bob := seedEligiblePair(t, db)
	thread := seedOpenThread(t, db, alice.ID, bob.ID)

	invites := mustInviteService(t, db)
	// A pending invite in the reverse direction is declined by the block too.
	pendingKey := models.PendingPairKey(bob.ID, alice.ID)
	require.NoError(t, db.Create(&models.BTLInvite{
		SenderID:    bob.ID,
		RecipientID: alice.ID,
		Note:        "want to talk?",
		Status:      models.InviteStatusPending,
		PendingKey:  &pendingKey,
	}).Error)

	moderation := mustModerationService(t, db)
	_, err := moderation.Block(testCtx, alice.ID, bob.ID)
	require.NoError(t, err)

	var followCount int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&followCount).Error)
	require.Zero(t, followCount)

	pending, err := invites.ListForUser(testCtx, alice.ID, models.InviteStatusPending)
	require.NoError(t, err)
	require.Empty(t, pending)

	var reloaded models.BTLThread
	require.NoError(t, db.Take(&reloaded, "id = ?", thread.ID).Error)
	require.Equal(t, models.ThreadStatusClosed, reloaded.Status)
	require.Nil(t, reloaded.OpenKey)
	require.Equal(t, alice.ID, *reloaded.ClosedBy)
}

func TestBlockIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	moderation := mustModerationService(t, db)

	first, err := moderation.Block(testCtx, alice.ID, bob.ID)
	require.NoError(t, err)

	second, err := moderation.Block(testCtx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestBlockValidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	moderation := mustModerationService(t, db)

	_, err := moderation.Block(testCtx, alice.ID, alice.ID)
	require.Error(t, err)
	require.Equal(t, apperrors.ErrBadRequest.Code, apperrors.FromError(err).Code)

	_, err = moderation.Block(testCtx, alice.ID, "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUnblock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	moderation := mustModerationService(t, db)

	_, err := moderation.Block(testCtx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, moderation.Unblock(testCtx, alice.ID, bob.ID))

	require.ErrorIs(t, moderation.Unblock(testCtx, alice.ID, bob.ID), apperrors.ErrNotFound)
}

func TestListBlocks(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")
	moderation := mustModerationService(t, db)

	_, err := moderation.Block(testCtx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = moderation.Block(testCtx, alice.ID, carol.ID)
	require.NoError(t, err)

	blocks, err := moderation.ListBlocks(testCtx, alice.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	blocks, err = moderation.ListBlocks(testCtx, bob.ID)
	require.NoError(t, err)
	require.Empty(t, blocks)
}

func TestReportTargetsExactlyOne(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	moderation := mustModerationService(t, db)

	_, err := moderation.Report(testCtx, alice.ID, CreateReportInput{Reason: "spam"})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrBadRequest.Code, apperrors.FromError(err).Code)

	_, err = moderation.Report(testCtx, alice.ID, CreateReportInput{
		ReportedUserID: bob.ID,
		ThreadID:       "also-set",
		Reason:         "spam",
	})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrBadRequest.Code, apperrors.FromError(err).Code)
}

func TestReportUser(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	moderation := mustModerationService(t, db)

	report, err := moderation.Report(testCtx, alice.ID, CreateReportInput{
		ReportedUserID: bob.ID,
		Reason:         "harassment",
		Details:        "unwanted messages",
	})
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusPending, report.Status)
	require.Equal(t, bob.ID, *report.ReportedUserID)

	_, err = moderation.Report(testCtx, alice.ID, CreateReportInput{
		ReportedUserID: "missing",
		Reason:         "spam",
	})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReportThreadRequiresParticipation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice, bob := seedEligiblePair(t, db)
	mallory := seedUser(t, db, "mallory")
	thread := seedOpenThread(t, db, alice.ID, bob.ID)
	moderation := mustModerationService(t, db)

	_, err := moderation.Report(testCtx, mallory.ID, CreateReportInput{
		ThreadID: thread.ID,
		Reason:   "abuse",
	})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	report, err := moderation.Report(testCtx, alice.ID, CreateReportInput{
		ThreadID: thread.ID,
		Reason:   "abuse",
	})
	require.NoError(t, err)
	require.Equal(t, thread.ID, *report.ThreadID)

	// Filing a report never mutates the reported conversation.
	var reloaded models.BTLThread
	require.NoError(t, db.Take(&reloaded, "id = ?", thread.ID).Error)
	require.Equal(t, models.ThreadStatusOpen, reloaded.Status)
}

func TestReportChapter(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	seedChapters(t, db, bob.ID, 1)

	var chapter models.Chapter
	require.NoError(t, db.Take(&chapter, "author_id = ?", bob.ID).Error)

	moderation := mustModerationService(t, db)
	report, err := moderation.Report(testCtx, alice.ID, CreateReportInput{
		ReportedChapterID: chapter.ID,
		Reason:            "plagiarism",
	})
	require.NoError(t, err)
	require.Equal(t, chapter.ID, *report.ReportedChapterID)
}

func TestListReports(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	moderation := mustModerationService(t, db)

	_, err := moderation.Report(testCtx, alice.ID, CreateReportInput{
		ReportedUserID: bob.ID,
		Reason:         "spam",
	})
	require.NoError(t, err)

	reports, err := moderation.ListReports(testCtx, alice.ID)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	reports, err = moderation.ListReports(testCtx, bob.ID)
	require.NoError(t, err)
	require.Empty(t, reports)
}
