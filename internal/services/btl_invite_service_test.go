package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chaptershq/chapters/internal/models"
	apperrors "github.com/chaptershq/chapters/pkg/errors"
)

func mustInviteService(t *testing.T, db *gorm.DB, opts ...InviteOption) *BTLInviteService {
	t.Helper()

	service, err := NewBTLInviteService(db, mustEligibilityService(t, db), opts...)
	require.NoError(t, err)
	return service
}

func TestInviteCreateHappyPath(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice, bob := seedEligiblePair(t, db)
	invites := mustInviteService(t, db)

	invite, err := invites.Create(testCtx, alice.ID, CreateInviteInput{
		RecipientID: bob.ID,
		Note:        "Your last chapter stayed with me.",
	})
	require.NoError(t, err)
	require.Equal(t, models.InviteStatusPending, invite.Status)
	require.NotNil(t, invite.PendingKey)
	require.Equal(t, models.PendingPairKey(alice.ID, bob.ID), *invite.PendingKey)
}

func TestInviteCreateRequiresNoteOrQuote(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice, bob := seedEligiblePair(t, db)
	invites := mustInviteService(t, db)

	_, err := invites.Create(testCtx, alice.ID, CreateInviteInput{RecipientID: bob.ID, Note: "   "})
	require.Error(t, err)
	appErr := apperrors.FromError(err)
	require.Equal(t, apperrors.ErrBadRequest.Code, appErr.Code)
}

func TestInviteCreateRejectsSelf(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	invites := mustInviteService(t, db)

	_, err := invites.Create(testCtx, alice.ID, CreateInviteInput{RecipientID: alice.ID, Note: "hello me"})
	require.Error(t, err)
	appErr := apperrors.FromError(err)
	require.Equal(t, apperrors.ErrBadRequest.Code, appErr.Code)
}

func TestInviteCreateIneligiblePair(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	invites := mustInviteService(t, db)

	_, err := invites.Create(testCtx, alice.ID, CreateInviteInput{RecipientID: bob.ID, Note: "hi"})
	require.Error(t, err)
	appErr := apperrors.FromError(err)
	require.Equal(t, apperrors.ErrNotEligible.Code, appErr.Code)
}

func TestInviteCreateDuplicatePending(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice, bob := seedEligiblePair(t, db)
	invites := mustInviteService(t, db)

	_, err := invites.Create(testCtx, alice.ID, CreateInviteInput{RecipientID: bob.ID, Note: "first"})
	require.NoError(t, err)

	_, err = invites.Create(testCtx, alice.ID, CreateInviteInput{RecipientID: bob.ID, Note: "second"})
	require.ErrorIs(t, err, apperrors.ErrInvitePending)
}

func TestInviteCreateDailyCap(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	seedChapters(t, db, alice.ID, MinPublishedChapters)

	recipients := []string{"bob", "carol", "dave", "erin"}
	users := make([]*models.User, 0, len(recipients))
	for _, name := range recipients {
		u := seedUser(t, db, name)
		seedMutualFollow(t, db, alice.ID, u.ID)
		seedChapters(t, db, u.ID, MinPublishedChapters)
		users = append(users, u)
	}

	invites := mustInviteService(t, db)
	for i := 0; i < MaxDailyInvites; i++ {
		_, err := invites.Create(testCtx, alice.ID, CreateInviteInput{RecipientID: users[i].ID, Note: "hello"})
		require.NoError(t, err)
	}

	_, err := invites.Create(testCtx, alice.ID, CreateInviteInput{RecipientID: users[3].ID, Note: "one more"})
	require.ErrorIs(t, err, apperrors.ErrInviteCapReached)
}

func TestInviteAcceptOpensThread(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice, bob := seedEligiblePair(t, db)
	invites := mustInviteService(t, db)

	invite, err := invites.Create(testCtx, alice.ID, CreateInviteInput{RecipientID: bob.ID, Note: "hello"})
	require.NoError(t, err)

	accepted, thread, err := invites.Accept(testCtx, invite.ID, bob.ID)
	require.NoError(t, err)
	require.Equal(t, models.InviteStatusAccepted, accepted.Status)
	require.Nil(t, accepted.PendingKey)
	require.NotNil(t, accepted.RespondedAt)
	require.NotNil(t, accepted.ThreadID)
	require.Equal(t, thread.ID, *accepted.ThreadID)

	require.Equal(t, models.ThreadStatusOpen, thread.Status)
	require.True(t, thread.HasParticipant(alice.ID))
	require.True(t, thread.HasParticipant(bob.ID))
	require.NotNil(t, thread.OpenKey)
	require.Equal(t, models.ThreadPairKey(alice.ID, bob.ID), *thread.OpenKey)
}

func TestInviteAcceptOnlyRecipient(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice, bob := seedEligiblePair(t, db)
	invites := mustInviteService(t, db)

	invite, err := invites.Create(testCtx, alice.ID, CreateInviteInput{RecipientID: bob.ID, Note: "hello"})
	require.NoError(t, err)

	_, _, err = invites.Accept(testCtx, invite.ID, alice.ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestInviteResolvesExactlyOnce(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice, bob := seedEligiblePair(t, db)
	invites := mustInviteService(t, db)

	invite, err := invites.Create(testCtx, alice.ID, CreateInviteInput{RecipientID: bob.ID, Note: "hello"})
	require.NoError(t, err)

	_, err = invites.Decline(testCtx, invite.ID, bob.ID)
	require.NoError(t, err)

	_, _, err = invites.Accept(testCtx, invite.ID, bob.ID)
	require.ErrorIs(t, err, apperrors.ErrInviteResolved)
}

func TestInviteDeclineLeavesNoThread(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice, bob := seedEligiblePair(t, db)
	invites := mustInviteService(t, db)

	invite, err := invites.Create(testCtx, alice.ID, CreateInviteInput{RecipientID: bob.ID, Note: "hello"})
	require.NoError(t, err)

	declined, err := invites.Decline(testCtx, invite.ID, bob.ID)
	require.NoError(t, err)
	require.Equal(t, models.InviteStatusDeclined, declined.Status)
	require.Nil(t, declined.ThreadID)

	var count int64
	require.NoError(t, db.Model(&models.BTLThread{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestInviteDeclineThenReinvite(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice, bob := seedEligiblePair(t, db)
	invites := mustInviteService(t, db)

	invite, err := invites.Create(testCtx, alice.ID, CreateInviteInput{RecipientID: bob.ID, Note: "hello"})
	require.NoError(t, err)
	_, err = invites.Decline(testCtx, invite.ID, bob.ID)
	require.NoError(t, err)

	// A resolved invite frees the pending slot for the pair.
	_, err = invites.Create(testCtx, alice.ID, CreateInviteInput{RecipientID: bob.ID, Note: "try again"})
	require.NoError(t, err)
}

func TestInviteListForUser(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alice, bob := seedEligiblePair(t, db)
	invites := mustInviteService(t, db)

	invite, err := invites.Create(testCtx, alice.ID, CreateInviteInput{RecipientID: bob.ID, Note: "hello"})
	require.NoError(t, err)

	for _, id := range []string{alice.ID, bob.ID} {
		listed, err := invites.ListForUser(testCtx, id, "")
		require.NoError(t, err)
		require.Len(t, listed, 1)
		require.Equal(t, invite.ID, listed[0].ID)
	}

	listed, err := invites.ListForUser(testCtx, alice.ID, models.InviteStatusAccepted)
	require.NoError(t, err)
	require.Empty(t, listed)
}
