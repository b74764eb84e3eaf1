package maintenance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chaptershq/chapters/internal/database/testutil"
	"github.com/chaptershq/chapters/internal/models"
	"github.com/chaptershq/chapters/internal/services"
)

func TestGranterRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	user := &models.User{
		Username:     "idle",
		Email:        "idle@example.com",
		PasswordHash: "x",
		OpenPages:    0,
	}
	require.NoError(t, db.Create(user).Error)

	now := time.Date(2026, 8, 31, 4, 0, 0, 0, time.UTC)
	quota, err := services.NewQuotaService(db, services.WithQuotaClock(func() time.Time { return now }))
	require.NoError(t, err)

	granter := NewGranter(quota, WithNow(func() time.Time { return now }), WithSchedule("@daily"))
	granter.RunOnce()

	var reloaded models.User
	require.NoError(t, db.Take(&reloaded, "id = ?", user.ID).Error)
	require.Equal(t, 1, reloaded.OpenPages)
	require.NotNil(t, reloaded.LastGrantAt)

	// A second run on the same day grants nothing further.
	granter.RunOnce()
	require.NoError(t, db.Take(&reloaded, "id = ?", user.ID).Error)
	require.Equal(t, 1, reloaded.OpenPages)
}

func TestGranterStartStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	quota, err := services.NewQuotaService(db)
	require.NoError(t, err)

	granter := NewGranter(quota)
	require.NoError(t, granter.Start())
	granter.Stop()
}
