package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/goout-id/goout/internal/cache"
	testutil "github.com/goout-id/goout/internal/database/testutil"
	"github.com/goout-id/goout/internal/models"
	"github.com/goout-id/goout/internal/verification"
	"github.com/goout-id/goout/pkg/mail"
)

func TestCleanerRunOncePurgesExpiredVerificationRecords(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := fixedClock{current: time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)}

	expiredOwner := seedUser(t, db, "expired")
	activeOwner := seedUser(t, db, "active")

	require.NoError(t, db.Create(&models.VerificationSession{
		SessionToken: "expired-session",
		UserID:       expiredOwner.ID,
		Expires:      clock.Now().Add(-time.Minute),
	}).Error)
	require.NoError(t, db.Create(&models.VerificationSession{
		SessionToken: "active-session",
		UserID:       activeOwner.ID,
		Expires:      clock.Now().Add(time.Minute),
	}).Error)
	require.NoError(t, db.Create(&models.VerificationToken{
		Token:      "expired-token",
		Identifier: expiredOwner.Email,
		Expires:    clock.Now().Add(-time.Hour),
	}).Error)

	svc, err := verification.NewService(
		verification.NewGormSessionStore(db),
		verification.NewGormTokenStore(db),
		verification.NewGormUserDirectory(db),
		mail.NewLogMailer("", nil),
		verification.WithClock(clock.Now),
	)
	require.NoError(t, err)

	c := NewCleaner(svc,
		WithCachePurger(cache.NewDatabaseStore(db)),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)
	require.NoError(t, c.RunOnce(context.Background()))

	var sessions []models.VerificationSession
	require.NoError(t, db.Find(&sessions).Error)
	require.Len(t, sessions, 1)
	require.Equal(t, "active-session", sessions[0].SessionToken)

	var tokens int64
	require.NoError(t, db.Model(&models.VerificationToken{}).Count(&tokens).Error)
	require.Zero(t, tokens)
}

func TestCleanerRunOnceAggregatesErrors(t *testing.T) {
	c := NewCleaner(
		stubPurger{err: errors.New("verification down")},
		WithCachePurger(stubCache{err: errors.New("cache down")}),
	)

	err := c.RunOnce(context.Background())
	require.Len(t, multierr.Errors(err), 2)
}

func TestCleanerStartRejectsBadSchedule(t *testing.T) {
	c := NewCleaner(stubPurger{}, WithVerificationSchedule("not a schedule"))
	require.Error(t, c.Start())
}

func TestCleanerStartWithoutJobsIsNoop(t *testing.T) {
	c := NewCleaner(nil)
	require.NoError(t, c.Start())
	<-c.Stop().Done()
}

func TestCleanerStartRegistersJobs(t *testing.T) {
	scheduler := cron.New(cron.WithLogger(cron.DiscardLogger))
	c := NewCleaner(stubPurger{}, WithCachePurger(stubCache{}), WithCron(scheduler))

	require.NoError(t, c.Start())
	t.Cleanup(func() { <-c.Stop().Done() })
	require.Len(t, scheduler.Entries(), 2)
}

type stubPurger struct {
	err error
}

func (s stubPurger) Purge(context.Context) (verification.PurgeStats, error) {
	return verification.PurgeStats{}, s.err
}

type stubCache struct {
	err error
}

func (s stubCache) PurgeExpired(context.Context) (int64, error) {
	return 0, s.err
}

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()

	user := &models.User{Email: name + "@example.com", FullName: name}
	require.NoError(t, db.Create(user).Error)
	return user
}

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}
