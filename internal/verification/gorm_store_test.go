package verification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/goout-id/goout/internal/database/testutil"
	"github.com/goout-id/goout/internal/models"
)

func newGormFixture(t *testing.T) (*gorm.DB, *clock, *models.User) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := &models.User{Email: "alice@example.com", FullName: "Alice"}
	require.NoError(t, db.Create(user).Error)
	return db, newClock(), user
}

func TestHexTokenGeneratorLength(t *testing.T) {
	token, err := HexTokenGenerator(DefaultTokenBytes)()
	require.NoError(t, err)
	require.Len(t, token, 128)

	other, err := HexTokenGenerator(DefaultTokenBytes)()
	require.NoError(t, err)
	require.NotEqual(t, token, other)
}

func TestGormSessionStoreLifecycle(t *testing.T) {
	db, c, user := newGormFixture(t)
	store := NewGormSessionStore(db, WithStoreClock(c.Now))
	ctx := context.Background()

	created, err := store.Create(ctx, user.ID, DefaultTTL)
	require.NoError(t, err)
	require.Len(t, created.SessionToken, 128)
	require.True(t, created.Expires.Equal(c.Now().Add(DefaultTTL)))

	_, err = store.Create(ctx, user.ID, DefaultTTL)
	require.ErrorIs(t, err, ErrDuplicate)

	byUser, err := store.FindByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, created.SessionToken, byUser.SessionToken)

	c.Advance(time.Hour)
	rotated, err := store.Rotate(ctx, created.SessionToken, DefaultTTL)
	require.NoError(t, err)
	require.Equal(t, created.ID, rotated.ID)
	require.NotEqual(t, created.SessionToken, rotated.SessionToken)
	require.True(t, rotated.Expires.Equal(c.Now().Add(DefaultTTL)))

	_, err = store.FindByToken(ctx, created.SessionToken)
	require.ErrorIs(t, err, ErrRecordNotFound)

	var count int64
	require.NoError(t, db.Model(&models.VerificationSession{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	require.NoError(t, store.Delete(ctx, rotated.SessionToken))
	require.NoError(t, store.Delete(ctx, rotated.SessionToken))
	_, err = store.FindByToken(ctx, rotated.SessionToken)
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestGormSessionStoreRotateMissing(t *testing.T) {
	db, c, _ := newGormFixture(t)
	store := NewGormSessionStore(db, WithStoreClock(c.Now))

	_, err := store.Rotate(context.Background(), "missing", DefaultTTL)
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestGormSessionStoreDeleteExpired(t *testing.T) {
	db, c, user := newGormFixture(t)
	store := NewGormSessionStore(db, WithStoreClock(c.Now))
	ctx := context.Background()

	other := &models.User{Email: "bob@example.com", FullName: "Bob"}
	require.NoError(t, db.Create(other).Error)

	_, err := store.Create(ctx, user.ID, time.Minute)
	require.NoError(t, err)
	fresh, err := store.Create(ctx, other.ID, time.Hour)
	require.NoError(t, err)

	removed, err := store.DeleteExpired(ctx, c.Now().Add(2*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	_, err = store.FindByToken(ctx, fresh.SessionToken)
	require.NoError(t, err)
}

func TestGormTokenStoreLifecycle(t *testing.T) {
	db, c, user := newGormFixture(t)
	store := NewGormTokenStore(db, WithStoreClock(c.Now))
	ctx := context.Background()

	first, err := store.Create(ctx, user.Email, DefaultTTL)
	require.NoError(t, err)
	second, err := store.Create(ctx, user.Email, DefaultTTL)
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	found, err := store.FindByToken(ctx, first.Token)
	require.NoError(t, err)
	require.Equal(t, user.Email, found.Identifier)

	require.NoError(t, store.Delete(ctx, first.Token))
	_, err = store.FindByToken(ctx, first.Token)
	require.ErrorIs(t, err, ErrRecordNotFound)

	removed, err := store.DeleteExpired(ctx, c.Now().Add(DefaultTTL+time.Second))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
}

func TestGormUserDirectorySetVerified(t *testing.T) {
	db, c, user := newGormFixture(t)
	users := NewGormUserDirectory(db)
	ctx := context.Background()

	found, err := users.FindByEmail(ctx, " ALICE@example.com ")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)

	require.NoError(t, users.SetVerified(ctx, user.ID, c.Now()))
	require.ErrorIs(t, users.SetVerified(ctx, user.ID, c.Now()), ErrNoTransition)
	require.ErrorIs(t, users.SetVerified(ctx, "missing", c.Now()), ErrRecordNotFound)

	reloaded, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, reloaded.IsVerified())

	_, err = users.FindByID(ctx, "missing")
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestServiceOverGormStores(t *testing.T) {
	db, c, user := newGormFixture(t)
	mailer := &recordingMailer{}

	svc, err := NewService(
		NewGormSessionStore(db, WithStoreClock(c.Now)),
		NewGormTokenStore(db, WithStoreClock(c.Now)),
		NewGormUserDirectory(db),
		mailer,
		WithClock(c.Now),
	)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := svc.IssueTicket(ctx, user.ID)
	require.NoError(t, err)
	second, err := svc.IssueOrRefreshTicket(ctx, user.Email)
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	_, err = svc.DispatchVerificationEmail(ctx, first.Token)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.DispatchVerificationEmail(ctx, second.Token)
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)

	var token models.VerificationToken
	require.NoError(t, db.Where("identifier = ?", user.Email).Take(&token).Error)

	verified, err := svc.ConsumeVerificationToken(ctx, token.Token)
	require.NoError(t, err)
	require.True(t, verified.IsVerified())

	var remaining int64
	require.NoError(t, db.Model(&models.VerificationToken{}).Count(&remaining).Error)
	require.Zero(t, remaining)
	require.NoError(t, db.Model(&models.VerificationSession{}).Count(&remaining).Error)
	require.Zero(t, remaining)
}
