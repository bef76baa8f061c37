package verification

import (
	"context"
	"time"

	"github.com/goout-id/goout/internal/models"
)

// TokenGenerator produces opaque random token values.
type TokenGenerator func() (string, error)

// SessionStore persists verification sessions keyed by their token.
type SessionStore interface {
	// Create inserts a session with a fresh token expiring ttl from now.
	// It returns ErrDuplicate if the user already owns a session.
	Create(ctx context.Context, userID string, ttl time.Duration) (*models.VerificationSession, error)
	FindByToken(ctx context.Context, token string) (*models.VerificationSession, error)
	FindByUserID(ctx context.Context, userID string) (*models.VerificationSession, error)
	// Rotate replaces the token of an existing session and resets its expiry.
	Rotate(ctx context.Context, existingToken string, ttl time.Duration) (*models.VerificationSession, error)
	// Delete is idempotent.
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenStore persists single-use verification tokens.
type TokenStore interface {
	Create(ctx context.Context, identifier string, ttl time.Duration) (*models.VerificationToken, error)
	FindByToken(ctx context.Context, token string) (*models.VerificationToken, error)
	// Delete is idempotent.
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// UserDirectory is the subset of account storage the verification flow needs.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	// SetVerified stamps the user as verified at when. It returns
	// ErrNoTransition if the user was already verified.
	SetVerified(ctx context.Context, id string, when time.Time) error
}
