package verification

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/goout-id/goout/pkg/errors"
)

// Outcomes surfaced to callers of the Service. Each renders directly as an
// API error.
var (
	ErrNotFound        = apperrors.New("VERIFICATION_USER_NOT_FOUND", "No account is registered with this email", http.StatusNotFound)
	ErrInvalidToken    = apperrors.New("VERIFICATION_TOKEN_INVALID", "Invalid token", http.StatusBadRequest)
	ErrExpired         = apperrors.New("VERIFICATION_TOKEN_EXPIRED", "Token expired, please request a new one", http.StatusBadRequest)
	ErrAlreadyVerified = apperrors.New("EMAIL_ALREADY_VERIFIED", "Email already verified", http.StatusConflict)
)

// Store level sentinels.
var (
	// ErrRecordNotFound is returned by stores when no row matches.
	ErrRecordNotFound = errors.New("verification: record not found")
	// ErrDuplicate is returned by SessionStore.Create when the user already owns a session.
	ErrDuplicate = errors.New("verification: duplicate record")
	// ErrNoTransition is returned by UserDirectory.SetVerified when the user
	// was verified by someone else first.
	ErrNoTransition = errors.New("verification: user already verified")
	// ErrInconsistent marks a token whose owning user no longer exists.
	ErrInconsistent = errors.New("verification: token owner missing")
)

// internal wraps err as a generic 500 that keeps the cause for logs only.
func internal(format string, args ...any) error {
	return apperrors.ErrInternalServer.WithInternal(fmt.Errorf(format, args...))
}
