package services

import (
	"net/http"

	"github.com/goout-id/goout/internal/database"
	apperrors "github.com/goout-id/goout/pkg/errors"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrUserExists is returned when registering an address that already has an account.
	ErrUserExists = apperrors.New("USER_EXISTS", "user already exists", http.StatusBadRequest)
	// ErrIdentityLinked rejects a provider login whose email belongs to an account linked to another identity.
	ErrIdentityLinked = apperrors.New("IDENTITY_ALREADY_LINKED", "Account is linked to another sign-in identity", http.StatusConflict)
	// ErrPartnerNotFound indicates the requested partner does not exist.
	ErrPartnerNotFound = apperrors.New("PARTNER_NOT_FOUND", "Partner not found", http.StatusNotFound)
	// ErrPartnerExists rejects a duplicate partner name.
	ErrPartnerExists = apperrors.New("PARTNER_EXISTS", "Partner with this name already exists", http.StatusBadRequest)
	// ErrTodoNotFound indicates the requested todo does not exist.
	ErrTodoNotFound = apperrors.New("TODO_NOT_FOUND", "Todo not found", http.StatusNotFound)
	// ErrTodoExists rejects a duplicate todo title.
	ErrTodoExists = apperrors.New("TODO_EXISTS", "Todo with this title already exists", http.StatusBadRequest)
	// ErrAlreadyBookmarked is returned when a user bookmarks the same todo twice.
	ErrAlreadyBookmarked = apperrors.New("BOOKMARK_EXISTS", "todo already bookmarked", http.StatusBadRequest)
	// ErrBookmarkNotFound is returned when removing a bookmark that does not exist.
	ErrBookmarkNotFound = apperrors.New("BOOKMARK_NOT_FOUND", "nothing to delete", http.StatusNotFound)
	// ErrAlreadyReviewed enforces one review per user per todo.
	ErrAlreadyReviewed = apperrors.New("REVIEW_EXISTS", "Todo already reviewed", http.StatusBadRequest)
	// ErrBookingNotFound indicates the requested booking does not exist.
	ErrBookingNotFound = apperrors.New("BOOKING_NOT_FOUND", "Booking not found", http.StatusNotFound)
	// ErrPriceMismatch is returned when the submitted total does not match price times quantity.
	ErrPriceMismatch = apperrors.New("BOOKING_PRICE_INVALID", "Price not valid", http.StatusBadRequest)
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	return database.IsUniqueViolation(err)
}
