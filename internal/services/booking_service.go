package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/goout-id/goout/internal/models"
	apperrors "github.com/goout-id/goout/pkg/errors"
	"github.com/goout-id/goout/pkg/metrics"
)

// BookingInput is a reservation request for a todo.
type BookingInput struct {
	TodoID     string
	UserID     string
	Quantity   int
	TotalPrice int64
	StartDate  time.Time
	EndDate    time.Time
}

// BookingService creates and queries reservations.
type BookingService struct {
	db *gorm.DB
}

// NewBookingService constructs a BookingService.
func NewBookingService(db *gorm.DB) (*BookingService, error) {
	if db == nil {
		return nil, errors.New("booking service: db is required")
	}
	return &BookingService{db: db}, nil
}

// Create books a todo. TotalPrice must equal the todo price times Quantity.
func (s *BookingService) Create(ctx context.Context, input BookingInput) (*models.Booking, error) {
	ctx = ensureContext(ctx)

	if input.Quantity <= 0 {
		return nil, apperrors.NewBadRequest("quantity must be positive")
	}
	if input.EndDate.Before(input.StartDate) {
		return nil, apperrors.NewBadRequest("endDate must not be before startDate")
	}

	booking := &models.Booking{
		Quantity:   input.Quantity,
		TotalPrice: input.TotalPrice,
		StartDate:  input.StartDate.UTC(),
		EndDate:    input.EndDate.UTC(),
		Status:     models.BookingStatusPending,
		TodoID:     input.TodoID,
		UserID:     input.UserID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var todo models.Todo
		if err := tx.Select("id", "price").First(&todo, "id = ?", input.TodoID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTodoNotFound
			}
			return err
		}

		var users int64
		if err := tx.Model(&models.User{}).Where("id = ?", input.UserID).Count(&users).Error; err != nil {
			return err
		}
		if users == 0 {
			return ErrUserNotFound
		}

		if todo.Price*int64(input.Quantity) != input.TotalPrice {
			return ErrPriceMismatch
		}

		if err := tx.Create(booking).Error; err != nil {
			return err
		}
		return tx.Model(&models.Todo{}).Where("id = ?", todo.ID).
			UpdateColumn("booking_count", gorm.Expr("booking_count + ?", 1)).Error
	})
	switch {
	case err == nil:
		metrics.Bookings.Inc()
		return booking, nil
	case errors.Is(err, ErrTodoNotFound), errors.Is(err, ErrUserNotFound), errors.Is(err, ErrPriceMismatch):
		return nil, err
	}
	return nil, fmt.Errorf("booking service: create: %w", err)
}

// List returns one page of bookings. Query matches the todo title or the
// booking user's name or email. OrderBy is desc (newest first, default) or asc.
func (s *BookingService) List(ctx context.Context, opts ListOptions) ([]models.Booking, int64, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Booking{})
	if q := opts.search(); q != "" {
		pattern := likePattern(q)
		query = query.
			Joins("JOIN todos ON todos.id = bookings.todo_id").
			Joins("JOIN users ON users.id = bookings.user_id").
			Where("LOWER(todos.title) LIKE ? OR LOWER(users.full_name) LIKE ? OR LOWER(users.email) LIKE ?",
				pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("booking service: count: %w", err)
	}

	if opts.OrderBy == "asc" {
		query = query.Order("bookings.created_at ASC")
	} else {
		query = query.Order("bookings.created_at DESC")
	}

	var bookings []models.Booking
	if err := query.Preload("Todo").Preload("User").
		Offset(opts.offset()).Limit(PageSize).
		Find(&bookings).Error; err != nil {
		return nil, 0, fmt.Errorf("booking service: list: %w", err)
	}
	return bookings, total, nil
}

// Get loads a booking with its todo and user.
func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	ctx = ensureContext(ctx)

	var booking models.Booking
	err := s.db.WithContext(ctx).Preload("Todo").Preload("User").First(&booking, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("booking service: get: %w", err)
	}
	return &booking, nil
}

// Delete cancels a booking.
func (s *BookingService) Delete(ctx context.Context, id string) (*models.Booking, error) {
	ctx = ensureContext(ctx)

	var booking models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&booking, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&booking).Error; err != nil {
			return err
		}
		return tx.Model(&models.Todo{}).
			Where("id = ? AND booking_count > 0", booking.TodoID).
			UpdateColumn("booking_count", gorm.Expr("booking_count - ?", 1)).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("booking service: delete: %w", err)
	}
	return &booking, nil
}
