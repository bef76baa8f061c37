package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/goout-id/goout/internal/models"
	apperrors "github.com/goout-id/goout/pkg/errors"
)

// Review constraints.
const (
	MinReviewContent = 12
	MinReviewRating  = 1
	MaxReviewRating  = 5
)

// ReviewInput is a review submitted by an authenticated user.
type ReviewInput struct {
	TodoID  string
	UserID  string
	Content string
	Rating  int
	Images  []string
}

// ReviewService stores reviews and keeps todo and partner ratings current.
type ReviewService struct {
	db *gorm.DB
}

// NewReviewService constructs a ReviewService.
func NewReviewService(db *gorm.DB) (*ReviewService, error) {
	if db == nil {
		return nil, errors.New("review service: db is required")
	}
	return &ReviewService{db: db}, nil
}

// Create stores a review. A user reviews a todo at most once.
func (s *ReviewService) Create(ctx context.Context, input ReviewInput) (*models.Review, error) {
	ctx = ensureContext(ctx)

	content := strings.TrimSpace(input.Content)
	if len([]rune(content)) < MinReviewContent {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("content must be at least %d characters", MinReviewContent))
	}
	if input.Rating < MinReviewRating || input.Rating > MaxReviewRating {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("rating must be between %d and %d", MinReviewRating, MaxReviewRating))
	}

	review := &models.Review{
		Content: content,
		Rating:  input.Rating,
		TodoID:  input.TodoID,
		UserID:  input.UserID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var todo models.Todo
		if err := tx.Select("id", "partner_id").First(&todo, "id = ?", input.TodoID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTodoNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.Review{}).
			Where("todo_id = ? AND user_id = ?", input.TodoID, input.UserID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyReviewed
		}

		for _, url := range normaliseStrings(input.Images) {
			review.Images = append(review.Images, models.ReviewImage{URL: url})
		}
		if err := tx.Create(review).Error; err != nil {
			return err
		}

		if err := refreshTodoRating(tx, todo.ID); err != nil {
			return err
		}
		return refreshPartnerRating(tx, todo.PartnerID)
	})
	switch {
	case err == nil:
		return review, nil
	case errors.Is(err, ErrTodoNotFound), errors.Is(err, ErrAlreadyReviewed):
		return nil, err
	case isUniqueConstraintError(err):
		return nil, ErrAlreadyReviewed
	}
	return nil, fmt.Errorf("review service: create: %w", err)
}

// List returns one page of a todo's reviews. OrderBy is latest, most_helpful,
// desc (highest rating, default) or asc.
func (s *ReviewService) List(ctx context.Context, todoID string, opts ListOptions) ([]models.Review, int64, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Review{}).Where("todo_id = ?", todoID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("review service: count: %w", err)
	}

	switch opts.OrderBy {
	case "latest":
		query = query.Order("created_at DESC")
	case "most_helpful":
		query = query.Order("helpful_count DESC")
	case "asc":
		query = query.Order("rating ASC")
	default:
		query = query.Order("rating DESC")
	}

	var reviews []models.Review
	if err := query.Preload("User").Preload("Images").
		Offset(opts.offset()).Limit(PageSize).
		Find(&reviews).Error; err != nil {
		return nil, 0, fmt.Errorf("review service: list: %w", err)
	}
	return reviews, total, nil
}

type ratingSummary struct {
	Average float64
	Count   int
}

func refreshTodoRating(tx *gorm.DB, todoID string) error {
	var summary ratingSummary
	if err := tx.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("todo_id = ?", todoID).
		Scan(&summary).Error; err != nil {
		return fmt.Errorf("summarise todo reviews: %w", err)
	}
	return tx.Model(&models.Todo{}).Where("id = ?", todoID).Updates(map[string]any{
		"rating":       summary.Average,
		"review_count": summary.Count,
	}).Error
}

func refreshPartnerRating(tx *gorm.DB, partnerID string) error {
	var summary ratingSummary
	if err := tx.Model(&models.Review{}).
		Select("COALESCE(AVG(reviews.rating), 0) AS average, COUNT(*) AS count").
		Joins("JOIN todos ON todos.id = reviews.todo_id").
		Where("todos.partner_id = ?", partnerID).
		Scan(&summary).Error; err != nil {
		return fmt.Errorf("summarise partner reviews: %w", err)
	}
	return tx.Model(&models.Partner{}).Where("id = ?", partnerID).Updates(map[string]any{
		"rating":       summary.Average,
		"review_count": summary.Count,
	}).Error
}
