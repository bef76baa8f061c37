package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/goout-id/goout/internal/models"
)

// BookmarkService records which todos a user has saved.
type BookmarkService struct {
	db *gorm.DB
}

// NewBookmarkService constructs a BookmarkService.
func NewBookmarkService(db *gorm.DB) (*BookmarkService, error) {
	if db == nil {
		return nil, errors.New("bookmark service: db is required")
	}
	return &BookmarkService{db: db}, nil
}

// Add bookmarks todoID for userID.
func (s *BookmarkService) Add(ctx context.Context, userID, todoID string) (*models.Bookmark, error) {
	ctx = ensureContext(ctx)

	var todo models.Todo
	err := s.db.WithContext(ctx).Select("id").First(&todo, "id = ?", todoID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTodoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("bookmark service: load todo: %w", err)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Bookmark{}).
		Where("todo_id = ? AND user_id = ?", todoID, userID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("bookmark service: check: %w", err)
	}
	if count > 0 {
		return nil, ErrAlreadyBookmarked
	}

	bookmark := &models.Bookmark{TodoID: todoID, UserID: userID}
	if err := s.db.WithContext(ctx).Create(bookmark).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrAlreadyBookmarked
		}
		return nil, fmt.Errorf("bookmark service: create: %w", err)
	}
	return bookmark, nil
}

// Remove deletes the user's bookmark of todoID.
func (s *BookmarkService) Remove(ctx context.Context, userID, todoID string) (*models.Bookmark, error) {
	ctx = ensureContext(ctx)

	var bookmark models.Bookmark
	err := s.db.WithContext(ctx).First(&bookmark, "todo_id = ? AND user_id = ?", todoID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookmarkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("bookmark service: load: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&bookmark).Error; err != nil {
		return nil, fmt.Errorf("bookmark service: delete: %w", err)
	}
	return &bookmark, nil
}

// List returns the user's bookmarked todos, newest bookmark first.
func (s *BookmarkService) List(ctx context.Context, userID string, opts ListOptions) ([]models.Bookmark, int64, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Bookmark{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("bookmark service: count: %w", err)
	}

	var bookmarks []models.Bookmark
	if err := query.Preload("Todo").Preload("Todo.Images").
		Order("created_at DESC").
		Offset(opts.offset()).Limit(PageSize).
		Find(&bookmarks).Error; err != nil {
		return nil, 0, fmt.Errorf("bookmark service: list: %w", err)
	}
	return bookmarks, total, nil
}
