package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/goout-id/goout/internal/models"
)

// PartnerInput describes the mutable partner attributes.
type PartnerInput struct {
	Email       string
	Name        string
	Description string
	ImageURL    string
}

// PartnerService manages partner CRUD.
type PartnerService struct {
	db *gorm.DB
}

// NewPartnerService constructs a PartnerService.
func NewPartnerService(db *gorm.DB) (*PartnerService, error) {
	if db == nil {
		return nil, errors.New("partner service: db is required")
	}
	return &PartnerService{db: db}, nil
}

// Create inserts a partner; names are unique.
func (s *PartnerService) Create(ctx context.Context, input PartnerInput) (*models.Partner, error) {
	ctx = ensureContext(ctx)

	partner := &models.Partner{
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		ImageURL:    strings.TrimSpace(input.ImageURL),
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Partner{}).Where("name = ?", partner.Name).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("partner service: check name: %w", err)
	}
	if count > 0 {
		return nil, ErrPartnerExists
	}

	if err := s.db.WithContext(ctx).Create(partner).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrPartnerExists
		}
		return nil, fmt.Errorf("partner service: create: %w", err)
	}
	return partner, nil
}

// List returns one page of partners. OrderBy is latest, asc (default) or desc.
func (s *PartnerService) List(ctx context.Context, opts ListOptions) ([]models.Partner, int64, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Partner{})
	if q := opts.search(); q != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(q))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("partner service: count: %w", err)
	}

	switch opts.OrderBy {
	case "latest":
		query = query.Order("created_at DESC")
	case "desc":
		query = query.Order("name DESC")
	default:
		query = query.Order("name ASC")
	}

	var partners []models.Partner
	if err := query.Offset(opts.offset()).Limit(PageSize).Find(&partners).Error; err != nil {
		return nil, 0, fmt.Errorf("partner service: list: %w", err)
	}
	return partners, total, nil
}

// Get loads a partner with its todos.
func (s *PartnerService) Get(ctx context.Context, id string) (*models.Partner, error) {
	ctx = ensureContext(ctx)

	var partner models.Partner
	err := s.db.WithContext(ctx).Preload("Todos").First(&partner, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPartnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("partner service: get: %w", err)
	}
	return &partner, nil
}

// Update replaces a partner's attributes.
func (s *PartnerService) Update(ctx context.Context, id string, input PartnerInput) (*models.Partner, error) {
	ctx = ensureContext(ctx)

	var partner models.Partner
	err := s.db.WithContext(ctx).First(&partner, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPartnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("partner service: load: %w", err)
	}

	updates := map[string]any{
		"email":       strings.ToLower(strings.TrimSpace(input.Email)),
		"name":        strings.TrimSpace(input.Name),
		"description": strings.TrimSpace(input.Description),
		"image_url":   strings.TrimSpace(input.ImageURL),
	}
	if err := s.db.WithContext(ctx).Model(&partner).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrPartnerExists
		}
		return nil, fmt.Errorf("partner service: update: %w", err)
	}
	if err := s.db.WithContext(ctx).First(&partner, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("partner service: reload: %w", err)
	}
	return &partner, nil
}

// Delete removes a partner and every todo it owns.
func (s *PartnerService) Delete(ctx context.Context, id string) (*models.Partner, error) {
	ctx = ensureContext(ctx)

	var partner models.Partner
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&partner, "id = ?", id).Error; err != nil {
			return err
		}
		var todoIDs []string
		if err := tx.Model(&models.Todo{}).Where("partner_id = ?", id).Pluck("id", &todoIDs).Error; err != nil {
			return err
		}
		if err := deleteTodos(tx, todoIDs); err != nil {
			return err
		}
		return tx.Delete(&partner).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPartnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("partner service: delete: %w", err)
	}
	return &partner, nil
}
