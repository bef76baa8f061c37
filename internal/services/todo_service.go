package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/goout-id/goout/internal/models"
)

// TodoInput describes a todo listing as submitted by a partner.
type TodoInput struct {
	Title                 string
	Description           string
	PartnerID             string
	Images                []string
	Includes              []string
	Highlights            []string
	MinReservationDay     int
	IsInstantConfirmation bool
	IsActive              *bool
	IsRefundable          bool
	AvailableFrom         *time.Time
	AvailableTo           *time.Time
	LongLat               []float64
	Category              string
	Packages              []models.TodoPackage
	Itinerary             models.Itinerary
	Location              models.Location
}

// TodoService manages todo listings.
type TodoService struct {
	db *gorm.DB
}

// NewTodoService constructs a TodoService.
func NewTodoService(db *gorm.DB) (*TodoService, error) {
	if db == nil {
		return nil, errors.New("todo service: db is required")
	}
	return &TodoService{db: db}, nil
}

// Create inserts a todo. Its price is the cheapest package and its category
// is created on first use.
func (s *TodoService) Create(ctx context.Context, input TodoInput) (*models.Todo, error) {
	ctx = ensureContext(ctx)

	todo := &models.Todo{PartnerID: strings.TrimSpace(input.PartnerID)}
	applyTodoInput(todo, input)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureTitleFree(tx, todo.Title, ""); err != nil {
			return err
		}
		if err := ensurePartner(tx, todo.PartnerID); err != nil {
			return err
		}

		categoryID, err := upsertCategory(tx, input.Category)
		if err != nil {
			return err
		}
		todo.CategoryID = categoryID

		if err := tx.Create(todo).Error; err != nil {
			return err
		}
		return replaceTodoImages(tx, todo, input.Images)
	})
	if err != nil {
		return nil, todoError("create", err)
	}
	return todo, nil
}

// List returns one page of todos. OrderBy is most_popular (default),
// lowest_price, highest_price, highest_rating or newest.
func (s *TodoService) List(ctx context.Context, opts ListOptions) ([]models.Todo, int64, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Todo{})
	if q := opts.search(); q != "" {
		query = query.Where("LOWER(title) LIKE ?", likePattern(q))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("todo service: count: %w", err)
	}

	switch opts.OrderBy {
	case "lowest_price":
		query = query.Order("price ASC")
	case "highest_price":
		query = query.Order("price DESC")
	case "highest_rating":
		query = query.Order("rating DESC").Order("review_count DESC")
	case "newest":
		query = query.Order("created_at DESC")
	default:
		query = query.Order("booking_count DESC").Order("review_count DESC")
	}

	var todos []models.Todo
	if err := query.Preload("Images").Offset(opts.offset()).Limit(PageSize).Find(&todos).Error; err != nil {
		return nil, 0, fmt.Errorf("todo service: list: %w", err)
	}
	return todos, total, nil
}

// Get loads a todo with its partner, category and images.
func (s *TodoService) Get(ctx context.Context, id string) (*models.Todo, error) {
	ctx = ensureContext(ctx)

	var todo models.Todo
	err := s.db.WithContext(ctx).
		Preload("Partner").
		Preload("Category").
		Preload("Images").
		First(&todo, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTodoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("todo service: get: %w", err)
	}
	return &todo, nil
}

// Update replaces every attribute of a todo. Images are replaced wholesale.
func (s *TodoService) Update(ctx context.Context, id string, input TodoInput) (*models.Todo, error) {
	ctx = ensureContext(ctx)

	var todo models.Todo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&todo, "id = ?", id).Error; err != nil {
			return err
		}

		applyTodoInput(&todo, input)
		if err := ensureTitleFree(tx, todo.Title, todo.ID); err != nil {
			return err
		}

		categoryID, err := upsertCategory(tx, input.Category)
		if err != nil {
			return err
		}
		todo.CategoryID = categoryID
		todo.Category = nil

		if err := tx.Omit("Images", "Partner", "Category").Save(&todo).Error; err != nil {
			return err
		}
		return replaceTodoImages(tx, &todo, input.Images)
	})
	if err != nil {
		return nil, todoError("update", err)
	}
	return &todo, nil
}

// Delete removes a todo together with its images, reviews, bookmarks and bookings.
func (s *TodoService) Delete(ctx context.Context, id string) (*models.Todo, error) {
	ctx = ensureContext(ctx)

	var todo models.Todo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&todo, "id = ?", id).Error; err != nil {
			return err
		}
		return deleteTodos(tx, []string{todo.ID})
	})
	if err != nil {
		return nil, todoError("delete", err)
	}
	return &todo, nil
}

func applyTodoInput(todo *models.Todo, input TodoInput) {
	todo.Title = strings.TrimSpace(input.Title)
	todo.Description = strings.TrimSpace(input.Description)
	todo.Includes = datatypes.JSONSlice[string](normaliseStrings(input.Includes))
	todo.Highlights = datatypes.JSONSlice[string](normaliseStrings(input.Highlights))
	todo.LongLat = datatypes.JSONSlice[float64](input.LongLat)
	todo.Packages = datatypes.JSONSlice[models.TodoPackage](input.Packages)
	todo.Itinerary = datatypes.NewJSONType(input.Itinerary)
	todo.Location = datatypes.NewJSONType(input.Location)
	todo.MinReservationDay = input.MinReservationDay
	todo.IsInstantConfirmation = input.IsInstantConfirmation
	todo.IsRefundable = input.IsRefundable
	todo.AvailableFrom = input.AvailableFrom
	todo.AvailableTo = input.AvailableTo
	todo.Price = models.MinPackagePrice(input.Packages)

	todo.IsActive = true
	if input.IsActive != nil {
		todo.IsActive = *input.IsActive
	}
}

func ensureTitleFree(tx *gorm.DB, title, exceptID string) error {
	query := tx.Model(&models.Todo{}).Where("title = ?", title)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrTodoExists
	}
	return nil
}

func ensurePartner(tx *gorm.DB, partnerID string) error {
	var count int64
	if err := tx.Model(&models.Partner{}).Where("id = ?", partnerID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrPartnerNotFound
	}
	return nil
}

func upsertCategory(tx *gorm.DB, name string) (*string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	category := models.Category{Name: name}
	if err := tx.Where(models.Category{Name: name}).FirstOrCreate(&category).Error; err != nil {
		return nil, fmt.Errorf("upsert category: %w", err)
	}
	return &category.ID, nil
}

func replaceTodoImages(tx *gorm.DB, todo *models.Todo, urls []string) error {
	if err := tx.Where("todo_id = ?", todo.ID).Delete(&models.TodoImage{}).Error; err != nil {
		return fmt.Errorf("delete images: %w", err)
	}

	urls = normaliseStrings(urls)
	todo.Images = make([]models.TodoImage, 0, len(urls))
	for _, url := range urls {
		todo.Images = append(todo.Images, models.TodoImage{TodoID: todo.ID, URL: url})
	}
	if len(todo.Images) == 0 {
		return nil
	}
	if err := tx.Create(&todo.Images).Error; err != nil {
		return fmt.Errorf("create images: %w", err)
	}
	return nil
}

// deleteTodos removes todos and every row that references them.
func deleteTodos(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	var reviewIDs []string
	if err := tx.Model(&models.Review{}).Where("todo_id IN ?", ids).Pluck("id", &reviewIDs).Error; err != nil {
		return fmt.Errorf("list reviews: %w", err)
	}
	if len(reviewIDs) > 0 {
		if err := tx.Where("review_id IN ?", reviewIDs).Delete(&models.ReviewImage{}).Error; err != nil {
			return fmt.Errorf("delete review images: %w", err)
		}
	}

	steps := []struct {
		model  any
		column string
	}{
		{&models.Review{}, "todo_id"},
		{&models.Bookmark{}, "todo_id"},
		{&models.Booking{}, "todo_id"},
		{&models.TodoImage{}, "todo_id"},
		{&models.Todo{}, "id"},
	}
	for _, step := range steps {
		if err := tx.Where(step.column+" IN ?", ids).Delete(step.model).Error; err != nil {
			return fmt.Errorf("delete %T: %w", step.model, err)
		}
	}
	return nil
}

func todoError(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrTodoNotFound
	case errors.Is(err, ErrTodoExists), isUniqueConstraintError(err):
		return ErrTodoExists
	case errors.Is(err, ErrPartnerNotFound):
		return ErrPartnerNotFound
	}
	return fmt.Errorf("todo service: %s: %w", op, err)
}
