package database

import (
	"gorm.io/gorm"

	"github.com/goout-id/goout/internal/models"
)

// DefaultCategories are created on first start so listings can be filed
// before any custom category exists.
var DefaultCategories = []string{"Adventure", "Culture", "Culinary", "Nature", "Water Sport"}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.VerificationSession{},
		&models.VerificationToken{},
		&models.Partner{},
		&models.Category{},
		&models.Todo{},
		&models.TodoImage{},
		&models.Review{},
		&models.ReviewImage{},
		&models.Booking{},
		&models.Bookmark{},
		&models.CacheEntry{},
	)
}

// SeedData inserts the default categories if they are missing.
func SeedData(db *gorm.DB) error {
	for _, name := range DefaultCategories {
		category := models.Category{Name: name}
		if err := db.Where(models.Category{Name: name}).Attrs(category).FirstOrCreate(&models.Category{}).Error; err != nil {
			return err
		}
	}
	return nil
}
