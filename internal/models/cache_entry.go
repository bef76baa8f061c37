package models

import "time"

// CacheEntry is a cached value stored by the database cache backend.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;column:cache_key;size:256"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
