package models

// Review is a user's rating and comment on a todo. A user reviews a todo once.
type Review struct {
	BaseModel

	Content      string        `gorm:"type:text;not null" json:"content"`
	Rating       int           `gorm:"not null" json:"rating"`
	HelpfulCount int           `gorm:"default:0" json:"helpfulCount"`
	TodoID       string        `gorm:"type:uuid;uniqueIndex:idx_reviews_todo_user;not null" json:"todoId"`
	Todo         *Todo         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserID       string        `gorm:"type:uuid;uniqueIndex:idx_reviews_todo_user;not null" json:"userId"`
	User         *User         `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Images       []ReviewImage `gorm:"foreignKey:ReviewID" json:"images,omitempty"`
}

// ReviewImage is a hosted image attached to a review.
type ReviewImage struct {
	BaseModel

	ReviewID string `gorm:"type:uuid;index;not null" json:"reviewId"`
	URL      string `gorm:"not null" json:"url"`
}
