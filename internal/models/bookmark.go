package models

// Bookmark marks a todo as saved by a user.
type Bookmark struct {
	BaseModel

	TodoID string `gorm:"type:uuid;uniqueIndex:idx_bookmarks_todo_user;not null" json:"todoId"`
	Todo   *Todo  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserID string `gorm:"type:uuid;uniqueIndex:idx_bookmarks_todo_user;not null" json:"userId"`
	User   *User  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
