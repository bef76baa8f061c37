package models

import "time"

// Booking statuses.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
)

// Booking reserves a todo for a user over a date range.
type Booking struct {
	BaseModel

	Quantity   int       `gorm:"not null" json:"quantity"`
	TotalPrice int64     `gorm:"not null" json:"totalPrice"`
	StartDate  time.Time `gorm:"not null" json:"startDate"`
	EndDate    time.Time `gorm:"not null" json:"endDate"`
	Status     string    `gorm:"size:32;not null" json:"status"`
	TodoID     string    `gorm:"type:uuid;index;not null" json:"todoId"`
	Todo       *Todo     `gorm:"constraint:OnDelete:CASCADE" json:"todo,omitempty"`
	UserID     string    `gorm:"type:uuid;index;not null" json:"userId"`
	User       *User     `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
}
