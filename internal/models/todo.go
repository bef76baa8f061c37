package models

import (
	"time"

	"gorm.io/datatypes"
)

// Category groups todos; names are unique.
type Category struct {
	BaseModel

	Name string `gorm:"uniqueIndex;size:64;not null" json:"name"`
}

// TodoPackage is a priced offering of a todo for a number of people.
type TodoPackage struct {
	Pax         int      `json:"pax"`
	Price       int64    `json:"price"`
	Description string   `json:"description,omitempty"`
	Includes    []string `json:"includes,omitempty"`
}

// ItinerarySchedule is one activity on a given day.
type ItinerarySchedule struct {
	Activity string `json:"activity"`
	Time     string `json:"time"`
	DayCount int    `json:"dayCount"`
}

// Itinerary describes the day-by-day plan of a todo.
type Itinerary struct {
	TotalDay  int                 `json:"totalDay"`
	Schedules []ItinerarySchedule `json:"schedules"`
}

// Location is where a todo takes place.
type Location struct {
	Area    string `json:"area"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

// Todo is a bookable tour or activity listing.
type Todo struct {
	BaseModel

	Title       string    `gorm:"uniqueIndex;size:100;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	PartnerID   string    `gorm:"type:uuid;index;not null" json:"partnerId"`
	Partner     *Partner  `gorm:"constraint:OnDelete:CASCADE" json:"partner,omitempty"`
	CategoryID  *string   `gorm:"type:uuid;index" json:"categoryId,omitempty"`
	Category    *Category `json:"category,omitempty"`

	Images     []TodoImage                      `gorm:"foreignKey:TodoID" json:"images,omitempty"`
	Includes   datatypes.JSONSlice[string]      `json:"includes"`
	Highlights datatypes.JSONSlice[string]      `json:"highlights"`
	LongLat    datatypes.JSONSlice[float64]     `json:"longLat"`
	Packages   datatypes.JSONSlice[TodoPackage] `json:"packages"`
	Itinerary  datatypes.JSONType[Itinerary]    `json:"itinerary"`
	Location   datatypes.JSONType[Location]     `json:"location"`

	MinReservationDay     int        `json:"minReservationDay"`
	IsInstantConfirmation bool       `json:"isInstantConfirmation"`
	IsActive              bool       `gorm:"index" json:"isActive"`
	IsRefundable          bool       `json:"isRefundable"`
	AvailableFrom         *time.Time `json:"availableFrom,omitempty"`
	AvailableTo           *time.Time `json:"availableTo,omitempty"`

	// Price is the cheapest package price.
	Price        int64   `gorm:"index" json:"price"`
	Rating       float64 `gorm:"default:0;index" json:"rating"`
	ReviewCount  int     `gorm:"default:0" json:"reviewCount"`
	BookingCount int     `gorm:"default:0;index" json:"bookingCount"`
}

// TodoImage is a hosted image attached to a todo.
type TodoImage struct {
	BaseModel

	TodoID   string `gorm:"type:uuid;index;not null" json:"todoId"`
	URL      string `gorm:"not null" json:"url"`
	FileSize int64  `json:"fileSize"`
}

// MinPackagePrice returns the cheapest package price, or zero without packages.
func MinPackagePrice(packages []TodoPackage) int64 {
	var lowest int64
	for i, pkg := range packages {
		if i == 0 || pkg.Price < lowest {
			lowest = pkg.Price
		}
	}
	return lowest
}
