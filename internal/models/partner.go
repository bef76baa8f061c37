package models

// Partner offers todos on the marketplace.
type Partner struct {
	BaseModel

	Email       string  `gorm:"size:191;not null" json:"email"`
	Name        string  `gorm:"uniqueIndex;size:36;not null" json:"name"`
	Description string  `gorm:"size:191" json:"description"`
	ImageURL    string  `json:"imageUrl"`
	Rating      float64 `gorm:"default:0" json:"rating"`
	ReviewCount int     `gorm:"default:0" json:"reviewCount"`

	Todos []Todo `gorm:"foreignKey:PartnerID" json:"todos,omitempty"`
}
