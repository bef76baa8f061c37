package models

import "time"

// VerificationSession is a short-lived ticket allowing a single "send me a
// verification email" action. It is unrelated to login sessions. A user
// owns at most one row.
type VerificationSession struct {
	BaseModel

	SessionToken string    `gorm:"uniqueIndex;size:255;not null" json:"-"`
	UserID       string    `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	User         *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Expires      time.Time `gorm:"index;not null" json:"expires"`
}

// TableName pins the table name.
func (VerificationSession) TableName() string {
	return "verification_sessions"
}

// Expired reports whether the session is past its expiry at now.
func (s *VerificationSession) Expired(now time.Time) bool {
	return s.Expires.Before(now)
}

// VerificationToken is single-use proof of control over Identifier, an email
// address. It is keyed by the address rather than a user id.
type VerificationToken struct {
	Token      string    `gorm:"primaryKey;size:255" json:"-"`
	Identifier string    `gorm:"size:191;index;not null" json:"identifier"`
	Expires    time.Time `gorm:"index;not null" json:"expires"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Expired reports whether the token is past its expiry at now.
func (t *VerificationToken) Expired(now time.Time) bool {
	return t.Expires.Before(now)
}
