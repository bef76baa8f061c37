package models

import "time"

// User is an account created by registration or by the first identity
// provider login.
type User struct {
	BaseModel

	Email        string `gorm:"uniqueIndex;size:191;not null" json:"email"`
	FullName     string `gorm:"size:191" json:"fullName"`
	PasswordHash string `json:"-"`
	Image        string `json:"image,omitempty"`

	// EmailVerified is nil until the address has been confirmed. It is set
	// once and never cleared.
	EmailVerified *time.Time `json:"emailVerified"`

	Provider        string `gorm:"size:64;index:idx_users_provider_subject" json:"provider,omitempty"`
	ProviderSubject string `gorm:"size:191;index:idx_users_provider_subject" json:"-"`
}

// IsVerified reports whether the email address has been confirmed.
func (u *User) IsVerified() bool {
	return u != nil && u.EmailVerified != nil
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}
