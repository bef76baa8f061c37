package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinTokenBytes is the smallest entropy accepted for opaque tokens (128 bits).
const MinTokenBytes = 16

// ErrTokenTooShort is returned when a caller asks for fewer than MinTokenBytes.
var ErrTokenTooShort = errors.New("crypto: token length below minimum entropy")

// HashPassword returns a bcrypt hash of the supplied password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares the hashed password with the plaintext candidate.
func VerifyPassword(hashedPassword, password string) bool {
	if hashedPassword == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// GenerateToken returns a random URL-safe token of the requested byte length.
func GenerateToken(length int) (string, error) {
	buffer, err := randomBytes(length)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// GenerateHexToken returns length random bytes encoded as lowercase hex.
func GenerateHexToken(length int) (string, error) {
	buffer, err := randomBytes(length)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buffer), nil
}

func randomBytes(length int) ([]byte, error) {
	if length < MinTokenBytes {
		return nil, ErrTokenTooShort
	}
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return nil, err
	}
	return buffer, nil
}
