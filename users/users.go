package users

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID           string    `json:"id,omitempty"`       // Unique identifier for the user
	Username     string    `json:"username,omitempty"` // Public display name, returned to the widget
	Email        string    `json:"email,omitempty"`    // Login identifier
	PasswordHash string    `json:"-"`                  // Hashed version of the user's password - never serialize
	Photo        string    `json:"photo,omitempty"`    // Avatar URL, returned to the widget
	Blocked      bool      `json:"blocked,omitempty"`  // Blocked users cannot complete a login
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the user's stored hash.
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}
