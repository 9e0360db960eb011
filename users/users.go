package users

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// LinkedIdentity ties a local user to an account at an identity provider.
type LinkedIdentity struct {
	Provider string    `json:"provider"`
	UserID   string    `json:"user_id"`
	LinkedAt time.Time `json:"linked_at"`
}

type User struct {
	ID           string           `json:"id,omitempty"`           // Unique identifier for the user
	Email        string           `json:"email,omitempty"`        // User's email address
	DisplayName  string           `json:"display_name,omitempty"` // Name reported by the provider
	Domain       string           `json:"domain,omitempty"`       // Hosted domain reported by the provider
	PasswordHash string           `json:"-"`                      // Hashed local password - never serialize
	DateJoined   time.Time        `json:"date_joined,omitempty"`  // Date and time when the user registered
	LastLogin    time.Time        `json:"last_login,omitempty"`   // Last time the user logged in
	Identities   []LinkedIdentity `json:"identities,omitempty"`   // Provider accounts that can log in as this user

	Blocked  bool `json:"blocked,omitempty"`  // Blocked, has the user been blocked from logging in
	LoggedIn bool `json:"loggedIn,omitempty"` // LoggedIn, Is the user currently loggedIn
}

// IdentityKey is the directory key of a provider account.
func IdentityKey(provider, userID string) string {
	return strings.ToLower(provider) + ":" + userID
}

// HasIdentity reports whether the provider account is linked to the user.
func (u *User) HasIdentity(provider, userID string) bool {
	for _, id := range u.Identities {
		if strings.EqualFold(id.Provider, provider) && id.UserID == userID {
			return true
		}
	}
	return false
}

// LinkIdentity adds the provider account to the user if it is not already linked.
func (u *User) LinkIdentity(provider, userID string, at time.Time) {
	if u.HasIdentity(provider, userID) {
		return
	}
	u.Identities = append(u.Identities, LinkedIdentity{Provider: provider, UserID: userID, LinkedAt: at})
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// RandomPassword returns a password nobody knows, used for accounts that are
// created by a third-party login.
func RandomPassword() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
