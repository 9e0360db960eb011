package sessions

import (
	"time"
)

// SessionData is the per-browser login state. It is created on the first
// request into the login flow and keyed by the session cookie.
type SessionData struct {
	ID        string    // Unique session identifier (UUID), carried by the signed session cookie
	Provider  string    // Provider selected for the current login attempt
	State     string    // Single-use CSRF state token, empty once consumed
	Timestamp time.Time // When the session was created

	// Only present mid-flow, never beyond the login transaction.
	AccessToken string
	IssuedAt    time.Time
	ExpiresAt   time.Time

	LastURL string // Where to send the browser after a successful login
	UserID  string // Local user once logged in
}

// ClearLoginState drops every value tied to a single login attempt.
func (s *SessionData) ClearLoginState() {
	s.State = ""
	s.AccessToken = ""
	s.IssuedAt = time.Time{}
	s.ExpiresAt = time.Time{}
}

// TokenExpired reports whether there is no token expiry or it is in the past.
func (s *SessionData) TokenExpired(now time.Time) bool {
	return s.ExpiresAt.IsZero() || now.After(s.ExpiresAt)
}
