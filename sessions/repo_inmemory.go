package sessions

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"

	autherrors "github.com/jrsteele09/go-auth-login/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of Repo
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]SessionData
}

// NewInMemoryRepo creates a new in-memory session repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]SessionData),
	}
}

// Get retrieves a copy of the session
func (r *InMemoryRepo) Get(_ context.Context, sessionID string) (*SessionData, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, autherrors.ErrSessionNotFound
	}
	return &session, nil
}

// Upsert stores a copy of the session to avoid external modifications
func (r *InMemoryRepo) Upsert(_ context.Context, sessionID string, sessionData *SessionData) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	if sessionData == nil {
		return fmt.Errorf("sessionData cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sessionData.ID = sessionID
	r.sessions[sessionID] = *sessionData
	return nil
}

// Delete removes a session
func (r *InMemoryRepo) Delete(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}

// ConsumeState compares and clears the CSRF state under the write lock
func (r *InMemoryRepo) ConsumeState(_ context.Context, sessionID, state string) (bool, error) {
	if sessionID == "" {
		return false, fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok || session.State == "" || state == "" {
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(session.State), []byte(state)) != 1 {
		return false, nil
	}

	session.State = ""
	r.sessions[sessionID] = session
	return true, nil
}
