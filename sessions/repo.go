package sessions

import "context"

// Repo defines the interface for session storage operations.
type Repo interface {
	// Get retrieves a session by ID, returning errors.ErrSessionNotFound if absent
	Get(ctx context.Context, sessionID string) (*SessionData, error)

	// Upsert creates or updates a session
	Upsert(ctx context.Context, sessionID string, sessionData *SessionData) error

	// Delete removes a session by ID
	Delete(ctx context.Context, sessionID string) error

	// ConsumeState atomically compares state against the stored CSRF token and
	// clears it on a match, so a token can be redeemed at most once.
	ConsumeState(ctx context.Context, sessionID, state string) (bool, error)
}
