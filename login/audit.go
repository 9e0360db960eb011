package login

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// CsrfMismatchReport is the detailed record of a callback whose state did
// not match the session. It never contains the expected state itself.
type CsrfMismatchReport struct {
	SessionID     string
	Provider      string
	HadState      bool // whether the session held a state token at all
	ReceivedState string
	RemoteAddr    string
	UserAgent     string
	Time          time.Time
}

// SecurityAuditor records events that may indicate an attack.
type SecurityAuditor interface {
	CsrfMismatch(ctx context.Context, report CsrfMismatchReport)
}

// LogAuditor writes security events to the zerolog logger.
type LogAuditor struct{}

var _ SecurityAuditor = LogAuditor{}

func (LogAuditor) CsrfMismatch(_ context.Context, r CsrfMismatchReport) {
	log.Warn().
		Str("security", "csrf_mismatch").
		Str("session_id", r.SessionID).
		Str("provider", r.Provider).
		Bool("session_had_state", r.HadState).
		Str("received_state", truncate(r.ReceivedState, 64)).
		Str("remote_addr", r.RemoteAddr).
		Str("user_agent", truncate(r.UserAgent, 256)).
		Time("at", r.Time).
		Msg("login callback state does not match the session, possible CSRF attempt")
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
