package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	autherrors "github.com/jrsteele09/go-auth-login/internal/errors"
	"github.com/jrsteele09/go-auth-login/login"
	"github.com/jrsteele09/go-auth-login/provider"
)

const (
	msgLoginFailed = "Sorry, we couldn't log you in. Please notify the admin or try again later."
	msgUserBlocked = "Sorry, we couldn't log you in. Your account has been blocked."
)

// httpSink turns a login outcome into the HTTP response of one request.
type httpSink struct {
	server    *Server
	w         http.ResponseWriter
	r         *http.Request
	sessionID string
}

var _ login.Sink = (*httpSink)(nil)

func (h *httpSink) Redirect(url string) {
	http.Redirect(h.w, h.r, url, http.StatusFound)
}

// Login signs the identity in as a local user. The session id is rotated so a
// cookie planted before login cannot ride the authenticated session.
func (h *httpSink) Login(ctx context.Context, identity *provider.Identity, returnURL string) {
	s := h.server

	user, err := s.users.LoginOrRegister(ctx, identity)
	if err != nil {
		log.Err(err).Str("provider", identity.Provider).Msg("login rejected by user directory")
		msg := msgLoginFailed
		if errors.Is(err, autherrors.ErrUserBlocked) {
			msg = msgUserBlocked
		}
		redirectWithError(h.w, h.r, RouteIndex, msg)
		return
	}

	session, err := s.sessions.Get(ctx, h.sessionID)
	if err != nil {
		log.Err(err).Str("session_id", h.sessionID).Msg("session vanished during login")
		redirectWithError(h.w, h.r, RouteIndex, msgLoginFailed)
		return
	}

	newID := uuid.New().String()
	value, err := s.cookies.Encode(newID)
	if err != nil {
		log.Err(err).Msg("failed to sign session cookie")
		redirectWithError(h.w, h.r, RouteIndex, msgLoginFailed)
		return
	}

	session.UserID = user.ID
	if err := s.sessions.Upsert(ctx, newID, session); err != nil {
		log.Err(err).Msg("failed to store logged in session")
		redirectWithError(h.w, h.r, RouteIndex, msgLoginFailed)
		return
	}
	if err := s.sessions.Delete(ctx, h.sessionID); err != nil {
		log.Err(err).Str("session_id", h.sessionID).Msg("failed to delete pre-login session")
	}
	s.setSessionCookie(h.w, value, s.cookies.MaxAge())

	log.Info().Str("user_id", user.ID).Str("provider", identity.Provider).Msg("user logged in")

	if returnURL == "" {
		returnURL = RouteIndex
	}
	redirectSuccess(h.w, h.r, returnURL)
}

func (h *httpSink) Fail(message string, _ error) {
	redirectWithError(h.w, h.r, RouteIndex, message)
}
