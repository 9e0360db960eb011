package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// sessionID returns the id carried by the signed session cookie, issuing a
// new session and cookie when the request has none or an invalid one.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		id, err := s.cookies.Decode(c.Value)
		if err == nil {
			return id, nil
		}
		log.Debug().Err(err).Msg("discarding session cookie")
	}

	id := uuid.New().String()
	value, err := s.cookies.Encode(id)
	if err != nil {
		return "", err
	}
	s.setSessionCookie(w, value, s.cookies.MaxAge())
	return id, nil
}

// currentSessionID returns the id of the session cookie without issuing one.
func (s *Server) currentSessionID(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	id, err := s.cookies.Decode(c.Value)
	if err != nil {
		return ""
	}
	return id
}

// setSessionCookie sets the session cookie
func (s *Server) setSessionCookie(w http.ResponseWriter, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.config.GetSecureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.GetSecureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}
