package server

import (
	"net/http"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-login/internal/config"
	"github.com/jrsteele09/go-auth-login/users"
)

type providerLink struct {
	Name string
	URL  string
}

// IndexPageData contains data for rendering the home page
type IndexPageData struct {
	AppName   string
	User      *users.User
	Error     string
	Providers []providerLink
}

// IndexHandler renders the home page
func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("index.html")
	if err != nil {
		panic("Failed to parse index template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data := IndexPageData{
			AppName:   s.config.GetAppName(),
			User:      s.currentUser(r),
			Error:     r.URL.Query().Get("error"),
			Providers: s.providerLinks(),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("failed to render index")
		}
	}
}

// LogoutHandler ends the session and returns to the home page
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := s.currentSessionID(r); id != "" {
			if session, err := s.sessions.Get(ctx, id); err == nil {
				if err := s.users.Logout(ctx, session.UserID); err != nil {
					log.Err(err).Str("user_id", session.UserID).Msg("failed to mark user logged out")
				}
			}
			if err := s.sessions.Delete(ctx, id); err != nil {
				log.Err(err).Str("session_id", id).Msg("failed to delete session")
			}
		}
		s.clearSessionCookie(w)
		redirectSuccess(w, r, RouteIndex)
	}
}

func (s *Server) currentUser(r *http.Request) *users.User {
	id := s.currentSessionID(r)
	if id == "" {
		return nil
	}
	session, err := s.sessions.Get(r.Context(), id)
	if err != nil || session.UserID == "" {
		return nil
	}
	user, err := s.users.Get(r.Context(), session.UserID)
	if err != nil || !user.LoggedIn {
		return nil
	}
	return user
}

func (s *Server) providerLinks() []providerLink {
	links := make([]providerLink, 0, len(s.logins))
	for key, ctrl := range s.logins {
		links = append(links, providerLink{Name: ctrl.Provider(), URL: config.LoginRoutePrefix + key})
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Name < links[j].Name })
	return links
}
