package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-login/internal/config"
	"github.com/jrsteele09/go-auth-login/login"
)

const msgUnknownProvider = "Sorry, we couldn't log you in. This login provider is not available."

// LoginHandler runs one pass of the login flow of the provider named in the
// path. The first visit redirects to the provider, the provider redirects the
// browser back to the same route with the code and state.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.ToLower(r.PathValue("provider"))
		ctrl, ok := s.logins[key]
		if !ok {
			redirectWithError(w, r, RouteIndex, msgUnknownProvider)
			return
		}

		sessionID, err := s.sessionID(w, r)
		if err != nil {
			log.Err(err).Msg("failed to issue session cookie")
			http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
			return
		}

		q := r.URL.Query()
		req := login.Request{
			SessionID:        sessionID,
			Code:             q.Get("code"),
			State:            q.Get("state"),
			ErrorDescription: q.Get("error_description"),
			ErrorMessage:     q.Get("error_message"),
			LastURL:          s.lastVisitedURL(r),
			RemoteAddr:       r.RemoteAddr,
			UserAgent:        r.UserAgent(),
		}
		if req.ErrorMessage == "" {
			req.ErrorMessage = q.Get("error")
		}

		outcome := ctrl.Handle(r.Context(), req)
		s.metrics.Observe(key, outcome)

		login.Terminate(r.Context(), outcome, &httpSink{server: s, w: w, r: r, sessionID: sessionID})
	}
}

// lastVisitedURL returns the page the user should land on after logging in,
// taken from the redirect_to parameter or the Referer. Only same origin
// destinations are accepted.
func (s *Server) lastVisitedURL(r *http.Request) string {
	if to := sameOriginPath(r.URL.Query().Get(redirectToParam), s.config.GetBaseURL()); to != "" {
		return to
	}
	return sameOriginPath(r.Referer(), s.config.GetBaseURL())
}

func sameOriginPath(raw, baseURL string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	if u.Scheme != "" || u.Host != "" {
		base, err := url.Parse(baseURL)
		if err != nil || !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) {
			return ""
		}
	} else if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") || strings.Contains(u.Path, "\\") {
		return ""
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if strings.HasPrefix(path, config.LoginRoutePrefix) || path == RouteLogout {
		return ""
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	fullPath := path + "?error=" + url.QueryEscape(errorMsg)
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", fullPath)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, fullPath, http.StatusSeeOther)
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}
