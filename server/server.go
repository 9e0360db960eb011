package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-login/internal/config"
	"github.com/jrsteele09/go-auth-login/login"
	"github.com/jrsteele09/go-auth-login/sessions"
	"github.com/jrsteele09/go-auth-login/token"
	"github.com/jrsteele09/go-auth-login/users"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	sessions sessions.Repo
	cookies  *token.CookieSigner
	users    *users.Directory
	logins   map[string]*login.Controller // keyed by the lower case route name
	metrics  *Metrics
}

func New(config config.Config, sessionRepo sessions.Repo, cookies *token.CookieSigner, directory *users.Directory, logins map[string]*login.Controller) (*Server, error) {
	if len(logins) == 0 {
		return nil, fmt.Errorf("[Server New] at least one login provider is required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   config,
		sessions: sessionRepo,
		cookies:  cookies,
		users:    directory,
		logins:   make(map[string]*login.Controller, len(logins)),
		metrics:  NewMetrics(),
	}
	for name, ctrl := range logins {
		s.logins[strings.ToLower(name)] = ctrl
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}
