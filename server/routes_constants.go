package server

import "github.com/jrsteele09/go-auth-login/internal/config"

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex = "/"

	// Login, callback and logout. The provider's callback URL is the login
	// route itself, the flow tells the phases apart by the query parameters.
	RouteLogin  = config.LoginRoutePrefix + "{provider}"
	RouteLogout = "/logout"

	RouteMetrics = "/metrics"
)

const (
	sessionCookieName = "login_session"
	redirectToParam   = "redirect_to"
)
