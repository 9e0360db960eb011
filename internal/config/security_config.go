package config

import "time"

type SecurityConfig interface {
	GetCookieSecret() string
	GetMaxSessionAge() time.Duration
	GetSecureCookies() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetCookieSecret returns the HMAC secret for session cookies. When empty a
// random secret is generated at start-up and sessions do not survive restarts.
func (Security) GetCookieSecret() string {
	return GetEnv("COOKIE_SECRET", "")
}

func (Security) GetMaxSessionAge() time.Duration {
	return GetDuration("SESSION_MAX_AGE", 30*time.Minute) // Sessions expire after 30 minutes
}

func (Security) GetSecureCookies() bool {
	return GetBool("SECURE_COOKIES", EnvVars{}.GetEnv() != "DEV")
}
