package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-login/provider"
)

const (
	portEnvVar           = "PORT"
	appNameVar           = "APP_NAME"
	baseURLVar           = "BASE_URL"
	loginProviderVar     = "LOGIN_PROVIDER"
	httpTransportVar     = "HTTP_TRANSPORT"
	httpTimeoutVar       = "HTTP_TIMEOUT"
	defaultLoginProvider = "google"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Go Auth Login")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetBaseURL returns the public base URL of the application (e.g., "https://app.example.com").
// Provider callback URLs are built from it, never from the inbound Host header.
func (EnvVars) GetBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, "http://localhost:8080"), "/")
}

// GetLoginProviders returns the provider keys to mount, LOGIN_PROVIDER may be a comma separated list.
func (EnvVars) GetLoginProviders() []string {
	var names []string
	for _, n := range strings.Split(GetEnv(loginProviderVar, defaultLoginProvider), ",") {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func (EnvVars) GetHTTPTransport() string {
	return GetEnv(httpTransportVar, provider.TransportClient)
}

func (EnvVars) GetHTTPTimeout() time.Duration {
	return GetDuration(httpTimeoutVar, provider.DefaultTimeout)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDuration reads a Go duration ("5s") or a plain number of seconds.
func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Warn().Str("var", envVar).Str("value", value).Msg("invalid duration, using default")
	return defaultValue
}

func GetBool(envVar string, defaultValue bool) bool {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn().Str("var", envVar).Str("value", value).Msg("invalid boolean, using default")
		return defaultValue
	}
	return b
}

func GetInt(envVar string, defaultValue int) int {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("var", envVar).Str("value", value).Msg("invalid integer, using default")
		return defaultValue
	}
	return i
}
