package config

import (
	"context"
	"time"

	"github.com/jrsteele09/go-auth-login/provider"
)

type Config interface {
	EnvConfig
	ProviderConfigSource
	SecurityConfig
	SessionStoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetLoginProviders() []string
	GetHTTPTransport() string
	GetHTTPTimeout() time.Duration
}

type ProviderConfigSource interface {
	LoadProviderConfig(ctx context.Context, name string) (*provider.Config, error)
}

type mainConfig struct {
	EnvVars
	Providers
	Security
	SessionStore
}

func New() Config {
	return mainConfig{}
}
