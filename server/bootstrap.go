package server

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-login/internal/config"
	"github.com/jrsteele09/go-auth-login/login"
	"github.com/jrsteele09/go-auth-login/provider"
	"github.com/jrsteele09/go-auth-login/sessions"
)

// NewLogins builds a login controller for every configured provider. All
// providers share one outbound transport, selected once from configuration.
func NewLogins(ctx context.Context, cfg config.Config, sessionRepo sessions.Repo) (map[string]*login.Controller, error) {
	transport, err := provider.NewTransport(cfg.GetHTTPTransport(), cfg.GetHTTPTimeout())
	if err != nil {
		return nil, fmt.Errorf("[Server NewLogins] %w", err)
	}

	logins := make(map[string]*login.Controller)
	for _, name := range cfg.GetLoginProviders() {
		pc, err := cfg.LoadProviderConfig(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("[Server NewLogins] provider %s: %w", name, err)
		}

		client, err := provider.NewClient(pc, transport)
		if err != nil {
			return nil, fmt.Errorf("[Server NewLogins] provider %s: %w", name, err)
		}

		ctrl, err := login.NewController(pc, client, sessionRepo)
		if err != nil {
			return nil, fmt.Errorf("[Server NewLogins] provider %s: %w", name, err)
		}
		logins[name] = ctrl

		log.Info().
			Str("provider", pc.Name).
			Bool("enabled", pc.Enabled).
			Bool("credentials", pc.HasCredentials()).
			Str("redirect_url", pc.RedirectURL).
			Msg("login provider configured")
	}
	return logins, nil
}
