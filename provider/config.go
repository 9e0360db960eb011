package provider

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config is the immutable configuration of one identity provider for the
// lifetime of the process. Enabled and the client credentials are not
// validated here: a disabled or unconfigured provider is a runtime outcome
// of the login flow, not a start-up error.
type Config struct {
	Capabilities `yaml:",inline"`

	Enabled      bool   `yaml:"enabled"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// RedirectURL is the canonical callback URL registered with the provider.
	RedirectURL string `yaml:"redirect_url" validate:"required,url"`

	// AllowedDomains is the raw comma separated allowlist. Empty disables
	// domain filtering.
	AllowedDomains string `yaml:"allowed_domains"`
}

// Validate checks that the endpoint and mapping fields are usable.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid provider config %q: %w", c.Name, err)
	}
	return nil
}

// HasCredentials reports whether both the client id and secret are set.
func (c *Config) HasCredentials() bool {
	return strings.TrimSpace(c.ClientID) != "" && strings.TrimSpace(c.ClientSecret) != ""
}
