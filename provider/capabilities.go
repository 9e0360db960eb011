package provider

import (
	"net/http"

	"golang.org/x/oauth2"
)

// TokenPlacement describes where the access token goes on the profile request.
type TokenPlacement string

const (
	TokenInQuery  TokenPlacement = "query"  // ?access_token=<token>
	TokenInBearer TokenPlacement = "bearer" // Authorization: Bearer <token>
	TokenInHeader TokenPlacement = "header" // <TokenHeaderName>: <token>
)

// FieldMapping maps the provider's profile response onto an Identity.
// Each entry is a gjson path, so nested values such as "emails.0.value" work.
type FieldMapping struct {
	ID     string `yaml:"id" validate:"required"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Domain string `yaml:"domain"`
}

// Capabilities is the per-provider record describing how an otherwise
// standard authorization code flow differs from one provider to the next.
type Capabilities struct {
	Name string `yaml:"name" validate:"required"`

	AuthURL  string   `yaml:"auth_url" validate:"required,url"`
	TokenURL string   `yaml:"token_url" validate:"required,url"`
	UserURL  string   `yaml:"user_url" validate:"required,url"`
	Scopes   []string `yaml:"scopes"`

	// BasicAuth sends the client credentials on the token request with HTTP
	// basic authentication instead of the form body.
	BasicAuth    bool              `yaml:"basic_auth"`
	TokenHeaders map[string]string `yaml:"token_headers"`

	UserMethod      string            `yaml:"user_method" validate:"omitempty,oneof=GET POST"`
	TokenPlacement  TokenPlacement    `yaml:"token_placement" validate:"omitempty,oneof=query bearer header"`
	TokenHeaderName string            `yaml:"token_header_name" validate:"required_if=TokenPlacement header"`
	UserHeaders     map[string]string `yaml:"user_headers"`

	Fields FieldMapping `yaml:"fields"`

	// DefaultDomain is reported as the domain claim in rejection messages when
	// the profile response carries none.
	DefaultDomain string `yaml:"default_domain"`
}

func (c Capabilities) userMethod() string {
	if c.UserMethod == "" {
		return http.MethodGet
	}
	return c.UserMethod
}

func (c Capabilities) tokenPlacement() TokenPlacement {
	if c.TokenPlacement == "" {
		return TokenInBearer
	}
	return c.TokenPlacement
}

func (c Capabilities) authStyle() oauth2.AuthStyle {
	if c.BasicAuth {
		return oauth2.AuthStyleInHeader
	}
	return oauth2.AuthStyleInParams
}
