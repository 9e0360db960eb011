package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/jrsteele09/go-auth-login/provider"
)

const providersFileVar = "PROVIDERS_FILE"

// LoginRoutePrefix is the path every provider's login and callback route lives under.
const LoginRoutePrefix = "/login/"

// providersFile is the optional YAML file of custom provider records:
//
//	providers:
//	  acme:
//	    name: Acme
//	    auth_url: https://id.acme.test/authorize
//	    ...
type providersFile struct {
	Providers map[string]provider.Config `yaml:"providers"`
}

// Providers resolves provider configurations from the presets, the providers
// file and the environment, in increasing order of precedence.
type Providers struct{}

var _ ProviderConfigSource = Providers{}

func (Providers) GetProvidersFile() string {
	return GetEnv(providersFileVar, "")
}

// LoadProviderConfig builds and validates the configuration of provider name.
func (p Providers) LoadProviderConfig(ctx context.Context, name string) (*provider.Config, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("provider name is required")
	}

	cfg, err := p.baseConfig(key)
	if err != nil {
		return nil, err
	}
	if issuer := GetEnv(envKey(key, "ISSUER"), ""); issuer != "" {
		if err := discover(ctx, cfg, issuer); err != nil {
			return nil, err
		}
	}
	applyEnvOverrides(cfg, key)

	if cfg.Name == "" {
		cfg.Name = key
	}
	cfg.RedirectURL = EnvVars{}.GetBaseURL() + LoginRoutePrefix + key

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// baseConfig returns the file entry for key, or the preset if there is none.
func (p Providers) baseConfig(key string) (*provider.Config, error) {
	if path := p.GetProvidersFile(); path != "" {
		entries, err := readProvidersFile(path)
		if err != nil {
			return nil, err
		}
		for k, c := range entries {
			if strings.EqualFold(k, key) {
				cfg := c
				return &cfg, nil
			}
		}
	}

	caps, ok := provider.Preset(key)
	if !ok {
		// An issuer is enough to describe an OpenID Connect provider.
		if GetEnv(envKey(key, "ISSUER"), "") != "" {
			return &provider.Config{}, nil
		}
		return nil, fmt.Errorf("unknown provider %q (built-in: %s)", key, strings.Join(provider.PresetNames(), ", "))
	}
	return &provider.Config{Capabilities: caps}, nil
}

func readProvidersFile(path string) (map[string]provider.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers file: %w", err)
	}
	var f providersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse providers file %s: %w", path, err)
	}
	return f.Providers, nil
}

func applyEnvOverrides(cfg *provider.Config, key string) {
	cfg.Enabled = GetBool(envKey(key, "ENABLED"), cfg.Enabled)
	cfg.ClientID = GetEnv(envKey(key, "CLIENT_ID"), cfg.ClientID)
	cfg.ClientSecret = GetEnv(envKey(key, "CLIENT_SECRET"), cfg.ClientSecret)
	cfg.AuthURL = GetEnv(envKey(key, "AUTH_URL"), cfg.AuthURL)
	cfg.TokenURL = GetEnv(envKey(key, "TOKEN_URL"), cfg.TokenURL)
	cfg.UserURL = GetEnv(envKey(key, "USER_URL"), cfg.UserURL)
	cfg.AllowedDomains = GetEnv(envKey(key, "ALLOWED_DOMAINS"), cfg.AllowedDomains)
	if scope := GetEnv(envKey(key, "SCOPE"), ""); scope != "" {
		cfg.Scopes = strings.FieldsFunc(scope, func(r rune) bool { return r == ',' || r == ' ' })
	}
}

// discover replaces the endpoints and field mapping of cfg with those of the
// issuer's OpenID Connect discovery document.
func discover(ctx context.Context, cfg *provider.Config, issuer string) error {
	transport, err := provider.NewTransport(EnvVars{}.GetHTTPTransport(), EnvVars{}.GetHTTPTimeout())
	if err != nil {
		return err
	}

	op, err := oidc.NewProvider(oidc.ClientContext(ctx, transport.Client()), issuer)
	if err != nil {
		return fmt.Errorf("oidc discovery for %s failed: %w", issuer, err)
	}

	var claims struct {
		UserInfoURL string `json:"userinfo_endpoint"`
	}
	if err := op.Claims(&claims); err != nil {
		return fmt.Errorf("failed to decode discovery document of %s: %w", issuer, err)
	}

	endpoint := op.Endpoint()
	cfg.AuthURL = endpoint.AuthURL
	cfg.TokenURL = endpoint.TokenURL
	cfg.UserURL = claims.UserInfoURL
	cfg.Scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	cfg.Fields = provider.FieldMapping{ID: "sub", Name: "name", Email: "email", Domain: "hd"}
	cfg.TokenPlacement = provider.TokenInBearer
	cfg.UserMethod = ""

	log.Info().Str("issuer", issuer).Str("auth_url", cfg.AuthURL).Msg("discovered provider endpoints")
	return nil
}

func envKey(key, suffix string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_")) + "_" + suffix
}
