package config_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-login/internal/config"
	"github.com/jrsteele09/go-auth-login/provider"
)

func TestEnvVars(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BASE_URL", "https://app.example.com/")
	t.Setenv("LOGIN_PROVIDER", " Google, reddit ,,")
	t.Setenv("HTTP_TIMEOUT", "250ms")

	cfg := config.New()
	require.Equal(t, ":9090", cfg.GetPort())
	require.Equal(t, "https://app.example.com", cfg.GetBaseURL())
	require.Equal(t, []string{"google", "reddit"}, cfg.GetLoginProviders())
	require.Equal(t, 250*time.Millisecond, cfg.GetHTTPTimeout())
	require.Equal(t, provider.TransportClient, cfg.GetHTTPTransport())
	require.Equal(t, config.SessionStoreMemory, cfg.GetSessionStore())
}

func TestGetDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "7")
	require.Equal(t, 7*time.Second, config.GetDuration("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "soon")
	require.Equal(t, time.Second, config.GetDuration("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "")
	require.Equal(t, provider.DefaultTimeout, config.New().GetHTTPTimeout())
}

func TestLoadProviderConfig_Preset(t *testing.T) {
	t.Setenv("BASE_URL", "https://app.example.com")
	t.Setenv("GOOGLE_ENABLED", "true")
	t.Setenv("GOOGLE_CLIENT_ID", "id-1")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret-1")
	t.Setenv("GOOGLE_ALLOWED_DOMAINS", "example.com")
	t.Setenv("GOOGLE_SCOPE", "email profile")

	cfg, err := config.New().LoadProviderConfig(context.Background(), "Google")
	require.NoError(t, err)
	require.Equal(t, "Google", cfg.Name)
	require.True(t, cfg.Enabled)
	require.True(t, cfg.HasCredentials())
	require.Equal(t, "https://app.example.com/login/google", cfg.RedirectURL)
	require.Equal(t, "example.com", cfg.AllowedDomains)
	require.Equal(t, []string{"email", "profile"}, cfg.Scopes)
	require.Equal(t, provider.TokenInQuery, cfg.TokenPlacement)
}

func TestLoadProviderConfig_DisabledByDefault(t *testing.T) {
	cfg, err := config.New().LoadProviderConfig(context.Background(), "reddit")
	require.NoError(t, err)
	require.False(t, cfg.Enabled)
	require.False(t, cfg.HasCredentials())
}

func TestLoadProviderConfig_Errors(t *testing.T) {
	_, err := config.New().LoadProviderConfig(context.Background(), "myspace")
	require.ErrorContains(t, err, "unknown provider")

	_, err = config.New().LoadProviderConfig(context.Background(), " ")
	require.Error(t, err)

	t.Setenv("PAYPAL_TOKEN_URL", "not a url")
	_, err = config.New().LoadProviderConfig(context.Background(), "paypal")
	require.Error(t, err)
}

func TestLoadProviderConfig_ProvidersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
providers:
  acme:
    name: Acme
    enabled: true
    client_id: acme-id
    auth_url: https://id.acme.test/authorize
    token_url: https://id.acme.test/token
    user_url: https://api.acme.test/me
    scopes: [profile]
    basic_auth: true
    token_placement: header
    token_header_name: X-Acme-Token
    user_headers:
      Accept: application/json
    fields:
      id: account.id
      name: account.name
      domain: org
    default_domain: Personal
`), 0o600))
	t.Setenv("PROVIDERS_FILE", path)
	t.Setenv("ACME_CLIENT_SECRET", "from-env")

	cfg, err := config.New().LoadProviderConfig(context.Background(), "acme")
	require.NoError(t, err)
	require.Equal(t, "Acme", cfg.Name)
	require.True(t, cfg.Enabled)
	require.Equal(t, "acme-id", cfg.ClientID)
	require.Equal(t, "from-env", cfg.ClientSecret)
	require.True(t, cfg.BasicAuth)
	require.Equal(t, provider.TokenInHeader, cfg.TokenPlacement)
	require.Equal(t, "X-Acme-Token", cfg.TokenHeaderName)
	require.Equal(t, "account.id", cfg.Fields.ID)
	require.Equal(t, "Personal", cfg.DefaultDomain)
	require.Equal(t, map[string]string{"Accept": "application/json"}, cfg.UserHeaders)

	// Presets are still available alongside the file.
	_, err = config.New().LoadProviderConfig(context.Background(), "google")
	require.NoError(t, err)
}

func TestLoadProviderConfig_BadProvidersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers: [not, a, map]"), 0o600))
	t.Setenv("PROVIDERS_FILE", path)

	_, err := config.New().LoadProviderConfig(context.Background(), "google")
	require.Error(t, err)

	t.Setenv("PROVIDERS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = config.New().LoadProviderConfig(context.Background(), "google")
	require.Error(t, err)
}

func newDiscoveryServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/authorize",
			"token_endpoint":         srv.URL + "/token",
			"userinfo_endpoint":      srv.URL + "/userinfo",
			"jwks_uri":               srv.URL + "/keys",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadProviderConfig_Discovery(t *testing.T) {
	srv := newDiscoveryServer(t)
	t.Setenv("CORP_ISSUER", srv.URL)
	t.Setenv("CORP_ENABLED", "1")
	t.Setenv("CORP_USER_URL", srv.URL+"/custom-userinfo")

	cfg, err := config.New().LoadProviderConfig(context.Background(), "corp")
	require.NoError(t, err)
	require.Equal(t, "corp", cfg.Name)
	require.Equal(t, srv.URL+"/authorize", cfg.AuthURL)
	require.Equal(t, srv.URL+"/token", cfg.TokenURL)
	require.Equal(t, srv.URL+"/custom-userinfo", cfg.UserURL)
	require.Equal(t, "sub", cfg.Fields.ID)
	require.Equal(t, "hd", cfg.Fields.Domain)
	require.Contains(t, cfg.Scopes, "openid")
	require.True(t, cfg.Enabled)
}

func TestLoadProviderConfig_DiscoveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	t.Setenv("CORP_ISSUER", srv.URL)

	_, err := config.New().LoadProviderConfig(context.Background(), "corp")
	require.ErrorContains(t, err, "discovery")
}
