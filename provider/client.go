package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

var (
	// ErrTransport is returned when an outbound request could not be completed.
	ErrTransport = errors.New("provider request failed")
	// ErrMalformedTokenResponse is returned when the token endpoint answered
	// without a usable access token or expiry.
	ErrMalformedTokenResponse = errors.New("malformed access token result")
	// ErrIdentityMissing is returned when the profile carries no user id.
	ErrIdentityMissing = errors.New("user identity was not found")
)

// TokenResult is the outcome of a successful code exchange.
type TokenResult struct {
	AccessToken string
	ExpiresIn   int64 // seconds
}

// Identity is the provider agnostic user record handed to the host
// application. It never carries secrets.
type Identity struct {
	Provider string `json:"provider"`
	UserID   string `json:"user_id"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	// Domain is the raw organisational domain claim, empty when absent.
	Domain string `json:"domain,omitempty"`
}

// Client talks to a single identity provider.
type Client struct {
	config    *Config
	oauth     *oauth2.Config
	transport Transport
}

// NewClient validates config and binds it to transport.
func NewClient(config *Config, transport Transport) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if transport == nil {
		return nil, errors.New("transport is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: config,
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   config.AuthURL,
				TokenURL:  config.TokenURL,
				AuthStyle: config.authStyle(),
			},
			RedirectURL: config.RedirectURL,
			Scopes:      config.Scopes,
		},
		transport: transport,
	}, nil
}

// Name returns the display name of the provider.
func (c *Client) Name() string {
	return c.config.Name
}

// AuthorizationURL builds the URL the browser is sent to in order to start
// authentication, carrying the given state.
func (c *Client) AuthorizationURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCodeForToken redeems an authorization code at the token endpoint.
func (c *Client) ExchangeCodeForToken(ctx context.Context, code string) (*TokenResult, error) {
	params := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {c.config.RedirectURL},
	}
	if c.config.authStyle() == oauth2.AuthStyleInParams {
		params.Set("client_id", c.config.ClientID)
		params.Set("client_secret", c.config.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create token request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.config.authStyle() == oauth2.AuthStyleInHeader {
		req.SetBasicAuth(url.QueryEscape(c.config.ClientID), url.QueryEscape(c.config.ClientSecret))
	}
	for k, v := range c.config.TokenHeaders {
		req.Header.Set(k, v)
	}

	log.Debug().Str("provider", c.config.Name).Str("token_endpoint", c.config.TokenURL).Msg("exchanging authorization code")

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: could not retrieve access token: %v", ErrTransport, err)
	}
	if !resp.OK() {
		log.Warn().Str("provider", c.config.Name).Int("status", resp.StatusCode).Msg("token endpoint returned an error status")
	}

	return parseTokenResponse(resp.Body)
}

// parseTokenResponse accepts JSON and, for older providers, form encoded
// bodies. Both the access token and a positive expiry are required.
func parseTokenResponse(body []byte) (*TokenResult, error) {
	var accessToken string
	var expiresIn int64

	if gjson.ValidBytes(body) {
		result := gjson.ParseBytes(body)
		if !result.IsObject() {
			return nil, fmt.Errorf("%w: token response is not an object", ErrMalformedTokenResponse)
		}
		accessToken = result.Get("access_token").String()
		expiresIn = result.Get("expires_in").Int()
	} else {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedTokenResponse, err)
		}
		accessToken = values.Get("access_token")
		expiresIn = gjson.Parse(values.Get("expires_in")).Int()
	}

	if accessToken == "" {
		return nil, fmt.Errorf("%w: missing access_token", ErrMalformedTokenResponse)
	}
	if expiresIn <= 0 {
		return nil, fmt.Errorf("%w: missing expires_in", ErrMalformedTokenResponse)
	}

	return &TokenResult{AccessToken: accessToken, ExpiresIn: expiresIn}, nil
}

// FetchIdentity retrieves the user's profile with accessToken and maps it
// onto an Identity.
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*Identity, error) {
	endpoint, err := url.Parse(c.config.UserURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid profile endpoint: %v", ErrTransport, err)
	}
	if c.config.tokenPlacement() == TokenInQuery {
		q := endpoint.Query()
		q.Set("access_token", accessToken)
		endpoint.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, c.config.userMethod(), endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create profile request: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	switch c.config.tokenPlacement() {
	case TokenInBearer:
		req.Header.Set("Authorization", "Bearer "+accessToken)
	case TokenInHeader:
		req.Header.Set(c.config.TokenHeaderName, accessToken)
	}
	for k, v := range c.config.UserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: could not retrieve user identity: %v", ErrTransport, err)
	}
	if !resp.OK() {
		log.Warn().Str("provider", c.config.Name).Int("status", resp.StatusCode).Msg("profile endpoint returned an error status")
	}

	return c.parseIdentity(resp.Body)
}

func (c *Client) parseIdentity(body []byte) (*Identity, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: profile response is not valid JSON", ErrIdentityMissing)
	}
	profile := gjson.ParseBytes(body)
	fields := c.config.Fields

	identity := &Identity{
		Provider: c.config.Name,
		UserID:   strings.TrimSpace(profile.Get(fields.ID).String()),
	}
	if identity.UserID == "" {
		return nil, fmt.Errorf("%w: field %q is empty", ErrIdentityMissing, fields.ID)
	}
	if fields.Name != "" {
		identity.Name = profile.Get(fields.Name).String()
	}
	if fields.Email != "" {
		identity.Email = profile.Get(fields.Email).String()
	}
	if fields.Domain != "" {
		identity.Domain = profile.Get(fields.Domain).String()
	}
	return identity, nil
}
