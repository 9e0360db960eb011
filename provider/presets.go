package provider

import (
	"sort"
	"strings"
)

// presets holds the capability records of the providers supported out of the
// box. Custom providers can be added through the providers file.
var presets = map[string]Capabilities{
	"google": {
		Name:           "Google",
		AuthURL:        "https://accounts.google.com/o/oauth2/auth",
		TokenURL:       "https://accounts.google.com/o/oauth2/token",
		UserURL:        "https://www.googleapis.com/plus/v1/people/me",
		Scopes:         []string{"email"},
		UserMethod:     "GET",
		TokenPlacement: TokenInQuery,
		Fields: FieldMapping{
			ID:     "id",
			Name:   "displayName",
			Email:  "emails.0.value",
			Domain: "domain",
		},
		DefaultDomain: "Gmail",
	},
	"reddit": {
		Name:           "Reddit",
		AuthURL:        "https://ssl.reddit.com/api/v1/authorize",
		TokenURL:       "https://ssl.reddit.com/api/v1/access_token",
		UserURL:        "https://oauth.reddit.com/api/v1/me",
		Scopes:         []string{"identity"},
		BasicAuth:      true,
		TokenHeaders:   map[string]string{"User-Agent": defaultUserAgent},
		TokenPlacement: TokenInBearer,
		UserHeaders:    map[string]string{"User-Agent": defaultUserAgent},
		Fields: FieldMapping{
			ID:   "id",
			Name: "name",
		},
	},
	"paypal": {
		Name:      "PayPal",
		AuthURL:   "https://www.paypal.com/webapps/auth/protocol/openidconnect/v1/authorize",
		TokenURL:  "https://api.paypal.com/v1/identity/openidconnect/tokenservice",
		UserURL:   "https://api.paypal.com/v1/identity/openidconnect/userinfo/?schema=openid",
		Scopes:    []string{"openid", "email"},
		BasicAuth: true,
		TokenHeaders: map[string]string{
			"Accept":          "application/json",
			"Accept-Language": "en_US",
		},
		TokenPlacement: TokenInBearer,
		UserHeaders:    map[string]string{"Content-Type": "application/json"},
		Fields: FieldMapping{
			ID:    "user_id",
			Name:  "name",
			Email: "email",
		},
	},
	"linkedin": {
		Name:           "LinkedIn",
		AuthURL:        "https://www.linkedin.com/uas/oauth2/authorization",
		TokenURL:       "https://www.linkedin.com/uas/oauth2/accessToken",
		UserURL:        "https://api.linkedin.com/v1/people/~:(id,formatted-name,email-address)",
		Scopes:         []string{"r_basicprofile", "r_emailaddress"},
		TokenPlacement: TokenInBearer,
		UserHeaders:    map[string]string{"x-li-format": "json"},
		Fields: FieldMapping{
			ID:    "id",
			Name:  "formattedName",
			Email: "emailAddress",
		},
	},
}

const defaultUserAgent = "go-auth-login/1.0"

// Preset returns a copy of the built-in capabilities for name.
func Preset(name string) (Capabilities, bool) {
	c, ok := presets[strings.ToLower(name)]
	if !ok {
		return Capabilities{}, false
	}
	c.Scopes = append([]string(nil), c.Scopes...)
	c.TokenHeaders = copyHeaders(c.TokenHeaders)
	c.UserHeaders = copyHeaders(c.UserHeaders)
	return c, true
}

// PresetNames lists the built-in provider keys in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for k := range presets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func copyHeaders(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
