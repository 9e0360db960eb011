package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSameOriginPath(t *testing.T) {
	const base = "https://app.example.com"

	tests := []struct {
		raw  string
		want string
	}{
		{"", ""},
		{"/account", "/account"},
		{"/account?tab=2", "/account?tab=2"},
		{"https://app.example.com/pricing", "/pricing"},
		{"https://APP.example.com", "/"},
		{"https://evil.example.com/pricing", ""},
		{"http://app.example.com/pricing", ""},
		{"//evil.example.com/x", ""},
		{"/\\evil.example.com", ""},
		{"account", ""},
		{"javascript:alert(1)", ""},
		{"/login/google?code=1", ""},
		{"/logout", ""},
		{"%zz", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			require.Equal(t, tt.want, sameOriginPath(tt.raw, base))
		})
	}
}
