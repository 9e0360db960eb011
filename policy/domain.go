// Package policy holds the post-fetch gates applied to an identity before it
// is allowed to log in.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-auth-login/provider"
)

// ErrDomainNotAllowed is matched by every *DomainNotAllowedError.
var ErrDomainNotAllowed = errors.New("domain not allowed")

// DomainNotAllowedError carries the rejected domain value.
type DomainNotAllowedError struct {
	Value string
	// Absent is set when the provider reported no domain claim and Value
	// holds the provider's default.
	Absent bool
}

func (e *DomainNotAllowedError) Error() string {
	return fmt.Sprintf("domain is not allowed : %s", e.Value)
}

func (e *DomainNotAllowedError) Unwrap() error {
	return ErrDomainNotAllowed
}

// DomainFilter rejects identities whose domain claim is not on an allowlist.
type DomainFilter struct {
	allowed       map[string]struct{}
	defaultDomain string
}

// NewDomainFilter parses a comma separated allowlist. Whitespace around
// entries is ignored and an empty list yields a pass-through filter.
func NewDomainFilter(allowedList, defaultDomain string) *DomainFilter {
	f := &DomainFilter{
		allowed:       make(map[string]struct{}),
		defaultDomain: defaultDomain,
	}
	for _, d := range strings.Split(allowedList, ",") {
		d = strings.TrimSpace(d)
		if d != "" {
			f.allowed[d] = struct{}{}
		}
	}
	return f
}

// Enabled reports whether an allowlist is configured.
func (f *DomainFilter) Enabled() bool {
	return len(f.allowed) > 0
}

// Allowed returns the allowlist entries.
func (f *DomainFilter) Allowed() []string {
	out := make([]string, 0, len(f.allowed))
	for d := range f.allowed {
		out = append(out, d)
	}
	return out
}

// Check passes identity when filtering is disabled or its domain claim is an
// exact member of the allowlist. An absent claim is rejected; the provider's
// default domain is only used to name it in the error.
func (f *DomainFilter) Check(identity *provider.Identity) error {
	if !f.Enabled() {
		return nil
	}
	if identity == nil {
		return &DomainNotAllowedError{Value: f.defaultDomain, Absent: true}
	}

	value := strings.TrimSpace(identity.Domain)
	if value == "" {
		return &DomainNotAllowedError{Value: f.defaultDomain, Absent: true}
	}
	if _, ok := f.allowed[value]; !ok {
		return &DomainNotAllowedError{Value: value}
	}
	return nil
}
