package login

import (
	"errors"
	"fmt"
)

// Error kinds. Every kind is terminal for the current login attempt.
var (
	ErrNotConfigured          = errors.New("provider not configured")
	ErrProviderReported       = errors.New("provider reported an error")
	ErrCsrfMismatch           = errors.New("csrf state mismatch")
	ErrTransport              = errors.New("transport error")
	ErrMalformedTokenResponse = errors.New("malformed token response")
	ErrIdentityMissing        = errors.New("identity missing")
	ErrDomainNotAllowed       = errors.New("domain not allowed")
	ErrUnexpectedFlowState    = errors.New("unexpected flow state")
)

var kindLabels = map[error]string{
	ErrNotConfigured:          "not_configured",
	ErrProviderReported:       "provider_error",
	ErrCsrfMismatch:           "csrf_mismatch",
	ErrTransport:              "transport_error",
	ErrMalformedTokenResponse: "malformed_token",
	ErrIdentityMissing:        "identity_missing",
	ErrDomainNotAllowed:       "domain_not_allowed",
	ErrUnexpectedFlowState:    "unexpected_state",
}

// FlowError is the failure produced by the controller. Message is safe to
// show to the end user, Err carries the detail for the logs.
type FlowError struct {
	Kind    error
	Message string
	Err     error
}

func (e *FlowError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FlowError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindLabel returns a short stable name for the kind of err, suitable as a
// metric label.
func KindLabel(err error) string {
	for kind, label := range kindLabels {
		if errors.Is(err, kind) {
			return label
		}
	}
	return "unknown"
}
