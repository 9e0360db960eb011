package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// TransportClient reuses one pooled http.Client for every request.
	TransportClient = "client"
	// TransportOneShot opens a fresh connection for every request.
	TransportOneShot = "oneshot"

	// DefaultTimeout bounds every outbound call of the login flow.
	DefaultTimeout = 5 * time.Second

	maxResponseSize = 1 << 20
)

// Response is a completed exchange. Non-2xx statuses are not errors; the
// body is handed to the caller whatever the status.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// Transport sends an HTTP request and returns the response. An error means
// no response was received: dial failure, timeout or a broken body read.
type Transport interface {
	Do(ctx context.Context, req *http.Request) (*Response, error)
}

// HTTPTransport implements Transport on top of an http.Client.
type HTTPTransport struct {
	client *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewTransport selects the transport once at start-up from configuration.
func NewTransport(kind string, timeout time.Duration) (*HTTPTransport, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	switch kind {
	case "", TransportClient:
		return &HTTPTransport{client: &http.Client{Timeout: timeout}}, nil
	case TransportOneShot:
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.DisableKeepAlives = true
		return &HTTPTransport{client: &http.Client{Timeout: timeout, Transport: t}}, nil
	default:
		return nil, fmt.Errorf("unknown http transport %q (must be %q or %q)", kind, TransportClient, TransportOneShot)
	}
}

// NewHTTPTransport wraps a pre-configured client.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	return &HTTPTransport{client: client}
}

// Client exposes the underlying http.Client, e.g. for OIDC discovery.
func (t *HTTPTransport) Client() *http.Client {
	return t.client
}

func (t *HTTPTransport) Do(ctx context.Context, req *http.Request) (*Response, error) {
	resp, err := t.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", req.URL.Host, err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
