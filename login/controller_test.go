package login_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-login/login"
	"github.com/jrsteele09/go-auth-login/policy"
	"github.com/jrsteele09/go-auth-login/provider"
	"github.com/jrsteele09/go-auth-login/sessions"
)

const (
	testSessionID = "session-1"
	testAuthURL   = "https://idp.example.com/auth"
)

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

// fakeClient records every call made to the provider.
type fakeClient struct {
	mu            sync.Mutex
	tokenResult   *provider.TokenResult
	tokenErr      error
	identity      *provider.Identity
	identityErr   error
	exchangeCodes []string
	fetchTokens   []string
}

func (f *fakeClient) AuthorizationURL(state string) string {
	return testAuthURL + "?state=" + url.QueryEscape(state)
}

func (f *fakeClient) ExchangeCodeForToken(_ context.Context, code string) (*provider.TokenResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchangeCodes = append(f.exchangeCodes, code)
	return f.tokenResult, f.tokenErr
}

func (f *fakeClient) FetchIdentity(_ context.Context, accessToken string) (*provider.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchTokens = append(f.fetchTokens, accessToken)
	if f.identity == nil {
		return nil, f.identityErr
	}
	id := *f.identity
	return &id, f.identityErr
}

func (f *fakeClient) outboundCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.exchangeCodes) + len(f.fetchTokens)
}

// recordingRepo keeps a snapshot of every upserted session.
type recordingRepo struct {
	*sessions.InMemoryRepo
	mu      sync.Mutex
	upserts []sessions.SessionData
}

func (r *recordingRepo) Upsert(ctx context.Context, sessionID string, s *sessions.SessionData) error {
	r.mu.Lock()
	r.upserts = append(r.upserts, *s)
	r.mu.Unlock()
	return r.InMemoryRepo.Upsert(ctx, sessionID, s)
}

type fakeAuditor struct {
	reports []login.CsrfMismatchReport
}

func (a *fakeAuditor) CsrfMismatch(_ context.Context, r login.CsrfMismatchReport) {
	a.reports = append(a.reports, r)
}

type testFixture struct {
	config  *provider.Config
	client  *fakeClient
	repo    *recordingRepo
	auditor *fakeAuditor
	now     time.Time
	states  int
	ctrl    *login.Controller
}

func setupTestFixture(t *testing.T, mutate ...func(*provider.Config)) *testFixture {
	t.Helper()

	caps, ok := provider.Preset("google")
	require.True(t, ok)
	cfg := &provider.Config{
		Capabilities: caps,
		Enabled:      true,
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURL:  "https://app.example.com/login/google",
	}
	for _, m := range mutate {
		m(cfg)
	}

	f := &testFixture{
		config: cfg,
		client: &fakeClient{
			tokenResult: &provider.TokenResult{AccessToken: "T", ExpiresIn: 3600},
			identity: &provider.Identity{
				UserID: "42",
				Name:   "Jane Doe",
				Email:  "jane@example.com",
				Domain: "example.com",
			},
		},
		repo:    &recordingRepo{InMemoryRepo: sessions.NewInMemoryRepo()},
		auditor: &fakeAuditor{},
		now:     testNow,
	}

	ctrl, err := login.NewController(cfg, f.client, f.repo,
		login.WithAuditor(f.auditor),
		login.WithClock(func() time.Time { return f.now }),
		login.WithStateGenerator(func() (string, error) {
			f.states++
			return fmt.Sprintf("state-%d", f.states), nil
		}),
	)
	require.NoError(t, err)
	f.ctrl = ctrl
	return f
}

func (f *testFixture) session(t *testing.T) *sessions.SessionData {
	t.Helper()
	s, err := f.repo.Get(context.Background(), testSessionID)
	require.NoError(t, err)
	return s
}

// start runs the pre-auth pass and returns the state sent to the provider.
func (f *testFixture) start(t *testing.T) string {
	t.Helper()
	out := f.ctrl.Handle(context.Background(), login.Request{SessionID: testSessionID})
	require.Equal(t, login.OutcomeRedirect, out.Kind)
	u, err := url.Parse(out.RedirectURL)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func (f *testFixture) callback(state string) login.Outcome {
	return f.ctrl.Handle(context.Background(), login.Request{
		SessionID:  testSessionID,
		Code:       "auth-code",
		State:      state,
		RemoteAddr: "203.0.113.7:5555",
		UserAgent:  "test-agent",
	})
}

func requireFailure(t *testing.T, out login.Outcome, kind error) {
	t.Helper()
	require.Equal(t, login.OutcomeFailure, out.Kind)
	require.NotEmpty(t, out.Message)
	require.ErrorIs(t, out.Err, kind)
}

func TestController_Start(t *testing.T) {
	f := setupTestFixture(t)

	out := f.ctrl.Handle(context.Background(), login.Request{SessionID: testSessionID, LastURL: "/account"})
	require.Equal(t, login.OutcomeRedirect, out.Kind)
	require.Equal(t, testAuthURL+"?state=state-1", out.RedirectURL)
	require.Zero(t, f.client.outboundCalls())

	s := f.session(t)
	require.Equal(t, "state-1", s.State)
	require.Equal(t, "Google", s.Provider)
	require.Equal(t, "/account", s.LastURL)
}

func TestController_StartTwiceIssuesFreshState(t *testing.T) {
	f := setupTestFixture(t)

	first := f.start(t)
	second := f.start(t)
	require.NotEmpty(t, first)
	require.NotEmpty(t, second)
	require.NotEqual(t, first, second)

	out := f.callback(first)
	requireFailure(t, out, login.ErrCsrfMismatch)
	require.Zero(t, f.client.outboundCalls())
}

func TestController_StartWithDefaultStateGenerator(t *testing.T) {
	f := setupTestFixture(t)
	ctrl, err := login.NewController(f.config, f.client, f.repo)
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		out := ctrl.Handle(context.Background(), login.Request{SessionID: testSessionID})
		require.Equal(t, login.OutcomeRedirect, out.Kind)
		s := f.session(t)
		require.Len(t, s.State, 43)
		require.False(t, seen[s.State])
		seen[s.State] = true
	}
}

func TestController_StartClearsExpiredToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.NoError(t, f.repo.InMemoryRepo.Upsert(ctx, testSessionID, &sessions.SessionData{
		AccessToken: "old",
		ExpiresAt:   testNow.Add(-time.Minute),
	}))
	f.start(t)
	require.Empty(t, f.session(t).AccessToken)
	require.True(t, f.session(t).ExpiresAt.IsZero())

	require.NoError(t, f.repo.InMemoryRepo.Upsert(ctx, testSessionID, &sessions.SessionData{
		AccessToken: "current",
		ExpiresAt:   testNow.Add(time.Minute),
	}))
	f.start(t)
	require.Equal(t, "current", f.session(t).AccessToken)
}

func TestController_CallbackSuccess(t *testing.T) {
	f := setupTestFixture(t)
	f.ctrl.Handle(context.Background(), login.Request{SessionID: testSessionID, LastURL: "/account"})

	out := f.callback("state-1")
	require.Equal(t, login.OutcomeLogin, out.Kind)
	require.Equal(t, "/account", out.ReturnURL)
	require.Equal(t, &provider.Identity{
		Provider: "Google",
		UserID:   "42",
		Name:     "Jane Doe",
		Email:    "jane@example.com",
		Domain:   "example.com",
	}, out.Identity)

	require.Equal(t, []string{"auth-code"}, f.client.exchangeCodes)
	require.Equal(t, []string{"T"}, f.client.fetchTokens)

	// The token was written to the session mid-flow...
	var stored *sessions.SessionData
	for i := range f.repo.upserts {
		if f.repo.upserts[i].AccessToken != "" {
			stored = &f.repo.upserts[i]
		}
	}
	require.NotNil(t, stored)
	require.Equal(t, "T", stored.AccessToken)
	require.Equal(t, testNow.Add(3600*time.Second), stored.ExpiresAt)
	require.Empty(t, stored.State, "state is consumed before the exchange")

	// ...and cleared once the flow reached its outcome.
	s := f.session(t)
	require.Empty(t, s.AccessToken)
	require.Empty(t, s.State)
	require.True(t, s.ExpiresAt.IsZero())
}

func TestController_CallbackReplay(t *testing.T) {
	f := setupTestFixture(t)
	state := f.start(t)

	require.Equal(t, login.OutcomeLogin, f.callback(state).Kind)
	requireFailure(t, f.callback(state), login.ErrCsrfMismatch)
	require.Len(t, f.client.exchangeCodes, 1)
}

func TestController_CsrfMismatch(t *testing.T) {
	f := setupTestFixture(t)
	f.start(t)

	out := f.callback("forged")
	requireFailure(t, out, login.ErrCsrfMismatch)
	require.NotContains(t, out.Message, "state-1")
	require.Zero(t, f.client.outboundCalls())

	require.Len(t, f.auditor.reports, 1)
	report := f.auditor.reports[0]
	require.Equal(t, testSessionID, report.SessionID)
	require.True(t, report.HadState)
	require.Equal(t, "forged", report.ReceivedState)
	require.Equal(t, "203.0.113.7:5555", report.RemoteAddr)
	require.Equal(t, "test-agent", report.UserAgent)

	require.Empty(t, f.session(t).State)
}

func TestController_CsrfWithoutSession(t *testing.T) {
	f := setupTestFixture(t)

	requireFailure(t, f.callback(""), login.ErrCsrfMismatch)
	require.Len(t, f.auditor.reports, 1)
	require.False(t, f.auditor.reports[0].HadState)
	require.Zero(t, f.client.outboundCalls())
}

func TestController_NotConfigured(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*provider.Config)
	}{
		{"disabled", func(c *provider.Config) { c.Enabled = false }},
		{"missing id", func(c *provider.Config) { c.ClientID = "" }},
		{"missing secret", func(c *provider.Config) { c.ClientSecret = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t, tt.mutate)

			requireFailure(t, f.ctrl.Handle(context.Background(), login.Request{SessionID: testSessionID}), login.ErrNotConfigured)
			requireFailure(t, f.callback("state-1"), login.ErrNotConfigured)
			require.Zero(t, f.client.outboundCalls())
			require.Zero(t, f.states)
		})
	}
}

func TestController_ProviderReportedError(t *testing.T) {
	f := setupTestFixture(t)
	state := f.start(t)

	out := f.ctrl.Handle(context.Background(), login.Request{
		SessionID:        testSessionID,
		Code:             "auth-code",
		State:            state,
		ErrorDescription: "The user denied access",
	})
	requireFailure(t, out, login.ErrProviderReported)
	require.Equal(t, "The user denied access", out.Message)
	require.Zero(t, f.client.outboundCalls())
	require.Empty(t, f.session(t).State)

	out = f.ctrl.Handle(context.Background(), login.Request{SessionID: testSessionID, ErrorMessage: "access_denied"})
	requireFailure(t, out, login.ErrProviderReported)
	require.Equal(t, "access_denied", out.Message)
}

func TestController_ProviderErrorIsTruncatedOnRuneBoundary(t *testing.T) {
	f := setupTestFixture(t)
	description := "a" + strings.Repeat("é", 200)

	out := f.ctrl.Handle(context.Background(), login.Request{
		SessionID:        testSessionID,
		ErrorDescription: description,
	})
	requireFailure(t, out, login.ErrProviderReported)
	require.True(t, utf8.ValidString(out.Message))
	require.LessOrEqual(t, len(out.Message), 256)
	require.Equal(t, 255, len(out.Message))
	require.True(t, strings.HasPrefix(description, out.Message))
}

func TestController_TokenFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"malformed", fmt.Errorf("%w: missing access_token", provider.ErrMalformedTokenResponse), login.ErrMalformedTokenResponse},
		{"transport", fmt.Errorf("%w: connection refused", provider.ErrTransport), login.ErrTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.client.tokenResult = nil
			f.client.tokenErr = tt.err

			requireFailure(t, f.callback(f.start(t)), tt.kind)
			require.Empty(t, f.client.fetchTokens)

			s := f.session(t)
			require.Empty(t, s.AccessToken)
			require.True(t, s.ExpiresAt.IsZero())
		})
	}
}

func TestController_IdentityFailures(t *testing.T) {
	t.Run("missing user id", func(t *testing.T) {
		f := setupTestFixture(t)
		f.client.identity = nil
		f.client.identityErr = fmt.Errorf("%w: field \"id\" is empty", provider.ErrIdentityMissing)

		requireFailure(t, f.callback(f.start(t)), login.ErrIdentityMissing)
		require.Empty(t, f.session(t).AccessToken)
	})

	t.Run("empty user id without error", func(t *testing.T) {
		f := setupTestFixture(t)
		f.client.identity = &provider.Identity{Name: "Jane Doe", Email: "jane@example.com", Domain: "example.com"}

		requireFailure(t, f.callback(f.start(t)), login.ErrIdentityMissing)
	})

	t.Run("transport", func(t *testing.T) {
		f := setupTestFixture(t)
		f.client.identity = nil
		f.client.identityErr = fmt.Errorf("%w: timeout", provider.ErrTransport)

		requireFailure(t, f.callback(f.start(t)), login.ErrTransport)
	})
}

func TestController_DomainPolicy(t *testing.T) {
	allow := func(c *provider.Config) { c.AllowedDomains = "example.com, other.org" }

	t.Run("allowed", func(t *testing.T) {
		f := setupTestFixture(t, allow)
		require.Equal(t, login.OutcomeLogin, f.callback(f.start(t)).Kind)
	})

	t.Run("rejected", func(t *testing.T) {
		f := setupTestFixture(t, allow)
		f.client.identity.Domain = "evil.com"

		out := f.callback(f.start(t))
		requireFailure(t, out, login.ErrDomainNotAllowed)
		require.ErrorIs(t, out.Err, policy.ErrDomainNotAllowed)
		require.Contains(t, out.Message, "evil.com")
		require.Nil(t, out.Identity)
	})

	t.Run("absent claim", func(t *testing.T) {
		f := setupTestFixture(t, allow)
		f.client.identity.Domain = ""

		out := f.callback(f.start(t))
		requireFailure(t, out, login.ErrDomainNotAllowed)
		require.Contains(t, out.Message, "Gmail")
	})

	t.Run("custom filter", func(t *testing.T) {
		f := setupTestFixture(t)
		ctrl, err := login.NewController(f.config, f.client, f.repo,
			login.WithFilter(policy.NewDomainFilter("other.org", "")))
		require.NoError(t, err)

		require.Equal(t, login.OutcomeRedirect, ctrl.Handle(context.Background(), login.Request{SessionID: testSessionID}).Kind)
		s := f.session(t)
		requireFailure(t, ctrl.Handle(context.Background(), login.Request{SessionID: testSessionID, Code: "c", State: s.State}), login.ErrDomainNotAllowed)
	})
}

// failingRepo returns an error from every call.
type failingRepo struct{ sessions.InMemoryRepo }

func (*failingRepo) Get(context.Context, string) (*sessions.SessionData, error) {
	return nil, errors.New("store down")
}

func TestController_SessionStoreFailure(t *testing.T) {
	f := setupTestFixture(t)
	ctrl, err := login.NewController(f.config, f.client, &failingRepo{})
	require.NoError(t, err)

	requireFailure(t, ctrl.Handle(context.Background(), login.Request{SessionID: testSessionID}), login.ErrUnexpectedFlowState)
	requireFailure(t, ctrl.Handle(context.Background(), login.Request{}), login.ErrUnexpectedFlowState)
}

func TestNewController_Validation(t *testing.T) {
	f := setupTestFixture(t)

	_, err := login.NewController(nil, f.client, f.repo)
	require.Error(t, err)
	_, err = login.NewController(f.config, nil, f.repo)
	require.Error(t, err)
	_, err = login.NewController(f.config, f.client, nil)
	require.Error(t, err)
}

func TestKindLabel(t *testing.T) {
	require.Equal(t, "csrf_mismatch", login.KindLabel(&login.FlowError{Kind: login.ErrCsrfMismatch}))
	require.Equal(t, "domain_not_allowed", login.KindLabel(fmt.Errorf("wrapped: %w", &login.FlowError{Kind: login.ErrDomainNotAllowed})))
	require.Equal(t, "unknown", login.KindLabel(errors.New("other")))
}
