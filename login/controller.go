package login

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	autherrors "github.com/jrsteele09/go-auth-login/internal/errors"
	"github.com/jrsteele09/go-auth-login/policy"
	"github.com/jrsteele09/go-auth-login/provider"
	"github.com/jrsteele09/go-auth-login/sessions"
)

const (
	msgNotEnabled        = "This third-party authentication provider has not been enabled. Please notify the admin or try again later."
	msgNoCredentials     = "This third-party authentication provider has not been configured with an API key/secret. Please notify the admin or try again later."
	msgGeneric           = "Sorry, we couldn't log you in. Please notify the admin or try again later."
	msgTokenTransport    = "Sorry, we couldn't log you in. Could not retrieve access token. Please notify the admin or try again later."
	msgIdentityTransport = "Sorry, we couldn't log you in. Could not retrieve user identity. Please notify the admin or try again later."
	msgMalformedToken    = "Sorry, we couldn't log you in. Malformed access token result detected. Please notify the admin or try again later."
	msgIdentityMissing   = "Sorry, we couldn't log you in. User identity was not found. Please notify the admin or try again later."
	msgDomainNotAllowed  = "Sorry, we couldn't log you in. Your domain is not allowed : %s"
	msgUnexpected        = "Sorry, we couldn't log you in. The authentication flow terminated in an unexpected way. Please notify the admin or try again later."

	stateLength       = 32
	maxProviderMsgLen = 256
)

// IdentityClient is the provider side of the flow.
type IdentityClient interface {
	AuthorizationURL(state string) string
	ExchangeCodeForToken(ctx context.Context, code string) (*provider.TokenResult, error)
	FetchIdentity(ctx context.Context, accessToken string) (*provider.Identity, error)
}

// IdentityFilter gates an identity after it has been fetched.
type IdentityFilter interface {
	Check(identity *provider.Identity) error
}

// Request is the part of an inbound browser request the flow looks at.
type Request struct {
	SessionID string

	Code             string
	State            string
	ErrorDescription string
	ErrorMessage     string

	// LastURL, when set, replaces the session's post-login destination.
	LastURL string

	RemoteAddr string
	UserAgent  string
}

type phase int

const (
	phaseNotConfigured phase = iota + 1
	phaseProviderError
	phaseCallback
	phaseStart
)

// Controller drives the authorization code flow for one provider. Each
// inbound request is one pass through Handle; the session is the only state
// carried between passes.
type Controller struct {
	config   *provider.Config
	client   IdentityClient
	filter   IdentityFilter
	sessions sessions.Repo
	auditor  SecurityAuditor
	now      func() time.Time
	newState func() (string, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithFilter replaces the domain filter built from the provider config.
func WithFilter(f IdentityFilter) Option {
	return func(c *Controller) {
		c.filter = f
	}
}

// WithAuditor sets the recipient of CSRF mismatch reports.
func WithAuditor(a SecurityAuditor) Option {
	return func(c *Controller) {
		c.auditor = a
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithStateGenerator overrides the CSRF state generator.
func WithStateGenerator(gen func() (string, error)) Option {
	return func(c *Controller) {
		c.newState = gen
	}
}

// NewController binds config, client and the session store together.
func NewController(config *provider.Config, client IdentityClient, sessionRepo sessions.Repo, opts ...Option) (*Controller, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if client == nil {
		return nil, errors.New("identity client is required")
	}
	if sessionRepo == nil {
		return nil, errors.New("session repo is required")
	}

	c := &Controller{
		config:   config,
		client:   client,
		filter:   policy.NewDomainFilter(config.AllowedDomains, config.DefaultDomain),
		sessions: sessionRepo,
		auditor:  LogAuditor{},
		now:      time.Now,
		newState: NewState,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Provider returns the name of the provider this controller serves.
func (c *Controller) Provider() string {
	return c.config.Name
}

// Handle runs one pass of the flow and always returns a terminal Outcome.
func (c *Controller) Handle(ctx context.Context, req Request) Outcome {
	if req.SessionID == "" {
		return c.fail(ctx, nil, ErrUnexpectedFlowState, msgUnexpected, errors.New("missing session id"))
	}

	session, err := c.loadSession(ctx, req.SessionID)
	if err != nil {
		return c.fail(ctx, nil, ErrUnexpectedFlowState, msgUnexpected, err)
	}
	session.Provider = c.config.Name
	if req.LastURL != "" {
		session.LastURL = req.LastURL
	}

	switch c.phase(req) {
	case phaseNotConfigured:
		msg := msgNoCredentials
		if !c.config.Enabled {
			msg = msgNotEnabled
		}
		return c.fail(ctx, session, ErrNotConfigured, msg, nil)

	case phaseProviderError:
		msg := req.ErrorDescription
		if msg == "" {
			msg = req.ErrorMessage
		}
		msg = truncate(msg, maxProviderMsgLen)
		return c.fail(ctx, session, ErrProviderReported, msg, errors.New(msg))

	case phaseCallback:
		return c.callback(ctx, session, req)

	case phaseStart:
		return c.start(ctx, session)
	}

	return c.fail(ctx, session, ErrUnexpectedFlowState, msgUnexpected, nil)
}

// phase applies the transition rules in their fixed priority order.
func (c *Controller) phase(req Request) phase {
	switch {
	case !c.config.Enabled || !c.config.HasCredentials():
		return phaseNotConfigured
	case req.ErrorDescription != "" || req.ErrorMessage != "":
		return phaseProviderError
	case req.Code != "":
		return phaseCallback
	default:
		return phaseStart
	}
}

func (c *Controller) start(ctx context.Context, session *sessions.SessionData) Outcome {
	if session.TokenExpired(c.now()) {
		session.ClearLoginState()
	}

	state, err := c.newState()
	if err != nil {
		return c.fail(ctx, session, ErrUnexpectedFlowState, msgUnexpected, err)
	}
	session.State = state

	if err := c.sessions.Upsert(ctx, session.ID, session); err != nil {
		return c.fail(ctx, session, ErrUnexpectedFlowState, msgUnexpected, err)
	}

	log.Debug().Str("provider", c.config.Name).Str("session_id", session.ID).Msg("redirecting to provider")

	return Outcome{
		Kind:        OutcomeRedirect,
		Provider:    c.config.Name,
		RedirectURL: c.client.AuthorizationURL(state),
	}
}

func (c *Controller) callback(ctx context.Context, session *sessions.SessionData, req Request) Outcome {
	hadState := session.State != ""

	ok, err := c.sessions.ConsumeState(ctx, session.ID, req.State)
	if err != nil {
		return c.fail(ctx, session, ErrUnexpectedFlowState, msgUnexpected, err)
	}
	session.State = ""

	if !ok {
		c.auditor.CsrfMismatch(ctx, CsrfMismatchReport{
			SessionID:     session.ID,
			Provider:      c.config.Name,
			HadState:      hadState,
			ReceivedState: req.State,
			RemoteAddr:    req.RemoteAddr,
			UserAgent:     req.UserAgent,
			Time:          c.now(),
		})
		return c.fail(ctx, session, ErrCsrfMismatch, msgGeneric, nil)
	}

	tok, err := c.client.ExchangeCodeForToken(ctx, req.Code)
	if err != nil {
		if errors.Is(err, provider.ErrMalformedTokenResponse) {
			return c.fail(ctx, session, ErrMalformedTokenResponse, msgMalformedToken, err)
		}
		return c.fail(ctx, session, ErrTransport, msgTokenTransport, err)
	}

	now := c.now()
	session.AccessToken = tok.AccessToken
	session.IssuedAt = now
	session.ExpiresAt = now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	if err := c.sessions.Upsert(ctx, session.ID, session); err != nil {
		return c.fail(ctx, session, ErrUnexpectedFlowState, msgUnexpected, err)
	}

	identity, err := c.client.FetchIdentity(ctx, session.AccessToken)
	if err != nil {
		if errors.Is(err, provider.ErrTransport) {
			return c.fail(ctx, session, ErrTransport, msgIdentityTransport, err)
		}
		return c.fail(ctx, session, ErrIdentityMissing, msgIdentityMissing, err)
	}
	if identity == nil || identity.UserID == "" {
		return c.fail(ctx, session, ErrIdentityMissing, msgIdentityMissing, provider.ErrIdentityMissing)
	}
	identity.Provider = c.config.Name

	if err := c.filter.Check(identity); err != nil {
		value := ""
		var rejected *policy.DomainNotAllowedError
		if errors.As(err, &rejected) {
			value = rejected.Value
		}
		return c.fail(ctx, session, ErrDomainNotAllowed, fmt.Sprintf(msgDomainNotAllowed, value), err)
	}

	returnURL := session.LastURL
	session.ClearLoginState()
	if err := c.sessions.Upsert(ctx, session.ID, session); err != nil {
		log.Err(err).Str("session_id", session.ID).Msg("failed to clear login state")
	}

	log.Info().Str("provider", c.config.Name).Str("user_id", identity.UserID).Msg("identity verified")

	return Outcome{
		Kind:      OutcomeLogin,
		Provider:  c.config.Name,
		Identity:  identity,
		ReturnURL: returnURL,
	}
}

// fail clears the attempt's state from the session and builds the failure.
func (c *Controller) fail(ctx context.Context, session *sessions.SessionData, kind error, message string, cause error) Outcome {
	ferr := &FlowError{Kind: kind, Message: message, Err: cause}

	if session != nil {
		session.ClearLoginState()
		if err := c.sessions.Upsert(ctx, session.ID, session); err != nil {
			log.Err(err).Str("session_id", session.ID).Msg("failed to clear login state")
		}
	}

	log.Info().Err(ferr).Str("provider", c.config.Name).Str("kind", KindLabel(kind)).Msg("login attempt failed")

	return Outcome{
		Kind:     OutcomeFailure,
		Provider: c.config.Name,
		Message:  message,
		Err:      ferr,
	}
}

func (c *Controller) loadSession(ctx context.Context, sessionID string) (*sessions.SessionData, error) {
	session, err := c.sessions.Get(ctx, sessionID)
	if errors.Is(err, autherrors.ErrSessionNotFound) {
		return &sessions.SessionData{ID: sessionID, Timestamp: c.now()}, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// NewState returns a fresh random base64url CSRF state token.
func NewState() (string, error) {
	b := make([]byte, stateLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
