package login

import (
	"context"

	"github.com/jrsteele09/go-auth-login/provider"
)

// OutcomeKind is the tag of an Outcome.
type OutcomeKind int

const (
	// OutcomeRedirect sends the browser to the provider to authenticate.
	OutcomeRedirect OutcomeKind = iota + 1
	// OutcomeLogin hands a verified identity to the host application.
	OutcomeLogin
	// OutcomeFailure ends the attempt with a user facing message.
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeRedirect:
		return "redirect"
	case OutcomeLogin:
		return "login"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is the single result of one pass through the controller.
type Outcome struct {
	Kind        OutcomeKind
	Provider    string
	RedirectURL string             // OutcomeRedirect
	Identity    *provider.Identity // OutcomeLogin
	ReturnURL   string             // OutcomeLogin, the last visited URL
	Message     string             // OutcomeFailure
	Err         error              // OutcomeFailure, a *FlowError
}

// Sink receives the outcome of a pass. Exactly one method is invoked per
// request, and nothing of the flow runs afterwards.
type Sink interface {
	Redirect(url string)
	Login(ctx context.Context, identity *provider.Identity, returnURL string)
	Fail(message string, err error)
}

// Terminate delivers outcome to sink. An outcome of unknown kind is turned
// into a failure so that every request reaches a terminal response.
func Terminate(ctx context.Context, outcome Outcome, sink Sink) {
	switch outcome.Kind {
	case OutcomeRedirect:
		sink.Redirect(outcome.RedirectURL)
	case OutcomeLogin:
		sink.Login(ctx, outcome.Identity, outcome.ReturnURL)
	case OutcomeFailure:
		sink.Fail(outcome.Message, outcome.Err)
	default:
		sink.Fail(msgUnexpected, &FlowError{Kind: ErrUnexpectedFlowState, Message: msgUnexpected})
	}
}
