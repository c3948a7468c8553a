package client

import (
	"time"

	pusherrors "github.com/mailpush/pushmail-sdk-go/pkg/errors"
)

// DefaultRetryDelay is the pause before any recovery attempt. It is a
// deliberately generous constant backoff: observed failure modes are
// transient capacity and timeout conditions that clear within a minute,
// so there is nothing to gain from exponential growth.
const DefaultRetryDelay = 60 * time.Second

// Action is what the retry policy prescribes for a classified failure.
type Action int

const (
	// ActionSurface gives up: the error is fatal to the session and is
	// left with the caller.
	ActionSurface Action = iota

	// ActionRetry re-issues the operation that failed.
	ActionRetry

	// ActionRestart tears the session down and rebuilds it, reusing the
	// cached token when one exists.
	ActionRestart

	// ActionReauthenticate invalidates the cached token and rebuilds
	// the session from a fresh login.
	ActionReauthenticate
)

// strength orders recovery actions by how much of the session they
// rebuild: reauthenticate > restart > retry. Surface carries no
// strength; it never replaces an armed recovery.
func (a Action) strength() int {
	switch a {
	case ActionRetry:
		return 1
	case ActionRestart:
		return 2
	case ActionReauthenticate:
		return 3
	}
	return 0
}

// supersedes reports whether a is a strictly stronger recovery than b.
func (a Action) supersedes(b Action) bool {
	return a.strength() > b.strength()
}

// String returns the action name for logging.
func (a Action) String() string {
	switch a {
	case ActionSurface:
		return "surface"
	case ActionRetry:
		return "retry"
	case ActionRestart:
		return "restart"
	case ActionReauthenticate:
		return "reauthenticate"
	}
	return "unknown"
}

// Decision is the policy's verdict: what to do and how long to wait
// first. Delay is zero when the action is ActionSurface.
type Decision struct {
	Action Action
	Delay  time.Duration
}

// RetryPolicy maps a classified error to a recovery decision. The
// mapping is a fixed table over the error taxonomy; the delay is
// configurable so tests do not sit through the production backoff.
type RetryPolicy struct {
	delay time.Duration
}

// NewRetryPolicy creates a policy with the given delay. A zero delay
// selects DefaultRetryDelay.
func NewRetryPolicy(delay time.Duration) *RetryPolicy {
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	return &RetryPolicy{delay: delay}
}

// Decide returns the recovery decision for an error code and the
// operation that produced it. An error with no mapped recovery and no
// identifiable originating operation is surfaced rather than retried.
func (p *RetryPolicy) Decide(code pusherrors.Code, op pusherrors.Operation) Decision {
	switch code {
	case pusherrors.CodeUnknownClientID, pusherrors.CodeExceedMaxConn:
		return Decision{Action: ActionRestart, Delay: p.delay}

	case pusherrors.CodeCannotCmd:
		if op == "" {
			return Decision{Action: ActionSurface}
		}
		return Decision{Action: ActionRetry, Delay: p.delay}

	case pusherrors.CodeAuthFailed:
		return Decision{Action: ActionReauthenticate, Delay: p.delay}

	case pusherrors.CodeServerError, pusherrors.CodeTimeout, pusherrors.CodeNetworkError:
		if op == "" {
			return Decision{Action: ActionSurface}
		}
		return Decision{Action: ActionRetry, Delay: p.delay}

	case pusherrors.CodeIllegalParam,
		pusherrors.CodeExceedRateLimit,
		pusherrors.CodeAccountNotFound,
		pusherrors.CodeAccountFrozen,
		pusherrors.CodePasswordMismatch,
		pusherrors.CodeAborted:
		return Decision{Action: ActionSurface}
	}

	return Decision{Action: ActionSurface}
}
