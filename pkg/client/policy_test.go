package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	pusherrors "github.com/mailpush/pushmail-sdk-go/pkg/errors"
)

func TestRetryPolicyDecisions(t *testing.T) {
	policy := NewRetryPolicy(0)

	tests := []struct {
		name string
		code pusherrors.Code
		op   pusherrors.Operation
		want Action
	}{
		{"unknown clientid restarts", pusherrors.CodeUnknownClientID, pusherrors.OpPoll, ActionRestart},
		{"exceed max conn restarts", pusherrors.CodeExceedMaxConn, pusherrors.OpConnect, ActionRestart},
		{"cannot cmd retries op", pusherrors.CodeCannotCmd, pusherrors.OpPoll, ActionRetry},
		{"cannot cmd without op surfaces", pusherrors.CodeCannotCmd, "", ActionSurface},
		{"auth failed reauthenticates", pusherrors.CodeAuthFailed, pusherrors.OpSignin, ActionReauthenticate},
		{"server error retries op", pusherrors.CodeServerError, pusherrors.OpPoll, ActionRetry},
		{"timeout retries op", pusherrors.CodeTimeout, pusherrors.OpPoll, ActionRetry},
		{"network error retries op", pusherrors.CodeNetworkError, pusherrors.OpConnect, ActionRetry},
		{"server error without op surfaces", pusherrors.CodeServerError, "", ActionSurface},
		{"password mismatch surfaces", pusherrors.CodePasswordMismatch, pusherrors.OpLogin, ActionSurface},
		{"account frozen surfaces", pusherrors.CodeAccountFrozen, pusherrors.OpLogin, ActionSurface},
		{"illegal param surfaces", pusherrors.CodeIllegalParam, pusherrors.OpConnect, ActionSurface},
		{"aborted surfaces", pusherrors.CodeAborted, pusherrors.OpPoll, ActionSurface},
		{"unregistered code surfaces", pusherrors.Code("bogus"), pusherrors.OpPoll, ActionSurface},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decision := policy.Decide(tc.code, tc.op)
			assert.Equal(t, tc.want, decision.Action)
			if tc.want == ActionSurface {
				assert.Zero(t, decision.Delay)
			} else {
				assert.Equal(t, DefaultRetryDelay, decision.Delay)
			}
		})
	}
}

func TestRetryPolicyConfigurableDelay(t *testing.T) {
	policy := NewRetryPolicy(5 * time.Second)
	decision := policy.Decide(pusherrors.CodeUnknownClientID, pusherrors.OpPoll)
	assert.Equal(t, 5*time.Second, decision.Delay)
}

func TestActionSupersedes(t *testing.T) {
	assert.True(t, ActionReauthenticate.supersedes(ActionRestart))
	assert.True(t, ActionReauthenticate.supersedes(ActionRetry))
	assert.True(t, ActionRestart.supersedes(ActionRetry))
	assert.False(t, ActionRetry.supersedes(ActionRetry))
	assert.False(t, ActionRetry.supersedes(ActionRestart))
	assert.False(t, ActionSurface.supersedes(ActionRetry))
	assert.False(t, ActionReauthenticate.supersedes(ActionReauthenticate))
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "surface", ActionSurface.String())
	assert.Equal(t, "retry", ActionRetry.String())
	assert.Equal(t, "restart", ActionRestart.String())
	assert.Equal(t, "reauthenticate", ActionReauthenticate.String())
}
