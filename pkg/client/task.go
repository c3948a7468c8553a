package client

import (
	"time"

	pusherrors "github.com/mailpush/pushmail-sdk-go/pkg/errors"
)

// retryTask is a pending recovery: a decision armed behind a timer. The
// run loop selects on C(); stop() disarms it so a stopped engine never
// fires a stale recovery. A nil task is valid and never fires.
type retryTask struct {
	timer    *time.Timer
	decision Decision
	op       pusherrors.Operation
}

func newRetryTask(decision Decision, op pusherrors.Operation) *retryTask {
	return &retryTask{
		timer:    time.NewTimer(decision.Delay),
		decision: decision,
		op:       op,
	}
}

func (t *retryTask) C() <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.timer.C
}

func (t *retryTask) stop() {
	if t != nil {
		t.timer.Stop()
	}
}
