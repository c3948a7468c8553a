// Package client implements the protocol engine: the state machine that
// authenticates a mailbox, performs the connect handshake, signs in for
// push notifications, and keeps exactly one long poll outstanding,
// emitting mail notifications and lifecycle events through the bus.
//
// All mutable session state is owned by a single run-loop goroutine.
// Network calls run in their own goroutines and report back over a
// completions channel; the loop is the only writer of clientId, token,
// and state, so no lock covers the protocol flow itself.
package client

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mailpush/pushmail-sdk-go/pkg/auth"
	pusherrors "github.com/mailpush/pushmail-sdk-go/pkg/errors"
	"github.com/mailpush/pushmail-sdk-go/pkg/events"
	"github.com/mailpush/pushmail-sdk-go/pkg/logging"
	"github.com/mailpush/pushmail-sdk-go/pkg/observability"
	"github.com/mailpush/pushmail-sdk-go/pkg/protocol"
	"github.com/mailpush/pushmail-sdk-go/pkg/routing"
	"github.com/mailpush/pushmail-sdk-go/pkg/transport"
)

// Event names emitted through the bus. Payload types are noted per
// event.
const (
	// EventInitDone carries the session token (string) once credentials
	// are established, either from a cached token or a fresh login.
	EventInitDone = "InitDone"

	// EventLoginFail carries the classified error that ended the
	// session before or during authentication. The engine does not
	// auto-retry authentication.
	EventLoginFail = "LoginFail"

	// EventConnectSuccess carries the server-assigned clientId (string).
	EventConnectSuccess = "ConnectSuccess"

	// EventSigninSuccess carries no payload; the push subscription was
	// acknowledged on the poll channel.
	EventSigninSuccess = "SigninSuccess"

	// EventPollingSuccess carries no payload; one long-poll round
	// completed without error.
	EventPollingSuccess = "PollingSuccess"

	// EventReceiveMail carries a protocol.MailNotification.
	EventReceiveMail = "ReceiveMail"

	// EventError carries the classified error (pusherrors.PushError)
	// behind every recovery or surfaced failure.
	EventError = "Error"
)

// DefaultProduct identifies this client to the push and credential
// services when no override is configured.
const DefaultProduct = "webmail"

// State is the engine's lifecycle phase.
type State int

const (
	// StateIdle means the engine has not started, or authentication
	// failed and the engine is waiting for the caller.
	StateIdle State = iota

	// StateAuthenticating means a login against the credential service
	// is outstanding.
	StateAuthenticating

	// StateConnecting means the connect handshake is outstanding.
	StateConnecting

	// StatePolling is the steady state: a long poll is outstanding,
	// with the signin request possibly still in flight alongside it.
	StatePolling

	// StateRecovering means a classified error occurred and a delayed
	// recovery is pending.
	StateRecovering

	// StateStopped means Stop was called.
	StateStopped
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthenticating:
		return "authenticating"
	case StateConnecting:
		return "connecting"
	case StatePolling:
		return "polling"
	case StateRecovering:
		return "recovering"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// completion is one finished network call reported back to the run
// loop, tagged with the session generation that issued it.
type completion struct {
	gen   int
	op    pusherrors.Operation
	res   *protocol.Result
	token string
	err   error
}

// session is one epoch of the protocol flow: a connect handshake and
// the requests issued under its clientId. Rebuilding the session
// cancels the epoch's context and bumps the generation, so requests
// still outstanding from the old epoch abort, and their completions
// are recognised as stale and dropped instead of being processed as
// current-session traffic.
type session struct {
	ctx      context.Context
	cancel   context.CancelFunc
	gen      int
	clientID string
}

func newSession(parent context.Context) *session {
	s := &session{gen: 1}
	s.ctx, s.cancel = context.WithCancel(parent)
	return s
}

// rotate ends the current epoch and begins the next one.
func (s *session) rotate(parent context.Context) {
	s.cancel()
	s.gen++
	s.clientID = ""
	s.ctx, s.cancel = context.WithCancel(parent)
}

// Engine drives one push-mail session. Construct with NewEngine, start
// with Start, subscribe to events with On. A stopped engine can be
// started again; the cached token survives the stop.
type Engine struct {
	transport transport.Transport
	auth      auth.Authenticator
	routes    *routing.Table
	bus       events.Bus
	logger    logging.Logger
	metrics   observability.MetricsProvider
	policy    *RetryPolicy

	username string
	secret   string
	product  string
	endpoint string

	mu      sync.Mutex
	token   string
	state   State
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithCredentials sets the account and its plaintext secret. Supplying
// a secret invalidates any cached token; the two are mutually
// exclusive inputs and the secret wins.
func WithCredentials(username, secret string) EngineOption {
	return func(e *Engine) {
		e.username = username
		e.secret = secret
	}
}

// WithToken sets the account and a previously obtained session token,
// skipping the credential service on start.
func WithToken(username, token string) EngineOption {
	return func(e *Engine) {
		e.username = username
		e.token = token
	}
}

// WithProduct overrides the product identifier sent on signin.
func WithProduct(product string) EngineOption {
	return func(e *Engine) {
		e.product = product
	}
}

// WithRoutingTable overrides the domain routing table.
func WithRoutingTable(routes *routing.Table) EngineOption {
	return func(e *Engine) {
		e.routes = routes
	}
}

// WithPushEndpoint pins the push endpoint, bypassing route resolution.
func WithPushEndpoint(endpoint string) EngineOption {
	return func(e *Engine) {
		e.endpoint = endpoint
	}
}

// WithBus substitutes the event bus.
func WithBus(bus events.Bus) EngineOption {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger logging.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics sets the metrics provider.
func WithMetrics(metrics observability.MetricsProvider) EngineOption {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// WithRetryPolicy substitutes the recovery policy.
func WithRetryPolicy(policy *RetryPolicy) EngineOption {
	return func(e *Engine) {
		e.policy = policy
	}
}

// NewEngine creates an engine over the given transport and
// authenticator.
func NewEngine(t transport.Transport, a auth.Authenticator, options ...EngineOption) *Engine {
	e := &Engine{
		transport: t,
		auth:      a,
		product:   DefaultProduct,
		state:     StateIdle,
	}

	for _, option := range options {
		option(e)
	}

	// A plaintext secret always supersedes a cached token.
	if e.secret != "" {
		e.token = ""
	}

	if e.routes == nil {
		e.routes = routing.DefaultTable()
	}
	if e.bus == nil {
		e.bus = events.NewEmitter()
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.metrics == nil {
		e.metrics = observability.NopMetricsProvider{}
	}
	if e.policy == nil {
		e.policy = NewRetryPolicy(0)
	}

	return e
}

// On subscribes a handler to a named event.
func (e *Engine) On(event string, handler events.Handler) {
	e.bus.Subscribe(event, handler)
}

// State reports the engine's current lifecycle phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Token returns the cached session token, empty until a login succeeds.
func (e *Engine) Token() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.token
}

// Start validates configuration, resolves the push endpoint, and spawns
// the run loop. It returns immediately; progress is reported through
// events. Starting a running engine is a no-op. The context bounds the
// whole session: cancelling it is equivalent to Stop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}

	if e.username == "" {
		return pusherrors.New(pusherrors.CodeIllegalParam).
			WithDetail("username is required")
	}
	if e.secret == "" && e.token == "" {
		return pusherrors.New(pusherrors.CodeIllegalParam).
			WithDetail("either a secret or a cached token is required")
	}

	if e.endpoint == "" {
		route, err := e.routes.Resolve(e.username)
		if err != nil {
			return err
		}
		e.endpoint = route.PushEndpoint
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true

	go e.run(runCtx, cancel)
	return nil
}

// Stop aborts any outstanding request, cancels a pending recovery,
// clears the clientId and all subscriptions, and waits for the run loop
// to exit. Safe to call repeatedly and on a never-started engine.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// run is the session loop. It is the sole owner of the session epoch
// and the only goroutine that transitions state or emits events. A loop
// that ends because of Stop (or parent-context cancellation) clears the
// bus and lands in StateStopped; a loop that ends because
// authentication failed or an error was surfaced leaves the
// subscriptions intact and the engine in StateIdle, ready for another
// Start.
func (e *Engine) run(ctx context.Context, cancel context.CancelFunc) {
	completions := make(chan completion, 4)
	g := new(errgroup.Group)

	sess := newSession(ctx)
	var pending *retryTask
	stopping := false

	defer func() {
		pending.stop()
		cancel()
		g.Wait()
		e.mu.Lock()
		e.running = false
		if stopping {
			e.state = StateStopped
		}
		e.mu.Unlock()
		e.metrics.RecordConnectionState(0)
		if stopping {
			e.bus.Clear()
		}
		close(e.done)
	}()

	if token := e.Token(); token != "" {
		e.bus.Emit(EventInitDone, token)
		e.setState(StateConnecting)
		e.spawnConnect(sess, g, completions)
	} else {
		e.setState(StateAuthenticating)
		e.spawnLogin(sess, g, completions)
	}

	for {
		select {
		case <-ctx.Done():
			stopping = true
			return

		case c := <-completions:
			// A completion racing the cancellation must stay inert.
			if ctx.Err() != nil {
				stopping = true
				return
			}
			// So must a response from a rebuilt-away epoch.
			if c.gen != sess.gen {
				e.logger.Debug("dropping stale completion",
					logging.String("operation", string(c.op)),
					logging.Int("generation", c.gen))
				continue
			}
			var exit bool
			pending, exit = e.handleCompletion(sess, g, completions, c, pending)
			if exit {
				return
			}

		case <-pending.C():
			if ctx.Err() != nil {
				stopping = true
				return
			}
			task := pending
			pending = nil
			if e.executeRecovery(ctx, sess, g, completions, task) {
				return
			}
		}
	}
}

// handleCompletion routes one finished network call. It returns the
// possibly updated pending recovery and whether the loop must exit.
func (e *Engine) handleCompletion(sess *session, g *errgroup.Group, completions chan completion, c completion, pending *retryTask) (*retryTask, bool) {
	if c.err != nil {
		if c.op == pusherrors.OpLogin {
			e.logger.Warn("authentication failed", logging.ErrorField(c.err))
			e.setState(StateIdle)
			e.bus.Emit(EventLoginFail, c.err)
			return pending, true
		}
		return e.recover(c.err, c.op, pending)
	}

	switch c.op {
	case pusherrors.OpLogin:
		e.mu.Lock()
		e.token = c.token
		e.mu.Unlock()
		e.logger.Info("authenticated", logging.String("username", e.username))
		e.bus.Emit(EventInitDone, c.token)
		e.setState(StateConnecting)
		e.spawnConnect(sess, g, completions)

	case pusherrors.OpConnect:
		sess.clientID = c.res.ClientID
		e.logger.Info("connected", logging.String("client_id", sess.clientID))
		e.bus.Emit(EventConnectSuccess, sess.clientID)
		e.setState(StatePolling)
		e.metrics.RecordConnectionState(1)
		e.spawnSignin(sess, g, completions)
		e.spawnPoll(sess, g, completions)

	case pusherrors.OpSignin:
		// The direct response only acknowledges the subscription; the
		// signin confirmation proper arrives as an event on the poll
		// channel.
		e.logger.Debug("push subscription acknowledged")

	case pusherrors.OpPoll:
		e.bus.Emit(EventPollingSuccess, nil)
		if c.res.SigninAck {
			e.logger.Info("signed in", logging.String("username", e.username))
			e.bus.Emit(EventSigninSuccess, nil)
		}
		for _, mail := range c.res.Mail {
			e.metrics.RecordMailReceived()
			e.bus.Emit(EventReceiveMail, mail)
		}
		e.spawnPoll(sess, g, completions)
	}

	return pending, false
}

// recover classifies a failure through the retry policy. At most one
// recovery is pending at a time: a failure arriving while one is armed
// is absorbed unless its decision is strictly stronger, in which case
// it replaces the armed task (a signin auth failure must not ride out a
// plain poll retry). A surfaced error ends the loop: the engine does
// not auto-recover from it and the caller decides whether to restart.
func (e *Engine) recover(err error, op pusherrors.Operation, pending *retryTask) (*retryTask, bool) {
	code := pusherrors.CodeOf(err)
	e.bus.Emit(EventError, err)

	decision := e.policy.Decide(code, op)

	if pending != nil {
		if !decision.Action.supersedes(pending.decision.Action) {
			e.logger.Debug("recovery already pending, absorbing error",
				logging.String("code", string(code)))
			return pending, false
		}
		e.logger.Warn("escalating pending recovery",
			logging.String("from", pending.decision.Action.String()),
			logging.String("to", decision.Action.String()))
		pending.stop()
	}

	e.logger.Warn("recovering from error",
		logging.ErrorField(err),
		logging.String("action", decision.Action.String()),
		logging.Duration("delay", decision.Delay))

	if decision.Action == ActionSurface {
		e.setState(StateIdle)
		return nil, true
	}

	e.metrics.RecordRetryScheduled(string(code))
	e.metrics.RecordConnectionState(0)
	e.setState(StateRecovering)
	return newRetryTask(decision, op), false
}

// executeRecovery runs a fired recovery task and reports whether the
// loop must exit. Rebuilding actions rotate the session epoch first, so
// any request still outstanding from the old epoch is aborted and its
// eventual completion dropped; only then is exactly one request per
// slot issued again.
func (e *Engine) executeRecovery(parent context.Context, sess *session, g *errgroup.Group, completions chan completion, task *retryTask) bool {
	switch task.decision.Action {
	case ActionRetry:
		switch task.op {
		case pusherrors.OpConnect:
			e.setState(StateConnecting)
			e.spawnConnect(sess, g, completions)
		case pusherrors.OpSignin:
			e.setState(StatePolling)
			e.spawnSignin(sess, g, completions)
		default:
			e.setState(StatePolling)
			e.spawnPoll(sess, g, completions)
		}
		return false

	case ActionReauthenticate:
		e.mu.Lock()
		e.token = ""
		secret := e.secret
		e.mu.Unlock()
		if secret == "" {
			// No plaintext secret left to re-derive a token from.
			e.setState(StateIdle)
			e.bus.Emit(EventLoginFail, pusherrors.New(pusherrors.CodeAuthFailed).
				WithDetail("cached token rejected and no secret available"))
			return true
		}
		sess.rotate(parent)
		e.setState(StateAuthenticating)
		e.spawnLogin(sess, g, completions)
		return false

	case ActionRestart:
		sess.rotate(parent)
		if e.Token() != "" {
			e.setState(StateConnecting)
			e.spawnConnect(sess, g, completions)
		} else {
			e.setState(StateAuthenticating)
			e.spawnLogin(sess, g, completions)
		}
		return false
	}
	return false
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// deliver hands a completion to the run loop, dropping it when the
// issuing epoch has been cancelled in the meantime.
func deliver(ctx context.Context, completions chan completion, c completion) {
	select {
	case completions <- c:
	case <-ctx.Done():
	}
}

func (e *Engine) spawnLogin(sess *session, g *errgroup.Group, completions chan completion) {
	username, secret := e.username, e.secret
	ctx, gen := sess.ctx, sess.gen
	g.Go(func() error {
		token, err := e.auth.Login(ctx, username, secret)
		deliver(ctx, completions, completion{gen: gen, op: pusherrors.OpLogin, token: token, err: err})
		return nil
	})
}

func (e *Engine) spawnConnect(sess *session, g *errgroup.Group, completions chan completion) {
	e.spawnSend(sess, g, completions, protocol.NewConnectEnvelope())
}

func (e *Engine) spawnSignin(sess *session, g *errgroup.Group, completions chan completion) {
	env := protocol.NewSigninEnvelope(sess.clientID, e.username, e.Token(), e.product)
	e.spawnSend(sess, g, completions, env)
}

func (e *Engine) spawnPoll(sess *session, g *errgroup.Group, completions chan completion) {
	e.spawnSend(sess, g, completions, protocol.NewPollEnvelope(sess.clientID))
}

func (e *Engine) spawnSend(sess *session, g *errgroup.Group, completions chan completion, env *protocol.Envelope) {
	op := protocol.OperationFor(env.Channel)
	ctx, gen, clientID := sess.ctx, sess.gen, sess.clientID
	g.Go(func() error {
		raw, err := e.transport.Send(ctx, e.endpoint, env)
		var res *protocol.Result
		if err == nil {
			res, err = protocol.Dispatch(raw, op, clientID)
		}
		deliver(ctx, completions, completion{gen: gen, op: op, res: res, err: err})
		return nil
	})
}
