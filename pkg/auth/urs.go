package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	pusherrors "github.com/mailpush/pushmail-sdk-go/pkg/errors"
	"github.com/mailpush/pushmail-sdk-go/pkg/logging"
	"github.com/mailpush/pushmail-sdk-go/pkg/routing"
)

// DefaultLoginTimeout bounds a single credential-service round trip.
const DefaultLoginTimeout = 30 * time.Second

// successCode is the credential-service return code for an accepted login.
const successCode = "201"

// tokenLine is the zero-based line of the login response that carries the
// session cookie as a key=value pair.
const tokenLine = 3

// URSAuthenticator logs in against the credential service of the user's
// mail domain. The service speaks a plain-text, newline-delimited dialect:
// the first line is a numeric return code and, on success, the fourth line
// carries the session cookie.
type URSAuthenticator struct {
	client  *http.Client
	routes  *routing.Table
	timeout time.Duration
	logger  logging.Logger
}

// URSOption configures the credential-service authenticator.
type URSOption func(*URSAuthenticator)

// WithHTTPClient substitutes the underlying http.Client.
func WithHTTPClient(client *http.Client) URSOption {
	return func(a *URSAuthenticator) {
		a.client = client
	}
}

// WithRoutingTable overrides the domain routing table.
func WithRoutingTable(routes *routing.Table) URSOption {
	return func(a *URSAuthenticator) {
		a.routes = routes
	}
}

// WithLoginTimeout overrides the per-login request timeout.
func WithLoginTimeout(timeout time.Duration) URSOption {
	return func(a *URSAuthenticator) {
		a.timeout = timeout
	}
}

// WithLogger sets the authenticator logger.
func WithLogger(logger logging.Logger) URSOption {
	return func(a *URSAuthenticator) {
		a.logger = logger
	}
}

// NewURSAuthenticator creates an authenticator over the default routing
// table.
func NewURSAuthenticator(options ...URSOption) *URSAuthenticator {
	a := &URSAuthenticator{
		timeout: DefaultLoginTimeout,
		logger:  logging.NewNop(),
	}

	for _, option := range options {
		option(a)
	}

	if a.client == nil {
		a.client = &http.Client{}
	}
	if a.routes == nil {
		a.routes = routing.DefaultTable()
	}

	return a
}

// Login authenticates username with secret against the credential service
// of the username's domain and returns the session token.
func (a *URSAuthenticator) Login(ctx context.Context, username, secret string) (string, error) {
	if username == "" || secret == "" {
		return "", pusherrors.New(pusherrors.CodeIllegalParam).
			WithDetail("username and secret are required").
			WithContext(&pusherrors.Context{Operation: pusherrors.OpLogin})
	}

	route, err := a.routes.Resolve(username)
	if err != nil {
		return "", err
	}

	form := url.Values{
		"username":  {username},
		"password":  {secret},
		"product":   {route.Product},
		"type":      {"1"},
		"savelogin": {"0"},
		"passtype":  {"0"},
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, route.AuthEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", pusherrors.Wrap(err, pusherrors.CodeIllegalParam).
			WithContext(&pusherrors.Context{Operation: pusherrors.OpLogin, Endpoint: route.AuthEndpoint})
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Request-ID", uuid.New().String())

	a.logger.Debug("logging in",
		logging.String("operation", string(pusherrors.OpLogin)),
		logging.String("username", username),
		logging.String("endpoint", route.AuthEndpoint))

	resp, err := a.client.Do(req)
	if err != nil {
		return "", a.classifyLoginError(ctx, reqCtx, err, route.AuthEndpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", a.classifyLoginError(ctx, reqCtx, err, route.AuthEndpoint)
	}

	if resp.StatusCode != http.StatusOK {
		return "", pusherrors.Newf(pusherrors.CodeServerError, "http status %d", resp.StatusCode).
			WithContext(&pusherrors.Context{Operation: pusherrors.OpLogin, Endpoint: route.AuthEndpoint, Payload: body})
	}

	token, err := parseLoginResponse(string(body))
	if err != nil {
		if pushErr, ok := pusherrors.AsPushError(err); ok {
			return "", pushErr.WithContext(&pusherrors.Context{Operation: pusherrors.OpLogin, Endpoint: route.AuthEndpoint})
		}
		return "", err
	}

	return token, nil
}

// parseLoginResponse extracts the session token from the newline-delimited
// credential-service response. Line 0 is the return code; on success the
// token is whatever follows the first "=" on line 3. A missing token line
// yields an empty token without error.
func parseLoginResponse(body string) (string, error) {
	lines := strings.Split(body, "\n")
	retcode := strings.TrimSpace(lines[0])

	if retcode != successCode {
		return "", pusherrors.FromURSCode(retcode)
	}

	if len(lines) <= tokenLine {
		return "", nil
	}

	line := strings.TrimSpace(lines[tokenLine])
	if idx := strings.Index(line, "="); idx >= 0 {
		return line[idx+1:], nil
	}
	return "", nil
}

// classifyLoginError maps a credential-service transport failure into the
// taxonomy. The parent context distinguishes a caller abort from the
// request deadline.
func (a *URSAuthenticator) classifyLoginError(parent, reqCtx context.Context, err error, endpoint string) error {
	code := pusherrors.CodeNetworkError

	switch {
	case parent.Err() != nil && errors.Is(parent.Err(), context.Canceled):
		code = pusherrors.CodeAborted
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(reqCtx.Err(), context.DeadlineExceeded):
		code = pusherrors.CodeTimeout
	case errors.Is(err, context.Canceled):
		code = pusherrors.CodeAborted
	default:
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			code = pusherrors.CodeTimeout
		}
	}

	return pusherrors.Wrap(err, code).
		WithContext(&pusherrors.Context{Operation: pusherrors.OpLogin, Endpoint: endpoint})
}
