package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	pusherrors "github.com/mailpush/pushmail-sdk-go/pkg/errors"
	"github.com/mailpush/pushmail-sdk-go/pkg/logging"
	"github.com/mailpush/pushmail-sdk-go/pkg/protocol"
)

// DefaultPollTimeout is the long-poll request timeout. It must exceed
// the server's own hold time, which is well under two minutes.
const DefaultPollTimeout = 120 * time.Second

// messageField is the form field carrying the JSON-encoded envelope array.
const messageField = "message"

// HTTPTransport posts envelopes as form-encoded HTTP requests, the wire
// dialect the push server speaks.
type HTTPTransport struct {
	client      *http.Client
	pollTimeout time.Duration
	logger      logging.Logger
}

// HTTPOption configures the HTTP transport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient substitutes the underlying http.Client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		t.client = client
	}
}

// WithPollTimeout overrides the long-poll request timeout.
func WithPollTimeout(timeout time.Duration) HTTPOption {
	return func(t *HTTPTransport) {
		t.pollTimeout = timeout
	}
}

// WithLogger sets the transport logger.
func WithLogger(logger logging.Logger) HTTPOption {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

// NewHTTPTransport creates an HTTP transport with the default long-poll
// timeout.
func NewHTTPTransport(options ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		pollTimeout: DefaultPollTimeout,
		logger:      logging.NewNop(),
	}

	for _, option := range options {
		option(t)
	}

	if t.client == nil {
		t.client = &http.Client{}
	}

	return t
}

// Send posts the envelope and returns the raw response body. Failures
// come back classified: deadline → timeout, local cancellation →
// aborted, anything else at the network layer → network error, and
// non-200 statuses → server error.
func (t *HTTPTransport) Send(ctx context.Context, endpoint string, env *protocol.Envelope) (json.RawMessage, error) {
	op := protocol.OperationFor(env.Channel)

	payload, err := env.Marshal()
	if err != nil {
		return nil, pusherrors.Wrap(err, pusherrors.CodeIllegalParam).
			WithContext(&pusherrors.Context{Operation: op, Endpoint: endpoint})
	}

	form := url.Values{messageField: {string(payload)}}

	reqCtx, cancel := context.WithTimeout(ctx, t.pollTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, pusherrors.Wrap(err, pusherrors.CodeIllegalParam).
			WithContext(&pusherrors.Context{Operation: op, Endpoint: endpoint})
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Request-ID", uuid.New().String())

	t.logger.Debug("sending envelope",
		logging.String("operation", string(op)),
		logging.String("channel", env.Channel),
		logging.String("endpoint", endpoint))

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, t.classifySendError(ctx, reqCtx, err, op, endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, t.classifySendError(ctx, reqCtx, err, op, endpoint)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, pusherrors.Newf(pusherrors.CodeServerError, "http status %d", resp.StatusCode).
			WithContext(&pusherrors.Context{Operation: op, Endpoint: endpoint, Payload: body})
	}

	return body, nil
}

// classifySendError maps a transport failure into the taxonomy. The
// parent context distinguishes a caller abort from a request deadline.
func (t *HTTPTransport) classifySendError(parent, reqCtx context.Context, err error, op pusherrors.Operation, endpoint string) error {
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
		WithContext(&pusherrors.Context{Operation: op, Endpoint: endpoint})
}

// Close aborts idle connections held by the underlying client.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
