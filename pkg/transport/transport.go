// Package transport carries envelopes to a push endpoint and returns the
// raw response payload. The protocol engine depends only on the Transport
// interface; the HTTP implementation speaks the server's form-encoded
// long-poll dialect. Middleware composes observability around any
// transport.
package transport

import (
	"context"
	"encoding/json"

	"github.com/mailpush/pushmail-sdk-go/pkg/protocol"
)

// Transport sends one envelope to an endpoint and yields the raw decoded
// response payload, or a classified transport failure (timeout, abort,
// network error). It performs no interpretation of the payload; that is
// the dispatcher's job.
type Transport interface {
	// Send posts the envelope to the endpoint and returns the raw
	// response payload. The returned error, when non-nil, is a
	// classified PushError.
	Send(ctx context.Context, endpoint string, env *protocol.Envelope) (json.RawMessage, error)

	// Close releases transport resources. In-flight sends are aborted.
	Close() error
}

// Middleware wraps a transport to add functionality such as logging,
// metrics, or tracing.
type Middleware interface {
	// Wrap wraps the given transport with middleware functionality
	Wrap(transport Transport) Transport
}

// MiddlewareFunc is an adapter to allow the use of ordinary functions as middleware
type MiddlewareFunc func(Transport) Transport

// Wrap implements the Middleware interface
func (f MiddlewareFunc) Wrap(t Transport) Transport {
	return f(t)
}

// ChainMiddleware chains multiple middleware together
func ChainMiddleware(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(transport Transport) Transport {
		// Apply middleware in reverse order so the first middleware is the outermost
		for i := len(middleware) - 1; i >= 0; i-- {
			transport = middleware[i].Wrap(transport)
		}
		return transport
	})
}
