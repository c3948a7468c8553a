package transport

import (
	"context"
	"encoding/json"
	"time"

	pusherrors "github.com/mailpush/pushmail-sdk-go/pkg/errors"
	"github.com/mailpush/pushmail-sdk-go/pkg/logging"
	"github.com/mailpush/pushmail-sdk-go/pkg/observability"
	"github.com/mailpush/pushmail-sdk-go/pkg/protocol"
)

// ObservabilityMiddleware adds logging, metrics, and tracing around a
// transport. Any of the three providers may be nil; the middleware only
// exercises what it is given.
type ObservabilityMiddleware struct {
	logger  logging.Logger
	metrics observability.MetricsProvider
	tracing *observability.TracingProvider
}

// NewObservabilityMiddleware creates a new observability middleware
func NewObservabilityMiddleware(logger logging.Logger, metrics observability.MetricsProvider, tracing *observability.TracingProvider) Middleware {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ObservabilityMiddleware{
		logger:  logger.WithFields(logging.String("component", "transport")),
		metrics: metrics,
		tracing: tracing,
	}
}

// Wrap implements the Middleware interface
func (om *ObservabilityMiddleware) Wrap(transport Transport) Transport {
	return &observabilityTransport{
		next:       transport,
		middleware: om,
	}
}

// observabilityTransport wraps a transport with observability features
type observabilityTransport struct {
	next       Transport
	middleware *ObservabilityMiddleware
}

// Send wraps the underlying Send with logging, metrics, and a span.
func (ot *observabilityTransport) Send(ctx context.Context, endpoint string, env *protocol.Envelope) (json.RawMessage, error) {
	om := ot.middleware
	op := string(protocol.OperationFor(env.Channel))

	if om.tracing != nil {
		spanCtx, span := om.tracing.StartOperationSpan(ctx, op, endpoint)
		ctx = spanCtx
		defer span.End()
	}

	start := time.Now()
	raw, err := ot.next.Send(ctx, endpoint, env)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = string(pusherrors.CodeOf(err))
		om.logger.WithError(err).Warn("request failed",
			logging.String("operation", op),
			logging.Duration("duration", duration))
		if om.tracing != nil {
			om.tracing.RecordError(ctx, err)
		}
	} else {
		om.logger.Debug("request completed",
			logging.String("operation", op),
			logging.Duration("duration", duration))
	}

	if om.metrics != nil {
		om.metrics.RecordRequest(op, status, duration)
	}

	return raw, err
}

// Close delegates to the wrapped transport
func (ot *observabilityTransport) Close() error {
	return ot.next.Close()
}
