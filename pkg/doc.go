// Package pkg holds the components of the push-mail SDK.
//
// The SDK keeps a long-poll connection to a webmail push server and
// turns new-mail notifications into events. The sub-packages split the
// work along protocol boundaries:
//
//   - errors: the classified error taxonomy shared by every layer
//   - logging: structured logging used throughout the SDK
//   - routing: email domain to endpoint resolution
//   - protocol: envelopes, server messages, and the response dispatcher
//   - transport: the form-encoded long-poll HTTP transport
//   - auth: the credential-service login exchange
//   - events: the bus the engine publishes lifecycle events through
//   - client: the protocol engine and its retry policy
//   - observability: Prometheus metrics and OpenTelemetry tracing
//
// Most applications only need the root package, which re-exports the
// constructors, and the client package for engine options.
package pkg
