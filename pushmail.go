// Package pushmail provides a Go client for webmail push notifications
// over Bayeux-style HTTP long polling.
package pushmail

import (
	"github.com/mailpush/pushmail-sdk-go/pkg/auth"
	"github.com/mailpush/pushmail-sdk-go/pkg/client"
	"github.com/mailpush/pushmail-sdk-go/pkg/routing"
	"github.com/mailpush/pushmail-sdk-go/pkg/transport"
)

// Version represents the current version of the SDK
const Version = "1.0.0"

// These exports provide direct access to the core SDK components
var (
	// NewEngine creates a protocol engine
	NewEngine = client.NewEngine

	// NewHTTPTransport creates the long-poll HTTP transport
	NewHTTPTransport = transport.NewHTTPTransport

	// NewURSAuthenticator creates the credential-service authenticator
	NewURSAuthenticator = auth.NewURSAuthenticator

	// DefaultRoutingTable returns the built-in domain routing table
	DefaultRoutingTable = routing.DefaultTable

	// LoadRoutingTable reads a routing table from a YAML file
	LoadRoutingTable = routing.Load
)

// Engine options
var (
	WithCredentials  = client.WithCredentials
	WithToken        = client.WithToken
	WithProduct      = client.WithProduct
	WithRoutingTable = client.WithRoutingTable
	WithPushEndpoint = client.WithPushEndpoint
	WithBus          = client.WithBus
	WithLogger       = client.WithLogger
	WithMetrics      = client.WithMetrics
	WithRetryPolicy  = client.WithRetryPolicy
)

// Event names emitted by the engine
const (
	EventInitDone       = client.EventInitDone
	EventLoginFail      = client.EventLoginFail
	EventConnectSuccess = client.EventConnectSuccess
	EventSigninSuccess  = client.EventSigninSuccess
	EventPollingSuccess = client.EventPollingSuccess
	EventReceiveMail    = client.EventReceiveMail
	EventError          = client.EventError
)
