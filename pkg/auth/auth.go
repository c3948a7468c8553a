// Package auth exchanges mailbox credentials for a session token. The
// protocol engine performs this exchange before its first connect and
// again whenever the server rejects a cached token.
package auth

import (
	"context"
)

// Authenticator exchanges credentials for a session token. Implementations
// must be safe for concurrent use and must not retain session state
// between calls.
type Authenticator interface {
	// Login authenticates username with secret and returns a session
	// token. A non-nil error is a classified PushError; an empty token
	// with a nil error means the account authenticated but the server
	// issued no session cookie.
	Login(ctx context.Context, username, secret string) (string, error)
}
