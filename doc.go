// Package pushmail implements a client for push-mail notification
// services that speak a Bayeux-style long-poll dialect over HTTP.
//
// A session authenticates against the account's credential service,
// performs a connect handshake to obtain a clientId, signs in for push
// notifications, and then keeps exactly one long poll outstanding. New
// mail and lifecycle milestones are published as named events.
//
// # Basic usage
//
//	engine := pushmail.NewEngine(
//	    pushmail.NewHTTPTransport(),
//	    pushmail.NewURSAuthenticator(),
//	    pushmail.WithCredentials("user@163.com", "secret"),
//	)
//
//	engine.On(pushmail.EventReceiveMail, func(payload interface{}) {
//	    mail := payload.(protocol.MailNotification)
//	    fmt.Printf("new mail: %s\n", mail.Subject)
//	})
//
//	if err := engine.Start(context.Background()); err != nil {
//	    // Handle error
//	}
//	defer engine.Stop()
//
// Transient protocol errors recover automatically through a fixed
// 60-second retry policy; authentication failures are surfaced through
// the LoginFail event and never retried silently.
package pushmail
