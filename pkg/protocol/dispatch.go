package protocol

import (
	"encoding/json"

	pusherrors "github.com/mailpush/pushmail-sdk-go/pkg/errors"
)

// Result is the dispatcher's classification of one response payload.
// Exactly one of the terminal outcomes applies per payload: a connect
// ack (ClientID set), a classified error (returned separately), or a
// poll success carrying zero or more extracted notifications.
type Result struct {
	// ClientID is set when the payload acknowledged the initial
	// connect. Dispatch stops at this entry.
	ClientID string

	// Mail holds the notifications extracted from pushmail events.
	Mail []MailNotification

	// SigninAck reports a login acknowledgment seen on the poll channel.
	SigninAck bool

	// SubscribeAck reports a /service/push acknowledgment.
	SubscribeAck bool

	// Idle reports a long-poll round that ended without news.
	Idle bool
}

// Dispatch interprets a raw response payload for the given operation.
// It validates structure, classifies each entry by channel in order,
// and stops at the first terminal entry. It never mutates session state
// and never panics on malformed input; every failure comes back as a
// classified error carrying the operation and the offending payload.
func Dispatch(raw json.RawMessage, op pusherrors.Operation, clientID string) (*Result, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, pusherrors.New(pusherrors.CodeServerError).
			WithDetail("response payload is not an array").
			WithContext(&pusherrors.Context{Operation: op, Payload: raw})
	}

	result := &Result{}

	for _, element := range elements {
		var msg ServerMessage
		if len(element) == 0 || string(element) == "null" || json.Unmarshal(element, &msg) != nil {
			return nil, pusherrors.New(pusherrors.CodeServerError).
				WithDetail("malformed response element").
				WithContext(&pusherrors.Context{Operation: op, Payload: element})
		}

		if !msg.Successful || msg.Channel == "" {
			if msg.Error == "" {
				return nil, pusherrors.New(pusherrors.CodeServerError).
					WithDetail("unsuccessful message without error string").
					WithContext(&pusherrors.Context{Operation: op, Payload: element})
			}
			return nil, pusherrors.ServerError(msg.Error).
				WithContext(&pusherrors.Context{Operation: op, Payload: element})
		}

		switch {
		case msg.Channel == ChannelConnect:
			if msg.ClientID == "" {
				return nil, pusherrors.New(pusherrors.CodeServerError).
					WithDetail("connect ack without clientId").
					WithContext(&pusherrors.Context{Operation: op, Payload: element})
			}
			result.ClientID = msg.ClientID
			return result, nil

		case msg.Channel == ChannelService:
			// Subscription acknowledged, nothing to extract.
			result.SubscribeAck = true

		case isPollChannel(msg.Channel, clientID):
			if msg.Data == nil {
				// Long-poll round ended without news.
				result.Idle = true
				continue
			}
			switch {
			case isSigninAckEvent(msg.Data.Event):
				result.SigninAck = true
			case msg.Data.Event == EventPushmail && msg.Data.Body != nil:
				result.Mail = append(result.Mail, newMailNotification(msg.Data))
			default:
				// Unknown event names are not protocol errors.
			}

		default:
			return nil, pusherrors.New(pusherrors.CodeServerError).
				WithDetail("unrecognized channel " + msg.Channel).
				WithContext(&pusherrors.Context{Operation: op, Payload: element})
		}
	}

	return result, nil
}
