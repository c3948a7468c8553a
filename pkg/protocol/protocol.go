// Package protocol defines the wire types of the CometD-style push
// protocol (envelopes, server messages, mail notifications) and the
// channel dispatcher that classifies server responses.
package protocol

import (
	"encoding/json"
	"strings"
	"time"

	pusherrors "github.com/mailpush/pushmail-sdk-go/pkg/errors"
)

// Channel names used by the push protocol. Only this subset of the
// Bayeux channel space is supported.
const (
	// ChannelConnect is the initial handshake channel; its ack carries
	// the server-assigned clientId.
	ChannelConnect = "/meta/connect"

	// ChannelService is the push-subscription (signin) channel.
	ChannelService = "/service/push"

	// ChannelReconnect is the long-poll channel.
	ChannelReconnect = "/meta/reconnect"

	// connectionsPrefix forms the clientId-qualified alias of the
	// long-poll channel.
	connectionsPrefix = "/meta/connections/"
)

// Signin event names the server acknowledges a login with. They arrive
// as data events on the poll channel.
const (
	EventLogin       = "login"
	EventPushLogin   = "push_login"
	EventGlobalLogin = "global_login"
	EventPushmail    = "pushmail"
)

// PollChannel returns the clientId-qualified alias of the long-poll
// channel.
func PollChannel(clientID string) string {
	return connectionsPrefix + clientID
}

// isPollChannel reports whether a channel is the long-poll channel,
// bare or qualified with the session's clientId.
func isPollChannel(channel, clientID string) bool {
	if channel == ChannelReconnect {
		return true
	}
	return clientID != "" && channel == connectionsPrefix+clientID
}

// isSigninAckEvent reports whether a poll data event acknowledges the
// signin request.
func isSigninAckEvent(event string) bool {
	return event == EventLogin || event == EventPushLogin || event == EventGlobalLogin
}

// OperationFor maps a channel to the operation that sends on it, for
// error classification.
func OperationFor(channel string) pusherrors.Operation {
	switch channel {
	case ChannelConnect:
		return pusherrors.OpConnect
	case ChannelService:
		return pusherrors.OpSignin
	default:
		return pusherrors.OpPoll
	}
}

// Envelope is a single outbound protocol message. The wire payload is a
// JSON array containing exactly one envelope.
type Envelope struct {
	Channel   string      `json:"channel"`
	Timestamp int64       `json:"timestamp"`
	ClientID  string      `json:"clientId,omitempty"`
	Data      *SigninData `json:"data,omitempty"`
}

// SigninData is the payload of the signin envelope.
type SigninData struct {
	UID     string `json:"uid"`
	Auth    string `json:"auth"`
	Product string `json:"product"`
	Event   string `json:"event"`
}

// NewConnectEnvelope builds the initial handshake envelope. It is the
// only envelope sent without a clientId.
func NewConnectEnvelope() *Envelope {
	return &Envelope{
		Channel:   ChannelConnect,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewSigninEnvelope builds the signin envelope subscribing the session
// for mail events.
func NewSigninEnvelope(clientID, uid, auth, product string) *Envelope {
	return &Envelope{
		Channel:   ChannelService,
		Timestamp: time.Now().UnixMilli(),
		ClientID:  clientID,
		Data: &SigninData{
			UID:     uid,
			Auth:    auth,
			Product: product,
			Event:   EventLogin,
		},
	}
}

// NewPollEnvelope builds a long-poll envelope.
func NewPollEnvelope(clientID string) *Envelope {
	return &Envelope{
		Channel:   ChannelReconnect,
		Timestamp: time.Now().UnixMilli(),
		ClientID:  clientID,
	}
}

// Marshal encodes the envelope as the single-element JSON array the
// server expects in the message form field.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal([]*Envelope{e})
}

// ServerMessage is one inbound protocol message. A response payload is
// an ordered sequence of these.
type ServerMessage struct {
	Channel    string     `json:"channel"`
	Successful bool       `json:"successful"`
	ClientID   string     `json:"clientId,omitempty"`
	Data       *EventData `json:"data,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// EventData is the data payload of a poll-channel message.
type EventData struct {
	Event string    `json:"event"`
	UID   string    `json:"uid"`
	From  string    `json:"from"`
	Body  *MailBody `json:"body,omitempty"`
}

// MailBody is the nested body of a pushmail event. The server is loose
// about numeric versus string encoding for several fields, so the
// tolerant looseString type accepts either.
type MailBody struct {
	FolderID json.Number `json:"folderid"`
	MailID   looseString `json:"Mid"`
	Subject  string      `json:"Subject"`
	Content  string      `json:"Content"`
	Count    looseString `json:"count"`
	SentDate json.Number `json:"SentDate"`
	ServerID looseString `json:"MSID"`
}

// looseString decodes from either a JSON string or a JSON number,
// keeping the literal text of numbers.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	*s = looseString(data)
	return nil
}

// MailNotification is the immutable value describing one newly arrived
// mail, derived from a pushmail event and handed to the event bus.
type MailNotification struct {
	To           string `json:"to"`
	From         string `json:"from"`
	FolderID     int64  `json:"folderId"`
	MailID       string `json:"mailId"`
	Subject      string `json:"subject"`
	Content      string `json:"content"`
	Count        string `json:"count"`
	SendDate     int64  `json:"sendDate"`
	MailServerID string `json:"mailServerId"`
	ID           string `json:"id"`
}

// newMailNotification derives a MailNotification from a pushmail event.
// String fields are trimmed of surrounding whitespace and the synthetic
// ID is the mail-server identifier joined to the mail identifier.
func newMailNotification(data *EventData) MailNotification {
	body := data.Body

	folderID, _ := body.FolderID.Int64()
	sendDate, _ := body.SentDate.Int64()

	mailID := strings.TrimSpace(string(body.MailID))
	serverID := strings.TrimSpace(string(body.ServerID))

	return MailNotification{
		To:           strings.TrimSpace(data.UID),
		From:         strings.TrimSpace(data.From),
		FolderID:     folderID,
		MailID:       mailID,
		Subject:      strings.TrimSpace(body.Subject),
		Content:      strings.TrimSpace(body.Content),
		Count:        strings.TrimSpace(string(body.Count)),
		SendDate:     sendDate,
		MailServerID: serverID,
		ID:           serverID + ":" + mailID,
	}
}
