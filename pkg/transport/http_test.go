package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pusherrors "github.com/mailpush/pushmail-sdk-go/pkg/errors"
	"github.com/mailpush/pushmail-sdk-go/pkg/protocol"
)

func TestSendPostsSingleElementArray(t *testing.T) {
	var gotMessage string
	var gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotMessage = r.FormValue("message")
		gotContentType = r.Header.Get("Content-Type")
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Write([]byte(`[{"channel":"/meta/connect","successful":true,"clientId":"c1"}]`))
	}))
	defer server.Close()

	tr := NewHTTPTransport()
	raw, err := tr.Send(context.Background(), server.URL, protocol.NewConnectEnvelope())
	require.NoError(t, err)

	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)

	var envelopes []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(gotMessage), &envelopes))
	require.Len(t, envelopes, 1)
	assert.Equal(t, "/meta/connect", envelopes[0]["channel"])

	var msgs []protocol.ServerMessage
	require.NoError(t, json.Unmarshal(raw, &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "c1", msgs[0].ClientID)
}

func TestSendClassifiesTimeout(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	tr := NewHTTPTransport(WithPollTimeout(50 * time.Millisecond))
	_, err := tr.Send(context.Background(), server.URL, protocol.NewPollEnvelope("c1"))

	require.Error(t, err)
	assert.Equal(t, pusherrors.CodeTimeout, pusherrors.CodeOf(err))
	assert.Equal(t, pusherrors.OpPoll, pusherrors.OperationOf(err))
}

func TestSendClassifiesAbort(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	tr := NewHTTPTransport()
	_, err := tr.Send(ctx, server.URL, protocol.NewPollEnvelope("c1"))

	require.Error(t, err)
	assert.Equal(t, pusherrors.CodeAborted, pusherrors.CodeOf(err))
}

func TestSendClassifiesNetworkError(t *testing.T) {
	// A closed server refuses the connection.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	tr := NewHTTPTransport()
	_, err := tr.Send(context.Background(), endpoint, protocol.NewConnectEnvelope())

	require.Error(t, err)
	assert.Equal(t, pusherrors.CodeNetworkError, pusherrors.CodeOf(err))
}

func TestSendClassifiesHTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	tr := NewHTTPTransport()
	_, err := tr.Send(context.Background(), server.URL, protocol.NewConnectEnvelope())

	require.Error(t, err)
	assert.Equal(t, pusherrors.CodeServerError, pusherrors.CodeOf(err))
}

func TestSendReturnsBodyVerbatim(t *testing.T) {
	// Malformed bodies are the dispatcher's problem, not the transport's.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`this is not json`))
	}))
	defer server.Close()

	tr := NewHTTPTransport()
	raw, err := tr.Send(context.Background(), server.URL, protocol.NewPollEnvelope("c1"))
	require.NoError(t, err)
	assert.Equal(t, "this is not json", string(raw))
}

func TestClose(t *testing.T) {
	tr := NewHTTPTransport()
	assert.NoError(t, tr.Close())
}
