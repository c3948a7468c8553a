package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnectEnvelope(t *testing.T) {
	before := time.Now().UnixMilli()
	env := NewConnectEnvelope()
	after := time.Now().UnixMilli()

	assert.Equal(t, ChannelConnect, env.Channel)
	assert.Empty(t, env.ClientID)
	assert.Nil(t, env.Data)
	assert.GreaterOrEqual(t, env.Timestamp, before)
	assert.LessOrEqual(t, env.Timestamp, after)
}

func TestNewSigninEnvelope(t *testing.T) {
	env := NewSigninEnvelope("client-1", "user@163.com", "cookie", "webmail")

	assert.Equal(t, ChannelService, env.Channel)
	assert.Equal(t, "client-1", env.ClientID)
	require.NotNil(t, env.Data)
	assert.Equal(t, "user@163.com", env.Data.UID)
	assert.Equal(t, "cookie", env.Data.Auth)
	assert.Equal(t, "webmail", env.Data.Product)
	assert.Equal(t, EventLogin, env.Data.Event)
}

func TestNewPollEnvelope(t *testing.T) {
	env := NewPollEnvelope("client-1")

	assert.Equal(t, ChannelReconnect, env.Channel)
	assert.Equal(t, "client-1", env.ClientID)
	assert.Nil(t, env.Data)
}

func TestEnvelopeMarshalIsSingleElementArray(t *testing.T) {
	env := NewPollEnvelope("client-1")

	data, err := env.Marshal()
	require.NoError(t, err)

	var arr []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &arr))
	require.Len(t, arr, 1)
	assert.Equal(t, ChannelReconnect, arr[0]["channel"])
	assert.Equal(t, "client-1", arr[0]["clientId"])
}

func TestConnectEnvelopeOmitsClientID(t *testing.T) {
	data, err := NewConnectEnvelope().Marshal()
	require.NoError(t, err)

	var arr []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &arr))
	require.Len(t, arr, 1)
	_, hasClientID := arr[0]["clientId"]
	assert.False(t, hasClientID)
	_, hasData := arr[0]["data"]
	assert.False(t, hasData)
}

func TestPollChannel(t *testing.T) {
	assert.Equal(t, "/meta/connections/abc", PollChannel("abc"))
}

func TestLooseStringDecoding(t *testing.T) {
	var body MailBody
	require.NoError(t, json.Unmarshal([]byte(`{"Mid":"1a","count":7,"MSID":null}`), &body))

	assert.Equal(t, looseString("1a"), body.MailID)
	assert.Equal(t, looseString("7"), body.Count)
	assert.Equal(t, looseString(""), body.ServerID)
}
