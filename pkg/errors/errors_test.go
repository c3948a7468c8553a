package errors

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesRegistryMetadata(t *testing.T) {
	err := New(CodeUnknownClientID)

	assert.Equal(t, CodeUnknownClientID, err.Code())
	assert.Equal(t, "connection has been lost", err.Message())
	assert.Equal(t, CategoryProtocol, err.Category())
	assert.Equal(t, SeverityWarning, err.Severity())
	require.NotNil(t, err.Context())
	assert.False(t, err.Context().Timestamp.IsZero())
}

func TestErrorString(t *testing.T) {
	err := New(CodeTimeout)
	assert.Equal(t, "timeout", err.Error())

	detailed := err.WithDetail("poll exceeded 120s")
	assert.Equal(t, "timeout: poll exceeded 120s", detailed.Error())
	// original error is unchanged
	assert.Equal(t, "timeout", err.Error())
}

func TestWithContext(t *testing.T) {
	err := New(CodeServerError).WithContext(&Context{
		Operation: OpPoll,
		Payload:   json.RawMessage(`{"bad":"payload"}`),
	})

	require.NotNil(t, err.Context())
	assert.Equal(t, OpPoll, err.Context().Operation)
	assert.False(t, err.Context().Timestamp.IsZero())
	assert.Equal(t, OpPoll, OperationOf(err))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeNetworkError)

	assert.Equal(t, CodeNetworkError, err.Code())
	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFromServerString(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Code
	}{
		{"mixed case clientid", "UNKNOWN CLIENTID", CodeUnknownClientID},
		{"exceed max conn", "exceed max conn", CodeExceedMaxConn},
		{"cannot cmd", "Cannot Cmd", CodeCannotCmd},
		{"auth failed", "auth failed", CodeAuthFailed},
		{"auth-failed alias", "AUTH-FAILED", CodeAuthFailed},
		{"illegal param", "illegal param", CodeIllegalParam},
		{"unknown string collapses", "unknown channel", CodeServerError},
		{"empty string collapses", "", CodeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromServerString(tt.raw))
		})
	}
}

func TestServerErrorRetainsRawString(t *testing.T) {
	err := ServerError("something nobody has seen before")
	assert.Equal(t, CodeServerError, err.Code())
	assert.Contains(t, err.Details(), "something nobody has seen before")

	// classified strings do not get the raw detail duplicated
	classified := ServerError("unknown clientid")
	assert.Equal(t, CodeUnknownClientID, classified.Code())
	assert.Empty(t, classified.Details())
}

func TestFromURSCode(t *testing.T) {
	tests := []struct {
		retcode string
		want    Code
	}{
		{"412", CodeExceedRateLimit},
		{"420", CodeAccountNotFound},
		{"422", CodeAccountFrozen},
		{"460", CodePasswordMismatch},
		{"401", CodeIllegalParam},
		{"500", CodeServerError},
		{"", CodeNetworkError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FromURSCode(tt.retcode).Code(), "retcode %q", tt.retcode)
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeAborted, CodeOf(New(CodeAborted)))
	assert.Equal(t, CodeServerError, CodeOf(errors.New("plain error")))
}

func TestIs(t *testing.T) {
	err := New(CodeAuthFailed)
	assert.True(t, Is(err, CodeAuthFailed))
	assert.False(t, Is(err, CodeTimeout))
	assert.False(t, Is(errors.New("plain"), CodeServerError))
}

func TestToJSON(t *testing.T) {
	err := New(CodeExceedMaxConn).
		WithDetail("during reconnect").
		WithContext(&Context{Operation: OpConnect, Timestamp: time.Now()})

	m := err.ToJSON()
	assert.Equal(t, "exceed max conn", m["code"])
	assert.Equal(t, "during reconnect", m["details"])

	data, jsonErr := json.Marshal(err)
	require.NoError(t, jsonErr)
	assert.Contains(t, string(data), "exceed max conn")
}

func TestRegistryCoversTaxonomy(t *testing.T) {
	codes := []Code{
		CodeIllegalParam, CodeUnknownClientID, CodeExceedMaxConn,
		CodeCannotCmd, CodeAuthFailed, CodeExceedRateLimit,
		CodeAccountNotFound, CodeAccountFrozen, CodePasswordMismatch,
		CodeAborted, CodeNetworkError, CodeServerError, CodeTimeout,
	}
	for _, code := range codes {
		info, ok := GetCodeInfo(code)
		require.True(t, ok, "missing registry entry for %q", code)
		assert.NotEmpty(t, info.Name)
		assert.NotEmpty(t, info.Message)
	}
	assert.Len(t, ListCodes(), len(codes))
}
