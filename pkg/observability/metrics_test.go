package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetricsProviderRecords(t *testing.T) {
	p := NewPrometheusMetricsProvider(MetricsConfig{ServiceName: "pushmail-test"})

	p.RecordRequest("poll", "success", 250*time.Millisecond)
	p.RecordRequest("poll", "timeout", 120*time.Second)
	p.RecordRequest("connect", "success", 10*time.Millisecond)
	p.RecordMailReceived()
	p.RecordMailReceived()
	p.RecordRetryScheduled("unknown clientid")
	p.RecordConnectionState(1)

	families, err := p.Registry().Gather()
	require.NoError(t, err)

	byName := make(map[string]bool, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = true
	}

	for _, name := range []string{
		"pushmail_requests_total",
		"pushmail_request_duration_seconds",
		"pushmail_mails_received_total",
		"pushmail_retries_scheduled_total",
		"pushmail_connection_state",
	} {
		assert.True(t, byName[name], "metric %s not registered", name)
	}
}

func TestPrometheusMetricsProviderIndependentRegistries(t *testing.T) {
	a := NewPrometheusMetricsProvider(MetricsConfig{})
	b := NewPrometheusMetricsProvider(MetricsConfig{})

	// Both construct without a duplicate-registration panic.
	a.RecordMailReceived()
	b.RecordMailReceived()
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestNopMetricsProvider(t *testing.T) {
	var p MetricsProvider = NopMetricsProvider{}
	p.RecordRequest("poll", "success", time.Second)
	p.RecordMailReceived()
	p.RecordRetryScheduled("server error")
	p.RecordConnectionState(0)
}
