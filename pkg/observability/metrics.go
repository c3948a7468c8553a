// Package observability provides metrics and tracing for the pushmail SDK.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the metrics provider
type MetricsConfig struct {
	// Service identification
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Prometheus configuration
	MetricsPath string // HTTP path for metrics endpoint (default: /metrics)
	MetricsPort int    // Port for metrics server (default: 9090)

	// Metric options
	Namespace        string    // Prometheus namespace (default: pushmail)
	HistogramBuckets []float64 // Custom histogram buckets for latency

	// Labels to add to all metrics
	ConstLabels prometheus.Labels
}

// MetricsProvider records SDK-level metrics.
type MetricsProvider interface {
	// RecordRequest records one protocol request round-trip.
	RecordRequest(operation, status string, duration time.Duration)

	// RecordMailReceived counts one delivered mail notification.
	RecordMailReceived()

	// RecordRetryScheduled counts a retry scheduled for an error code.
	RecordRetryScheduled(code string)

	// RecordConnectionState sets the session connection gauge
	// (0 disconnected, 1 polling).
	RecordConnectionState(state float64)

	// Management
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// PrometheusMetricsProvider implements MetricsProvider using Prometheus
type PrometheusMetricsProvider struct {
	config MetricsConfig
	server *http.Server

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	mailTotal       prometheus.Counter
	retryTotal      *prometheus.CounterVec
	connectionState prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.Mutex
	started  bool
}

// NewPrometheusMetricsProvider creates a metrics provider with its own
// registry so multiple sessions in one process do not collide.
func NewPrometheusMetricsProvider(config MetricsConfig) *PrometheusMetricsProvider {
	if config.Namespace == "" {
		config.Namespace = "pushmail"
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.MetricsPort == 0 {
		config.MetricsPort = 9090
	}
	if len(config.HistogramBuckets) == 0 {
		// Long-poll rounds legitimately run to 120s.
		config.HistogramBuckets = []float64{.05, .1, .5, 1, 5, 15, 30, 60, 90, 120, 150}
	}

	registry := prometheus.NewRegistry()

	p := &PrometheusMetricsProvider{
		config:   config,
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "request_duration_seconds",
			Help:        "Duration of push protocol requests",
			Buckets:     config.HistogramBuckets,
			ConstLabels: config.ConstLabels,
		}, []string{"operation"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "requests_total",
			Help:        "Total push protocol requests",
			ConstLabels: config.ConstLabels,
		}, []string{"operation", "status"}),
		mailTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "mails_received_total",
			Help:        "Total mail notifications delivered",
			ConstLabels: config.ConstLabels,
		}),
		retryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "retries_scheduled_total",
			Help:        "Total recovery retries scheduled, by error code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),
		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "connection_state",
			Help:        "Session connection state (0 disconnected, 1 polling)",
			ConstLabels: config.ConstLabels,
		}),
	}

	registry.MustRegister(
		p.requestDuration,
		p.requestTotal,
		p.mailTotal,
		p.retryTotal,
		p.connectionState,
	)

	return p
}

// RecordRequest records one protocol request round-trip
func (p *PrometheusMetricsProvider) RecordRequest(operation, status string, duration time.Duration) {
	p.requestTotal.WithLabelValues(operation, status).Inc()
	p.requestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordMailReceived counts one delivered mail notification
func (p *PrometheusMetricsProvider) RecordMailReceived() {
	p.mailTotal.Inc()
}

// RecordRetryScheduled counts a retry scheduled for an error code
func (p *PrometheusMetricsProvider) RecordRetryScheduled(code string) {
	p.retryTotal.WithLabelValues(code).Inc()
}

// RecordConnectionState sets the session connection gauge
func (p *PrometheusMetricsProvider) RecordConnectionState(state float64) {
	p.connectionState.Set(state)
}

// Start serves the metrics endpoint
func (p *PrometheusMetricsProvider) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(p.config.MetricsPath, promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))

	p.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", p.config.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	p.started = true
	return nil
}

// Shutdown stops the metrics endpoint
func (p *PrometheusMetricsProvider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.server == nil {
		return nil
	}
	p.started = false
	return p.server.Shutdown(ctx)
}

// Registry exposes the provider's registry for tests and embedding.
func (p *PrometheusMetricsProvider) Registry() *prometheus.Registry {
	return p.registry
}

// NopMetricsProvider discards all metrics.
type NopMetricsProvider struct{}

func (NopMetricsProvider) RecordRequest(string, string, time.Duration) {}
func (NopMetricsProvider) RecordMailReceived()                        {}
func (NopMetricsProvider) RecordRetryScheduled(string)                {}
func (NopMetricsProvider) RecordConnectionState(float64)              {}
func (NopMetricsProvider) Start(context.Context) error                { return nil }
func (NopMetricsProvider) Shutdown(context.Context) error             { return nil }
