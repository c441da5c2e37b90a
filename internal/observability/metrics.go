package observability

import (
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

// DefaultMetricsPort is assumed when the exporter's bound port cannot be read.
const DefaultMetricsPort = 9090

var (
	// TelemetrySystem receives every counter, gauge and histogram. Nil means
	// metrics are disabled and recording is a no-op.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves the collected metrics in Prometheus text format.
	PrometheusExporter *exporters.PrometheusExporter

	metricsMu   sync.RWMutex
	metricsPort int
)

// MetricsOptions configures InitMetrics.
type MetricsOptions struct {
	// Namespace prefixes every metric name, e.g. "kundli_http_requests_total".
	Namespace string
	// Port for the exporter's own listener; 0 picks a free port.
	Port int
}

// InitMetrics starts the Prometheus exporter and installs a telemetry system
// that emits to it.
func InitMetrics(opts MetricsOptions) error {
	if opts.Namespace == "" {
		return fmt.Errorf("metrics namespace is required")
	}
	port := max(opts.Port, 0)

	exporter := exporters.NewPrometheusExporter(opts.Namespace, fmt.Sprintf(":%d", port))
	if err := exporter.Start(); err != nil {
		return fmt.Errorf("start prometheus exporter: %w", err)
	}

	// errors_total, panics_total and errors_by_endpoint register on first use.
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: exporter})
	if err != nil {
		_ = exporter.Stop()
		return fmt.Errorf("create telemetry system: %w", err)
	}

	bound, err := portOf(exporter.GetAddr())
	if err != nil || bound == 0 {
		bound = port
	}
	if bound == 0 {
		bound = DefaultMetricsPort
	}

	metricsMu.Lock()
	metricsPort = bound
	metricsMu.Unlock()
	PrometheusExporter = exporter
	TelemetrySystem = sys
	return nil
}

// StopMetrics shuts the exporter down and disables recording.
func StopMetrics() error {
	exporter := PrometheusExporter
	PrometheusExporter = nil
	TelemetrySystem = nil
	metricsMu.Lock()
	metricsPort = 0
	metricsMu.Unlock()
	if exporter == nil {
		return nil
	}
	return exporter.Stop()
}

// MetricsURL is the loopback address of the exporter's scrape endpoint, or ""
// when metrics are not running.
func MetricsURL() string {
	if PrometheusExporter == nil {
		return ""
	}
	metricsMu.RLock()
	port := metricsPort
	metricsMu.RUnlock()
	if port == 0 {
		port = DefaultMetricsPort
	}
	return fmt.Sprintf("http://127.0.0.1:%d/metrics", port)
}

func portOf(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}
