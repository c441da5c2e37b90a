// Package metrics records application metrics through the telemetry system
// installed by observability.InitMetrics. Every function is a no-op while
// metrics are disabled.
package metrics

import (
	"time"

	"github.com/kundliinsight/kundli/internal/observability"
)

type labels = map[string]string

func counter(name string, tags labels) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Counter(name, 1, tags)
	}
}

func gauge(name string, value float64, tags labels) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Gauge(name, value, tags)
	}
}

func histogram(name string, d time.Duration, tags labels) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Histogram(name, d, tags)
	}
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
