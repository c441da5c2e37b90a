package server

import (
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/kundliinsight/kundli/internal/errors"
	"github.com/kundliinsight/kundli/internal/observability"
)

var metricsProxyClient = &http.Client{Timeout: 5 * time.Second}

// hopHeaders are not copied from the exporter's response.
var hopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

const prometheusContentType = "text/plain; version=0.0.4"

// MetricsHandler serves the exporter's output on the main listener so a
// single port can be scraped.
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	target := observability.MetricsURL()
	if target == "" {
		HandleError(w, r, apperrors.NewUnavailableError("Metrics are disabled"))
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		HandleError(w, r, apperrors.WrapInternal(r.Context(), err, "Unable to build metrics request"))
		return
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := metricsProxyClient.Do(req)
	if err != nil {
		HandleError(w, r, apperrors.NewExternalServiceError("Prometheus exporter unavailable"))
		if observability.ServerLogger != nil {
			observability.ServerLogger.Warn("Metrics scrape failed", zap.String("url", target), zap.Error(err))
		}
		return
	}
	defer resp.Body.Close() // nolint:errcheck

	for key, values := range resp.Header {
		if hopHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", prometheusContentType)
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to write metrics response", zap.Error(err))
	}
}
