package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kundliinsight/kundli/internal/observability"
)

// statusRecorder remembers the status and body size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int64
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.size += int64(n)
	return n, err
}

// routeLabel is the chi route pattern for r, or a coarse bucket when no route
// matched. Raw paths never become labels.
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	path := r.URL.Path
	switch {
	case path == "/health" || strings.HasPrefix(path, "/health/"):
		return "/health/*"
	case path == "/", path == "/version", path == "/metrics", path == "/sitemap.xml":
		return path
	case strings.HasPrefix(path, "/uploads/"):
		return "/uploads/*"
	case strings.HasPrefix(path, "/api/admin/"):
		return "/api/admin/*"
	case strings.HasPrefix(path, "/api/"):
		return "/api/*"
	}
	return "/unknown"
}

func statusClass(code int) string {
	if code >= 500 {
		return "server_error"
	}
	return "client_error"
}

// RequestMetrics emits request count, latency and sizes per route, plus an
// error counter for 4xx and 5xx responses, then logs the request.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sys := observability.TelemetrySystem
		if sys == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := routeLabel(r)
		status := strconv.Itoa(rec.status)
		reqSize := max(r.ContentLength, 0)

		tags := map[string]string{"method": r.Method, "endpoint": route, "status": status}
		sizeTags := map[string]string{"method": r.Method, "endpoint": route}

		_ = sys.Counter("http_requests_total", 1, tags)
		_ = sys.Histogram("http_request_duration_ms", elapsed, tags)
		_ = sys.Gauge("http_request_size_bytes", float64(reqSize), sizeTags)
		_ = sys.Gauge("http_response_size_bytes", float64(rec.size), sizeTags)

		if rec.status >= 400 {
			_ = sys.Counter("http_errors_total", 1, map[string]string{
				"method":     r.Method,
				"endpoint":   route,
				"status":     status,
				"error_type": statusClass(rec.status),
			})
		}

		if logger := observability.ServerLogger; logger != nil {
			logger.Info("HTTP request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", route),
				zap.Int("status", rec.status),
				zap.Duration("duration", elapsed),
				zap.Int64("request_size", reqSize),
				zap.Int64("response_size", rec.size),
				zap.String("requestID", GetRequestID(r.Context())),
			)
		}
	})
}
