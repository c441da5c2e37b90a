package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kundliinsight/kundli/internal/ailink"
	"github.com/kundliinsight/kundli/internal/ailink/prompt"
	"github.com/kundliinsight/kundli/internal/config"
	"github.com/kundliinsight/kundli/internal/core/engine"
	apperrors "github.com/kundliinsight/kundli/internal/errors"
	"github.com/kundliinsight/kundli/internal/server/handlers"
)

type fixedGenerator struct{}

func (fixedGenerator) Ready() error { return nil }

func (fixedGenerator) Generate(ctx context.Context, req ailink.GenerateRequest) (*ailink.GenerateResponse, error) {
	return &ailink.GenerateResponse{Text: "<h2>Nature</h2><p>Calm</p>", Provider: "stub"}, nil
}

// newGuidanceServer allows one interpretation per client.
func newGuidanceServer(t *testing.T, trustProxy bool) *Server {
	t.Helper()
	reg, err := prompt.DefaultRegistry()
	require.NoError(t, err)
	orch := &engine.Orchestrator{
		Limiter:   engine.NewWindowLimiter(engine.RateLimit{RequestsPerWindow: 1, WindowDuration: time.Hour}),
		Prompts:   reg,
		Generator: fixedGenerator{},
	}
	cfg := &config.Config{Server: config.ServerConfig{TrustProxy: trustProxy}}
	return New(Options{Server: cfg.Server, API: handlers.NewAPI(cfg, nil, orch)})
}

const reading = `{"name":"Asha","birthDate":"1990-04-12","birthTime":"06:30","language":"en"}`

func interpretFrom(srv *Server, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/interpret", strings.NewReader(reading))
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("X-Forwarded-For", forwardedFor)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := New(Options{})

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)

	req = httptest.NewRequest(http.MethodDelete, "/version", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServerSetsSecurityHeaders(t *testing.T) {
	srv := New(Options{})
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServerIgnoresForwardedForByDefault(t *testing.T) {
	srv := newGuidanceServer(t, false)

	assert.Equal(t, http.StatusOK, interpretFrom(srv, "198.51.100.1").Code)
	// Same socket address, so the forged header does not buy a new window.
	assert.Equal(t, http.StatusTooManyRequests, interpretFrom(srv, "198.51.100.2").Code)
}

func TestServerTrustsProxyWhenConfigured(t *testing.T) {
	srv := newGuidanceServer(t, true)

	assert.Equal(t, http.StatusOK, interpretFrom(srv, "198.51.100.1").Code)
	assert.Equal(t, http.StatusOK, interpretFrom(srv, "198.51.100.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, interpretFrom(srv, "198.51.100.1").Code)
}

func TestServeAndShutdown(t *testing.T) {
	srv := New(Options{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health/live")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-done)
}

func statusOf(srv *Server, method, path string) int {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec.Code
}

func TestServerOptionalRoutes(t *testing.T) {
	plain := New(Options{})
	assert.Equal(t, http.StatusOK, statusOf(plain, http.MethodGet, "/health/live"))
	assert.Equal(t, http.StatusNotFound, statusOf(plain, http.MethodGet, "/debug/pprof/"))
	assert.Equal(t, http.StatusNotFound, statusOf(plain, http.MethodPost, "/admin/signal"))

	tuned := New(Options{
		Server:        config.ServerConfig{SignalToken: "s3cret"},
		DisableProbes: true,
		Pprof:         true,
	})
	assert.Equal(t, http.StatusNotFound, statusOf(tuned, http.MethodGet, "/health/live"))
	assert.Equal(t, http.StatusOK, statusOf(tuned, http.MethodGet, "/debug/pprof/"))
	// unauthenticated, but routed
	assert.NotEqual(t, http.StatusNotFound, statusOf(tuned, http.MethodPost, "/admin/signal"))
}
