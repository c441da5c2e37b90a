package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kundliinsight/kundli/internal/ailink"
	"github.com/kundliinsight/kundli/internal/ailink/prompt"
	"github.com/kundliinsight/kundli/internal/config"
	"github.com/kundliinsight/kundli/internal/core/engine"
	"github.com/kundliinsight/kundli/internal/observability"
	"github.com/kundliinsight/kundli/internal/server"
	"github.com/kundliinsight/kundli/internal/server/handlers"
)

// sandboxed reports environments that refuse loopback sockets.
func sandboxed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not permitted")
}

func initLoggers(t *testing.T) {
	t.Helper()
	observability.InitCLILogger("test", false)
	require.NoError(t, observability.InitServerLogger(observability.ServerLoggerOptions{Service: "test", Level: "info"}))
}

func startMetrics(t *testing.T) {
	t.Helper()
	if err := observability.InitMetrics(observability.MetricsOptions{Namespace: "test"}); err != nil {
		if sandboxed(err) {
			t.Skipf("metrics exporter cannot bind here: %v", err)
		}
		require.NoError(t, err)
	}
	t.Cleanup(func() { _ = observability.StopMetrics() })
}

type cannedGenerator struct{}

func (cannedGenerator) Ready() error { return nil }

func (cannedGenerator) Generate(context.Context, ailink.GenerateRequest) (*ailink.GenerateResponse, error) {
	return &ailink.GenerateResponse{Text: "```html\n<h2>Career</h2><p>Steady growth</p>\n```", Provider: "stub", Model: "stub"}, nil
}

// site is a running kundli HTTP stack behind a proxy-trusting router where
// each X-Forwarded-For address gets perClient readings per hour.
type site struct {
	url    string
	client *http.Client
}

func startSite(t *testing.T, perClient int) *site {
	t.Helper()
	prompts, err := prompt.DefaultRegistry()
	require.NoError(t, err)

	cfg := &config.Config{Server: config.ServerConfig{TrustProxy: true}}
	orch := &engine.Orchestrator{
		Limiter:   engine.NewWindowLimiter(engine.RateLimit{RequestsPerWindow: perClient, WindowDuration: time.Hour}),
		Prompts:   prompts,
		Generator: cannedGenerator{},
	}
	srv := server.New(server.Options{
		Server: cfg.Server,
		API:    handlers.NewAPI(cfg, nil, orch),
		Health: handlers.NewHealthManager("test"),
	})

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if sandboxed(err) {
		t.Skipf("cannot listen on loopback: %v", err)
	}
	require.NoError(t, err)

	ts := &httptest.Server{Listener: ln, Config: &http.Server{Handler: srv.Handler()}}
	ts.Start()
	t.Cleanup(ts.Close)
	return &site{url: ts.URL, client: ts.Client()}
}

func (s *site) interpret(from string) (int, error) {
	req, err := http.NewRequest(http.MethodPost, s.url+"/api/interpret",
		strings.NewReader(`{"name":"Asha","birthDate":"1990-05-01","birthTime":"14:30","language":"en"}`))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", from)
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, resp.Body.Close()
}

func (s *site) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := s.client.Get(s.url + path)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, string(body)
}

func TestConcurrentClientsAreLimitedIndependently(t *testing.T) {
	initLoggers(t)
	startMetrics(t)
	s := startSite(t, 2)

	const clients, attempts = 10, 3
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		counts = map[int]int{}
	)
	began := time.Now()
	for i := 1; i <= clients; i++ {
		wg.Add(1)
		go func(ip string) {
			defer wg.Done()
			for j := 0; j < attempts; j++ {
				if status, err := s.interpret(ip); err == nil {
					mu.Lock()
					counts[status]++
					mu.Unlock()
				}
			}
		}(fmt.Sprintf("198.51.100.%d", i))
	}
	wg.Wait()

	assert.Equal(t, clients*2, counts[http.StatusOK])
	assert.Equal(t, clients, counts[http.StatusTooManyRequests])
	assert.Less(t, time.Since(began), 5*time.Second)

	resp, body := s.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, series := range []string{
		"test_http_requests_total",
		"test_http_request_duration_ms",
		"test_guidance_requests_total",
		"test_rate_limit_rejections_total",
	} {
		assert.Contains(t, body, series)
	}
}

var sampleLine = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*(\{[^}]*\})? [-+0-9.eEInfaN]+( [0-9]+)?$`)

func TestMetricsExposition(t *testing.T) {
	initLoggers(t)
	startMetrics(t)
	s := startSite(t, 1)

	status, err := s.interpret("203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	resp, body := s.get(t, "/metrics")
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain; version=0.0.4"),
		"content type %q", resp.Header.Get("Content-Type"))

	samples, labelled := 0, 0
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		assert.Regexp(t, sampleLine, line)
		samples++
		if strings.Contains(line, "{") {
			labelled++
		}
	}
	assert.Positive(t, samples)
	assert.Positive(t, labelled)
	assert.NotContains(t, body, "203.0.113.7", "client addresses never become labels")
}

func TestMetricsUnavailableWithoutExporter(t *testing.T) {
	initLoggers(t)

	exporter, system := observability.PrometheusExporter, observability.TelemetrySystem
	observability.PrometheusExporter, observability.TelemetrySystem = nil, nil
	t.Cleanup(func() {
		observability.PrometheusExporter, observability.TelemetrySystem = exporter, system
	})

	s := startSite(t, 1)

	resp, _ := s.get(t, "/health/live")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := s.get(t, "/metrics")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "SERVICE_UNAVAILABLE")

	status, err := s.interpret("192.0.2.1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status, "readings work without telemetry")
}
