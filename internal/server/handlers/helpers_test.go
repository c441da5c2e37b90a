package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/kundliinsight/kundli/internal/ailink"
	"github.com/kundliinsight/kundli/internal/ailink/prompt"
	"github.com/kundliinsight/kundli/internal/config"
	"github.com/kundliinsight/kundli/internal/core/engine"
)

type stubGenerator struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (s *stubGenerator) Ready() error { return nil }

func (s *stubGenerator) Generate(ctx context.Context, req ailink.GenerateRequest) (*ailink.GenerateResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &ailink.GenerateResponse{Text: s.text, Provider: "stub", Model: "stub"}, nil
}

func (s *stubGenerator) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type testEnv struct {
	api     *API
	store   *memStore
	gen     *stubGenerator
	limiter *engine.WindowLimiter
	router  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	reg, err := prompt.DefaultRegistry()
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	gen := &stubGenerator{text: "<h2>स्वभाव</h2><p>शांत</p>"}
	limiter := engine.NewWindowLimiter(engine.DefaultLimit)
	limiter.Clock = func() time.Time { return now }

	st := newMemStore()
	cfg := &config.Config{
		Server: config.ServerConfig{MaxBodyBytes: 64 << 10},
		Site: config.SiteConfig{
			Name:        "Kundli Insight",
			Description: "Guidance",
			Keywords:    []string{"kundli", "jyotish"},
		},
		Auth:    config.AuthConfig{LoginRate: 1, LoginBurst: 3},
		Uploads: config.UploadsConfig{Dir: t.TempDir(), MaxBytes: 1 << 20, MaxDimension: 64},
	}
	api := NewAPI(cfg, st, &engine.Orchestrator{Limiter: limiter, Prompts: reg, Generator: gen})
	api.Now = func() time.Time { return now }

	r := chi.NewRouter()
	api.Mount(r, cfg.Uploads.Dir)
	return &testEnv{api: api, store: st, gen: gen, limiter: limiter, router: r}
}

type call struct {
	method string
	path   string
	body   any
	cookie *http.Cookie
	remote string
}

func (e *testEnv) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	switch b := c.body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(c.method, c.path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.remote != "" {
		req.RemoteAddr = c.remote
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// signIn creates an admin and returns its session cookie.
func (e *testEnv) signIn(t *testing.T) *http.Cookie {
	t.Helper()
	_, err := e.store.CreateUser(context.Background(), "pandit", "secret123", true)
	require.NoError(t, err)
	rec := e.do(t, call{method: http.MethodPost, path: "/api/admin/login", body: map[string]string{
		"username": "pandit", "password": "secret123",
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == DefaultCookieName {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
