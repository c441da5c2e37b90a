package ailink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kundliinsight/kundli/internal/ailink/driver"
	"github.com/kundliinsight/kundli/internal/ailink/prompt"
)

func openAIConfig(baseURL, key string) Config {
	return Config{
		DefaultProvider: "openai",
		Providers: map[string]ProviderInstanceConfig{
			"openai": {
				Enabled:     true,
				AIProvider:  "openai",
				BaseURL:     baseURL,
				Models:      map[string]string{"default": "gpt-4o"},
				Credentials: []CredentialConfig{{Enabled: true, Label: "primary", APIKey: key}},
			},
		},
	}
}

func TestReadyRequiresCredential(t *testing.T) {
	svc := NewService(openAIConfig("", ""))
	err := svc.Ready()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCredentialMissing))

	svc = NewService(openAIConfig("", "sk-test"))
	require.NoError(t, svc.Ready())
}

func TestReadyWithoutProviders(t *testing.T) {
	require.Error(t, NewService(Config{}).Ready())

	var svc *Service
	require.Error(t, svc.Ready())
}

func TestGenerateSendsSingleRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "gpt-4o", payload["model"])
		assert.EqualValues(t, 4000, payload["max_tokens"])
		assert.EqualValues(t, 0.7, payload["temperature"])
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"<h2>Q</h2><p>A</p>"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	svc := NewService(openAIConfig(server.URL, "sk-test"))
	resp, err := svc.Generate(context.Background(), GenerateRequest{
		System:      "sys",
		User:        "usr",
		MaxTokens:   4000,
		Temperature: lo.ToPtr(0.7),
	})
	require.NoError(t, err)
	assert.Equal(t, "<h2>Q</h2><p>A</p>", resp.Text)
	assert.Equal(t, "openai", resp.Provider)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateTemperature(t *testing.T) {
	var payloads []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		payloads = append(payloads, payload)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"<p>A</p>"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	svc := NewService(openAIConfig(server.URL, "sk-test"))
	_, err := svc.Generate(context.Background(), GenerateRequest{User: "usr", Temperature: lo.ToPtr(0.0)})
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), GenerateRequest{User: "usr"})
	require.NoError(t, err)

	require.Len(t, payloads, 2)
	temperature, sent := payloads[0]["temperature"]
	require.True(t, sent, "zero temperature must be sent")
	assert.EqualValues(t, 0, temperature)
	assert.NotContains(t, payloads[1], "temperature")
}

func TestGenerateEmptyResponse(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"   "},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	svc := NewService(openAIConfig(server.URL, "sk-test"))
	_, err := svc.Generate(context.Background(), GenerateRequest{User: "usr"})
	require.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, int32(1), calls.Load())

	reason, _ := Classify(err)
	assert.Equal(t, ReasonEmpty, reason)
}

func TestGenerateProviderFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
	}))
	defer server.Close()

	svc := NewService(openAIConfig(server.URL, "sk-test"))
	_, err := svc.Generate(context.Background(), GenerateRequest{User: "usr"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	reason, details := Classify(err)
	assert.Equal(t, ReasonUnavailable, reason)
	assert.Equal(t, "overloaded", details)
}

func TestGenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	svc := NewService(openAIConfig(server.URL, "sk-test"))
	_, err := svc.Generate(context.Background(), GenerateRequest{User: "usr", Timeout: 20 * time.Millisecond})
	require.Error(t, err)

	reason, _ := Classify(err)
	assert.Equal(t, ReasonTimeout, reason)
}

func TestClassifyProviderErrors(t *testing.T) {
	cases := map[int]string{
		http.StatusUnauthorized:    ReasonAuth,
		http.StatusForbidden:       ReasonAuth,
		http.StatusTooManyRequests: ReasonRateLimit,
		http.StatusBadRequest:      ReasonBadRequest,
		http.StatusBadGateway:      ReasonUnavailable,
	}
	for status, want := range cases {
		reason, _ := Classify(&driver.ProviderError{Provider: "openai", StatusCode: status})
		assert.Equal(t, want, reason, "status %d", status)
	}

	reason, details := Classify(errors.New("boom"))
	assert.Equal(t, ReasonUnknown, reason)
	assert.Equal(t, "boom", details)
}

func TestResolveModelOrder(t *testing.T) {
	promptDef := &prompt.Prompt{Config: prompt.Config{ProviderHints: map[string]any{"preferred_models": []any{"prompt-model"}}}}

	model, err := resolveModel(ProviderInstanceConfig{Models: map[string]string{"default": "m-default"}}, promptDef, "override")
	require.NoError(t, err)
	assert.Equal(t, "override", model)

	model, err = resolveModel(ProviderInstanceConfig{Models: map[string]string{"default": "m-default"}}, promptDef, "")
	require.NoError(t, err)
	assert.Equal(t, "m-default", model)

	model, err = resolveModel(ProviderInstanceConfig{}, promptDef, "")
	require.NoError(t, err)
	assert.Equal(t, "prompt-model", model)

	_, err = resolveModel(ProviderInstanceConfig{}, nil, "")
	require.Error(t, err)
}

func TestRoundRobinCredentials(t *testing.T) {
	cfg := openAIConfig("", "")
	provider := cfg.Providers["openai"]
	provider.SelectionPolicy = "round_robin"
	provider.Credentials = []CredentialConfig{
		{Enabled: true, Label: "a", APIKey: "k1", Priority: 1},
		{Enabled: true, Label: "b", APIKey: "k2", Priority: 1},
		{Enabled: true, Label: "low", APIKey: "k3", Priority: 0},
	}
	cfg.Providers["openai"] = provider

	reg := NewRegistry(cfg)
	first, err := reg.selectCredential("openai", provider)
	require.NoError(t, err)
	second, err := reg.selectCredential("openai", provider)
	require.NoError(t, err)
	third, err := reg.selectCredential("openai", provider)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "a"}, []string{first.Label, second.Label, third.Label})
}

func TestRoutingByRole(t *testing.T) {
	cfg := openAIConfig("", "k")
	cfg.DefaultProvider = ""
	cfg.Providers["backup"] = ProviderInstanceConfig{Enabled: true, Roles: []string{"other"}}
	cfg.Routing = map[string]string{RoleGuidance: "openai"}

	id, _, err := NewRegistry(cfg).resolveProvider(RoleGuidance)
	require.NoError(t, err)
	assert.Equal(t, "openai", id)

	id, _, err = NewRegistry(cfg).resolveProvider("other")
	require.NoError(t, err)
	assert.Equal(t, "backup", id)
}
