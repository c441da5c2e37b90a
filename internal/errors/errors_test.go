package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kundliinsight/kundli/internal/core/store"
	"github.com/kundliinsight/kundli/internal/server/middleware"
)

func TestHTTPStatusFromCode(t *testing.T) {
	cases := map[string]int{
		CodeValidation:      http.StatusBadRequest,
		CodeNotFound:        http.StatusNotFound,
		CodeRateLimited:     http.StatusTooManyRequests,
		CodeExternalService: http.StatusBadGateway,
		CodeUnavailable:     http.StatusServiceUnavailable,
		CodeDatabase:        http.StatusInternalServerError,
		"SOMETHING_NEW":     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatusFromCode(code), code)
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromEnvelope(nil))
}

func TestFromStore(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, FromStore(ctx, nil, "post"))
	assert.Equal(t, CodeNotFound, FromStore(ctx, fmt.Errorf("get: %w", store.ErrNotFound), "post").Code)
	assert.Equal(t, "category already exists", FromStore(ctx, store.ErrConflict, "category").Message)
	assert.Equal(t, CodeTimeout, FromStore(ctx, context.DeadlineExceeded, "post").Code)

	env := FromStore(ctx, stderrors.New("disk full"), "post")
	assert.Equal(t, CodeDatabase, env.Code)
	assert.Equal(t, "disk full", env.Context["wrapped_error"])
}

func TestEnsureEnvelopeKeepsExisting(t *testing.T) {
	orig := NewConflictError("slug taken")
	assert.Same(t, orig, EnsureEnvelope(fmt.Errorf("save: %w", orig)))

	env := EnsureEnvelope(stderrors.New("boom"))
	assert.Equal(t, CodeInternal, env.Code)
	assert.Equal(t, "boom", env.Context["wrapped_error"])
}

func TestRespondWithEnvelopeHidesContext(t *testing.T) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Get("/api/posts/{slug}", func(w http.ResponseWriter, req *http.Request) {
		RespondWithEnvelope(w, req, WrapDatabaseError(req.Context(), stderrors.New("secret dsn"), "failed to load post"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/posts/hello", nil)
	req.Header.Set(middleware.RequestIDHeader, "rid-7")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret dsn")

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeDatabase, body.Error.Code)
	assert.Equal(t, "rid-7", body.Error.RequestID)
}

func TestEndpointLabel(t *testing.T) {
	assert.Equal(t, "unmatched", endpointLabel(httptest.NewRequest(http.MethodGet, "/x", nil)))

	var label string
	r := chi.NewRouter()
	r.Get("/api/posts/{slug}", func(w http.ResponseWriter, req *http.Request) { label = endpointLabel(req) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/posts/hello", nil))
	assert.Equal(t, "/api/posts/{slug}", label)
}
