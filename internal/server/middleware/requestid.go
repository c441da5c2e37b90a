package middleware

import (
	"context"
	"net/http"
	"regexp"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 64

type ctxKey struct{}

// RequestIDContextKey holds the request ID in a request context.
var RequestIDContextKey = ctxKey{}

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// RequestID makes sure every request carries an ID, in the context and the
// X-Request-ID response header. Caller-supplied IDs are kept only when short
// and URL safe so they can't pollute logs.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chimw.GetReqID(r.Context())
		if id == "" {
			id = r.Header.Get(RequestIDHeader)
		}
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), RequestIDContextKey, id)))
	})
}

// GetRequestID returns the ID set by RequestID, falling back to chi's.
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(RequestIDContextKey).(string); ok {
		return id
	}
	return chimw.GetReqID(ctx)
}

func validRequestID(id string) bool {
	return len(id) <= maxRequestIDLength && requestIDPattern.MatchString(id)
}
