package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/kundliinsight/kundli/internal/metrics"
	"github.com/kundliinsight/kundli/internal/observability"
)

// ErrorResponse mirrors the API error envelope. The errors package owns the
// full version; this copy exists because errors imports middleware.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Recovery converts a handler panic into a 500 envelope. The panic value
// and stack go to the log only. http.ErrAbortHandler is re-raised so the
// server can abort the connection.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			switch {
			case rec == nil:
				return
			case rec == http.ErrAbortHandler:
				panic(rec)
			}

			id := GetRequestID(r.Context())
			metrics.RecordPanic()
			if logger := observability.ServerLogger; logger != nil {
				logger.Error("Recovered from handler panic",
					zap.String("panic", fmt.Sprint(rec)),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("request_id", id),
					zap.ByteString("stack_trace", debug.Stack()),
				)
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Error: ErrorDetail{
				Code:      "INTERNAL_ERROR",
				Message:   "internal server error",
				RequestID: id,
			}})
		}()
		next.ServeHTTP(w, r)
	})
}
