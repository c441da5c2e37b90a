package errors

import (
	"encoding/json"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kundliinsight/kundli/internal/metrics"
	"github.com/kundliinsight/kundli/internal/observability"
)

// HTTPErrorResponse is the body of every non-guidance error response.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

type HTTPErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// ResponseDetails copies the caller-safe Details. Context stays server side.
func ResponseDetails(envelope *errors.ErrorEnvelope) map[string]interface{} {
	if envelope == nil || len(envelope.Details) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(envelope.Details))
	for k, v := range envelope.Details {
		out[k] = v
	}
	return out
}

func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	RespondWithEnvelope(w, r, EnsureEnvelope(err))
}

// RespondWithEnvelope logs the envelope, counts it and writes it as JSON.
func RespondWithEnvelope(w http.ResponseWriter, r *http.Request, envelope *errors.ErrorEnvelope) {
	if w == nil {
		return
	}
	if r != nil {
		envelope = EnsureCorrelationID(envelope, r.Context())
	} else {
		envelope = EnsureCorrelationID(envelope, nil)
	}
	status := HTTPStatusFromEnvelope(envelope)

	logHTTPError(envelope, status)
	metrics.RecordError(envelope.Code, status)
	if r != nil {
		metrics.RecordErrorByEndpoint(endpointLabel(r), envelope.Code)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{Error: HTTPErrorDetail{
		Code:      envelope.Code,
		Message:   envelope.Message,
		Details:   ResponseDetails(envelope),
		RequestID: envelope.CorrelationID,
	}})
}

func logHTTPError(envelope *errors.ErrorEnvelope, status int) {
	log := observability.ServerLogger
	if log == nil {
		return
	}
	fields := make([]zap.Field, 0, 4+len(envelope.Context))
	fields = append(fields, zap.String("error_code", envelope.Code), zap.Int("http_status", status))
	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}
	if envelope.CorrelationID != "" {
		fields = append(fields, zap.String("request_id", envelope.CorrelationID))
	}
	for k, v := range envelope.Context {
		fields = append(fields, zap.Any(k, v))
	}

	switch {
	case envelope.Severity == errors.SeverityCritical, envelope.Severity == errors.SeverityHigh, status >= http.StatusInternalServerError:
		log.Error(envelope.Message, fields...)
	case envelope.Severity == errors.SeverityMedium:
		log.Warn(envelope.Message, fields...)
	default:
		log.Info(envelope.Message, fields...)
	}
}

// endpointLabel uses the chi route pattern so slugs and file names never
// become metric label values.
func endpointLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
