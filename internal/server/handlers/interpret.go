package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/kundliinsight/kundli/internal/core"
)

// Interpret handles POST /api/interpret. The body is handed to the
// orchestrator untouched so admission happens before any validation; a body
// over the size limit is passed on as empty and fails validation there.
func (a *API) Interpret(w http.ResponseWriter, r *http.Request) {
	raw, err := a.readBody(w, r)
	if err != nil {
		raw = nil
	}

	client := ClientID(r)
	var result *core.GuidanceResult
	if a.Guidance == nil {
		result = core.Failure(core.ErrorKindConfiguration, core.PeekLanguage(raw))
	} else {
		result = a.Guidance.Interpret(r.Context(), raw, client)
	}

	a.setRateLimitHeaders(w, client, result)
	writeJSON(w, guidanceStatus(result), result)
}

func (a *API) setRateLimitHeaders(w http.ResponseWriter, client string, result *core.GuidanceResult) {
	if a.Guidance == nil || a.Guidance.Limiter == nil {
		return
	}
	limiter := a.Guidance.Limiter
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit.RequestsPerWindow))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(client)))
	if reset := limiter.ResetAt(client); !reset.IsZero() {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
	}

	if result != nil && result.ErrorKind == core.ErrorKindRateLimitExceeded && !result.RetryAt.IsZero() {
		wait := result.RetryAt.Sub(a.now()).Seconds()
		seconds := int64(math.Ceil(wait))
		if seconds < 1 {
			seconds = 1
		}
		h.Set("Retry-After", strconv.FormatInt(seconds, 10))
	}
}

func guidanceStatus(result *core.GuidanceResult) int {
	if result == nil {
		return http.StatusInternalServerError
	}
	if result.OK {
		return http.StatusOK
	}
	switch result.ErrorKind {
	case core.ErrorKindRateLimitExceeded:
		return http.StatusTooManyRequests
	case core.ErrorKindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
