package ailink

import (
	"context"
	"errors"
	"strings"

	"github.com/kundliinsight/kundli/internal/ailink/driver"
)

// Failure reasons reported by Classify.
const (
	ReasonTimeout     = "timeout"
	ReasonAuth        = "auth"
	ReasonRateLimit   = "rate_limit"
	ReasonUnavailable = "unavailable"
	ReasonBadRequest  = "bad_request"
	ReasonCredential  = "credential_missing"
	ReasonEmpty       = "empty_response"
	ReasonUnknown     = "error"
)

// ErrEmptyResponse is returned when the provider answered with no text.
var ErrEmptyResponse = errors.New("empty response content")

// Classify maps a generation error onto a short reason suitable for logs
// and metric labels, plus provider detail when there is any.
func Classify(err error) (reason, details string) {
	if err == nil {
		return "", ""
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout, ""
	case errors.Is(err, ErrCredentialMissing):
		return ReasonCredential, ""
	case errors.Is(err, ErrEmptyResponse):
		return ReasonEmpty, ""
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		details = strings.TrimSpace(perr.Body)
		status := perr.StatusCode
		switch {
		case perr.Unauthorized():
			return ReasonAuth, details
		case perr.Throttled():
			return ReasonRateLimit, details
		case status >= 500 && status <= 599:
			return ReasonUnavailable, details
		case status >= 400 && status <= 499:
			return ReasonBadRequest, details
		}
		return ReasonUnknown, details
	}

	return ReasonUnknown, err.Error()
}
