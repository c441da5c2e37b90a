package errors

import (
	"context"
	stderrors "errors"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"

	"github.com/kundliinsight/kundli/internal/core/store"
	"github.com/kundliinsight/kundli/internal/server/middleware"
)

// The Wrap helpers tag the envelope with the request ID from ctx and keep the
// cause's text in Context["wrapped_error"], which is logged but never sent.

func WrapInvalidInput(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeInvalidInput, err, message)
}

func WrapValidationError(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeValidation, err, message)
}

func WrapInternal(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeInternal, err, message)
}

func WrapConfigInvalid(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeConfigInvalid, err, message)
}

func WrapDatabaseError(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	envelope, _ := wrap(ctx, CodeDatabase, err, message).WithSeverity(errors.SeverityHigh)
	return envelope
}

// FromStore turns store sentinels into envelopes; what names the resource.
func FromStore(ctx context.Context, err error, what string) *errors.ErrorEnvelope {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, store.ErrNotFound):
		return wrap(ctx, CodeNotFound, nil, what+" not found")
	case stderrors.Is(err, store.ErrConflict):
		return wrap(ctx, CodeConflict, nil, what+" already exists")
	case stderrors.Is(err, context.DeadlineExceeded):
		return wrap(ctx, CodeTimeout, err, what+" lookup timed out")
	}
	return WrapDatabaseError(ctx, err, "failed to access "+what)
}

// EnsureEnvelope returns err's envelope, or an INTERNAL_ERROR one carrying
// err's text.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		envelope, _ := errors.NewErrorEnvelope(CodeInternal, "unexpected nil error").WithSeverity(errors.SeverityCritical)
		return envelope
	}
	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		return envelope
	}
	envelope, _ = withCause(errors.NewErrorEnvelope(CodeInternal, "unexpected error"), err).WithSeverity(errors.SeverityHigh)
	return envelope
}

// EnsureCorrelationID fills in a missing correlation ID from ctx's request ID.
func EnsureCorrelationID(envelope *errors.ErrorEnvelope, ctx context.Context) *errors.ErrorEnvelope {
	if envelope == nil || envelope.CorrelationID != "" {
		return envelope
	}
	id := requestID(ctx)
	if id == "" {
		id = "fallback-" + errors.GenerateCorrelationID()
	}
	return envelope.WithCorrelationID(id)
}

func wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	id := requestID(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	envelope := errors.NewErrorEnvelope(code, message).WithCorrelationID(id).WithTraceID(id)
	return withCause(envelope, err)
}

func requestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	return middleware.GetRequestID(ctx)
}

func withCause(envelope *errors.ErrorEnvelope, err error) *errors.ErrorEnvelope {
	if err == nil {
		return envelope
	}
	if updated, uerr := envelope.WithContext(map[string]interface{}{"wrapped_error": err.Error()}); uerr == nil {
		return updated
	}
	return envelope
}

