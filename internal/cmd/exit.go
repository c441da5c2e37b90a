package cmd

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	apperrors "github.com/kundliinsight/kundli/internal/errors"
)

// ExitCodeFor maps a command error to a foundry exit code. Configuration
// problems and unreachable providers get their own codes so scripts can tell
// them apart from ordinary failures.
func ExitCodeFor(err error) foundry.ExitCode {
	var envelope *errors.ErrorEnvelope
	if !stderrors.As(err, &envelope) {
		return foundry.ExitFailure
	}
	switch envelope.Code {
	case apperrors.CodeConfigInvalid:
		return foundry.ExitConfigInvalid
	case apperrors.CodeExternalService, apperrors.CodeUnavailable:
		return foundry.ExitExternalServiceUnavailable
	default:
		return foundry.ExitFailure
	}
}

// envelopeCause returns the envelope inside err, if any, and the error that
// should be shown as the cause.
func envelopeCause(err error) (*errors.ErrorEnvelope, error) {
	var envelope *errors.ErrorEnvelope
	if !stderrors.As(err, &envelope) {
		return nil, err
	}
	if original, ok := envelope.Original.(error); ok && original != nil {
		return envelope, original
	}
	return envelope, err
}

// ExitWithCode logs msg with exit code metadata and exits. A nil logger
// writes the report to stderr instead.
func ExitWithCode(logger *logging.Logger, code foundry.ExitCode, msg string, err error) {
	if logger == nil {
		ExitWithCodeStderr(code, msg, err)
		return
	}

	info, ok := foundry.GetExitCodeInfo(code)
	if !ok {
		ExitWithCodeStderr(code, msg, err)
		return
	}

	fields := []zap.Field{
		zap.Int("exit_code", info.Code),
		zap.String("exit_name", info.Name),
		zap.String("exit_category", info.Category),
	}
	envelope, cause := envelopeCause(err)
	if envelope != nil {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("error_message", envelope.Message),
			zap.String("correlation_id", envelope.CorrelationID),
		)
		if envelope.Context != nil {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
	}
	logger.Error(msg, append(fields, zap.Error(cause))...)
	os.Exit(info.Code)
}

// ExitWithCodeStderr is ExitWithCode for failures before any logger exists.
func ExitWithCodeStderr(code foundry.ExitCode, msg string, err error) {
	fmt.Fprintln(os.Stderr, fatalLine(msg, err))
	info, ok := foundry.GetExitCodeInfo(code)
	if !ok {
		os.Exit(int(code))
	}
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	os.Exit(info.Code)
}

func fatalLine(msg string, err error) string {
	if err == nil {
		return "FATAL: " + msg
	}
	envelope, cause := envelopeCause(err)
	if envelope == nil {
		return fmt.Sprintf("FATAL: %s: %v", msg, err)
	}
	line := fmt.Sprintf("FATAL: %s [%s]: %s", msg, envelope.Code, envelope.Message)
	if _, wrapped := envelope.Original.(error); wrapped {
		return line + fmt.Sprintf(" (cause: %v)", cause)
	}
	if text, ok := envelope.Context["wrapped_error"].(string); ok && text != "" {
		return line + " (cause: " + text + ")"
	}
	return line
}
