package cmd

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/kundliinsight/kundli/internal/errors"
)

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, foundry.ExitFailure, ExitCodeFor(errors.New("plain")))
	assert.Equal(t, foundry.ExitConfigInvalid, ExitCodeFor(apperrors.NewConfigInvalidError("bad")))
	assert.Equal(t, foundry.ExitConfigInvalid,
		ExitCodeFor(apperrors.WrapConfigInvalid(context.Background(), errors.New("parse"), "failed to load configuration")))
	assert.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCodeFor(apperrors.NewExternalServiceError("down")))
	assert.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCodeFor(apperrors.NewUnavailableError("down")))
	assert.Equal(t, foundry.ExitFailure, ExitCodeFor(apperrors.NewValidationError("nope")))
}

func TestExitCodeForWrappedEnvelope(t *testing.T) {
	err := fmt.Errorf("interpret: %w", apperrors.NewConfigInvalidError("missing key"))
	assert.Equal(t, foundry.ExitConfigInvalid, ExitCodeFor(err))
}

func TestFatalLine(t *testing.T) {
	assert.Equal(t, "FATAL: boot", fatalLine("boot", nil))
	assert.Equal(t, "FATAL: boot: disk full", fatalLine("boot", errors.New("disk full")))

	line := fatalLine("Command execution failed", apperrors.NewConfigInvalidError("missing key"))
	assert.Contains(t, line, "["+apperrors.CodeConfigInvalid+"]")
	assert.Contains(t, line, "missing key")

	wrapped := apperrors.WrapConfigInvalid(context.Background(), errors.New("yaml: line 3"), "failed to load configuration")
	assert.Contains(t, fatalLine("Command execution failed", wrapped), "cause: yaml: line 3")
}
