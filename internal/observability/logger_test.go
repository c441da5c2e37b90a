package observability

import (
	"testing"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLogLevel("debug"))
	assert.Equal(t, "WARN", parseLogLevel(" Warning "))
	assert.Equal(t, "ERROR", parseLogLevel("ERROR"))
	assert.Equal(t, "INFO", parseLogLevel("verbose"))
	assert.Equal(t, "TRACE", parseLogLevel("trace"))
}

func TestServerLoggerConfigProfiles(t *testing.T) {
	structured := serverLoggerConfig(ServerLoggerOptions{Service: "kundli", Level: "debug", Profile: "STRUCTURED", Namespace: "kundli"})
	assert.Equal(t, logging.ProfileStructured, structured.Profile)
	assert.Equal(t, "DEBUG", structured.DefaultLevel)
	assert.Equal(t, "json", structured.Sinks[0].Format)
	assert.Equal(t, "kundli", structured.StaticFields["namespace"])
	assert.Len(t, structured.Middleware, 1)
	assert.Equal(t, "production", structured.Environment)

	simple := serverLoggerConfig(ServerLoggerOptions{Service: "kundli", Profile: "simple", Environment: "development"})
	assert.Equal(t, logging.ProfileSimple, simple.Profile)
	assert.Equal(t, "console", simple.Sinks[0].Format)
	assert.Empty(t, simple.Middleware)
	assert.Equal(t, "development", simple.Environment)
	assert.False(t, simple.EnableStacktrace)
	assert.NotContains(t, simple.StaticFields, "namespace")
}

func TestInitServerLogger(t *testing.T) {
	require.NoError(t, InitServerLogger(ServerLoggerOptions{Service: "kundli-test", Level: "info", Profile: "STRUCTURED"}))
	assert.NotNil(t, ServerLogger)
	ServerLogger.Info("server logger ready")
}
