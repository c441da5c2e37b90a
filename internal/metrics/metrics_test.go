package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kundliinsight/kundli/internal/observability"
)

func TestRecordersAreNoOpsWhenDisabled(t *testing.T) {
	observability.TelemetrySystem = nil

	assert.NotPanics(t, func() {
		RecordError("INTERNAL_ERROR", 500)
		RecordPanic()
		RecordErrorByEndpoint("/api/interpret", "RATE_LIMITED")
		RecordGuidance("ok", "hi")
		RecordGeneration("openai", "", time.Second, 120)
		RecordGeneration("", "timeout", 0, 0)
		RecordRateLimitRejection("http")
		SetRateLimitTrackedClients("http", 3)
		RecordContactMessage(false)
		RecordAdminLogin("invalid")
		RecordHealthCheck("database", true, time.Millisecond)
		SetServerStartTime(time.Now().Unix())
	})
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "success", statusLabel(true))
	assert.Equal(t, "failure", statusLabel(false))
}
