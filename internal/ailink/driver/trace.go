package driver

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TraceEntry is one provider round trip. Each entry becomes one JSON line in
// the trace file; headers (and so API keys) are never part of it.
type TraceEntry struct {
	Timestamp   time.Time       `json:"timestamp"`
	Driver      string          `json:"driver"`
	Endpoint    string          `json:"endpoint"`
	Method      string          `json:"method"`
	Model       string          `json:"model,omitempty"`
	RequestBody json.RawMessage `json:"request_body,omitempty"`
	StatusCode  int             `json:"status_code,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
	Error       string          `json:"error,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
}

func (e TraceEntry) fields() []zap.Field {
	fields := []zap.Field{
		zap.String("driver", e.Driver),
		zap.String("endpoint", e.Endpoint),
		zap.String("method", e.Method),
		zap.Int64("duration_ms", e.DurationMs),
	}
	if e.Model != "" {
		fields = append(fields, zap.String("model", e.Model))
	}
	if e.StatusCode != 0 {
		fields = append(fields, zap.Int("status_code", e.StatusCode))
	}
	if e.Error != "" {
		fields = append(fields, zap.String("error", e.Error))
	}
	// Reflect keeps raw JSON inline instead of base64 encoding it.
	if len(e.RequestBody) > 0 {
		fields = append(fields, zap.Reflect("request_body", e.RequestBody))
	}
	if len(e.Response) > 0 {
		fields = append(fields, zap.Reflect("response", e.Response))
	}
	return fields
}

type traceSink struct {
	log  *zap.Logger
	file *os.File
}

func (s *traceSink) close() {
	_ = s.log.Sync()
	_ = s.file.Close()
}

var (
	traceMu sync.Mutex
	tracer  *traceSink
)

func traceEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
	})
}

// EnableTracing appends provider traces to path. The returned func stops
// tracing; enabling again replaces the previous file.
func EnableTracing(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 -- operator-chosen path
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	sink := &traceSink{
		log:  zap.New(zapcore.NewCore(traceEncoder(), zapcore.Lock(f), zapcore.DebugLevel)),
		file: f,
	}

	traceMu.Lock()
	if tracer != nil {
		tracer.close()
	}
	tracer = sink
	traceMu.Unlock()

	return func() {
		traceMu.Lock()
		defer traceMu.Unlock()
		if tracer == sink {
			sink.close()
			tracer = nil
		}
	}, nil
}

func Trace(entry TraceEntry) {
	traceMu.Lock()
	defer traceMu.Unlock()
	if tracer != nil {
		tracer.log.Info("", entry.fields()...)
	}
}
