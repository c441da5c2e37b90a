package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/kundliinsight/kundli/internal/ailink"
	"github.com/kundliinsight/kundli/internal/ailink/prompt"
	"github.com/kundliinsight/kundli/internal/core"
	"github.com/kundliinsight/kundli/internal/metrics"
	"github.com/kundliinsight/kundli/internal/observability"
	"github.com/kundliinsight/kundli/internal/sanitize"
)

// Generation defaults for a reading.
const (
	DefaultMaxTokens         = 4000
	DefaultTemperature       = 0.7
	DefaultGenerationTimeout = 45 * time.Second
)

// Generator produces text for a rendered prompt.
type Generator interface {
	// Ready reports whether generation is configured. It must not make a
	// network call.
	Ready() error
	Generate(ctx context.Context, req ailink.GenerateRequest) (*ailink.GenerateResponse, error)
}

// GenerationOptions tunes the single provider call made per reading.
type GenerationOptions struct {
	Model       string
	MaxTokens   int
	// Temperature nil means DefaultTemperature; zero is a valid setting.
	Temperature *float64
	Timeout     time.Duration
}

// Orchestrator turns a raw interpretation request into a GuidanceResult:
// admission, validation, configuration check, prompt, one generation call,
// sanitization.
type Orchestrator struct {
	Limiter   *WindowLimiter
	Prompts   prompt.Registry
	Generator Generator
	Options   GenerationOptions
	Logger    *logging.Logger
	// LimiterName labels rate limit metrics ("http", "cli").
	LimiterName string
}

// Interpret runs one request for clientID. It never returns nil and never
// panics; every failure is reported through the result's ErrorKind.
func (o *Orchestrator) Interpret(ctx context.Context, raw []byte, clientID string) (result *core.GuidanceResult) {
	if ctx == nil {
		ctx = context.Background()
	}
	lang := core.PeekLanguage(raw)
	client := normalizeClient(clientID)

	defer func() {
		if rec := recover(); rec != nil {
			metrics.RecordPanic()
			o.logError("Guidance request panicked",
				zap.String("client", client),
				zap.String("panic", fmt.Sprint(rec)),
			)
			result = core.Failure(core.ErrorKindUnexpected, lang)
		}
		if result != nil {
			metrics.RecordGuidance(outcomeLabel(result), string(result.Language))
		}
	}()

	if o.Limiter != nil && !o.Limiter.Allow(client) {
		metrics.RecordRateLimitRejection(o.limiterName())
		o.logInfo("Guidance request rate limited", zap.String("client", client))
		failure := core.Failure(core.ErrorKindRateLimitExceeded, lang)
		failure.ErrorMessage = core.RateLimitMessage(lang, o.Limiter.Limit.WindowDuration)
		failure.RetryAt = o.Limiter.ResetAt(client)
		return failure
	}

	req, verr := core.DecodeGuidanceRequest(raw)
	if verr != nil {
		o.logInfo("Guidance request rejected",
			zap.String("client", client),
			zap.String("field", verr.Field),
			zap.Error(verr),
		)
		failure := core.Failure(core.ErrorKindValidation, lang)
		failure.ErrorMessage = verr.Message(lang)
		return failure
	}
	lang = req.Language

	if o.Generator == nil {
		o.logError("config_error: guidance generator not configured", zap.String("client", client))
		return core.Failure(core.ErrorKindConfiguration, lang)
	}
	if err := o.Generator.Ready(); err != nil {
		o.logError("config_error: guidance generation unavailable",
			zap.String("client", client),
			zap.Error(err),
		)
		return core.Failure(core.ErrorKindConfiguration, lang)
	}

	built, err := BuildPrompt(o.Prompts, req)
	if err != nil {
		o.logError("config_error: guidance prompt unavailable",
			zap.String("language", string(lang)),
			zap.Error(err),
		)
		return core.Failure(core.ErrorKindConfiguration, lang)
	}

	opts := o.options()
	genCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	resp, err := o.Generator.Generate(genCtx, ailink.GenerateRequest{
		Role:        ailink.RoleGuidance,
		Prompt:      built.Prompt,
		System:      built.System,
		User:        built.User,
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Timeout:     opts.Timeout,
	})
	if err != nil {
		reason, details := ailink.Classify(err)
		metrics.RecordGeneration("", reason, 0, 0)
		o.logError("Guidance generation failed",
			zap.String("client", client),
			zap.String("language", string(lang)),
			zap.Int("prompt_length", len(built.User)),
			zap.String("reason", reason),
			zap.String("details", details),
		)
		return core.Failure(core.ErrorKindGenerationFailure, lang)
	}

	html := sanitize.Guidance(resp.Text)
	if html == "" {
		metrics.RecordGeneration(resp.Provider, ailink.ReasonEmpty, resp.Duration, 0)
		o.logError("Guidance generation returned no usable markup",
			zap.String("client", client),
			zap.String("language", string(lang)),
			zap.Int("raw_length", len(resp.Text)),
		)
		return core.Failure(core.ErrorKindGenerationFailure, lang)
	}

	metrics.RecordGeneration(resp.Provider, "", resp.Duration, len(html))
	o.logInfo("Guidance generated",
		zap.String("client", client),
		zap.String("language", string(lang)),
		zap.String("model", resp.Model),
		zap.Int("prompt_length", len(built.User)),
		zap.Int("response_length", len(html)),
		zap.Duration("duration", resp.Duration),
	)
	return core.Success(html, lang)
}

func (o *Orchestrator) options() GenerationOptions {
	opts := o.Options
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Temperature == nil {
		opts.Temperature = lo.ToPtr(DefaultTemperature)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultGenerationTimeout
	}
	return opts
}

func (o *Orchestrator) limiterName() string {
	if o.LimiterName == "" {
		return "http"
	}
	return o.LimiterName
}

func (o *Orchestrator) logger() *logging.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return observability.ServerLogger
}

func (o *Orchestrator) logInfo(msg string, fields ...zap.Field) {
	if l := o.logger(); l != nil {
		l.Info(msg, fields...)
	}
}

func (o *Orchestrator) logError(msg string, fields ...zap.Field) {
	if l := o.logger(); l != nil {
		l.Error(msg, fields...)
	}
}

func outcomeLabel(result *core.GuidanceResult) string {
	if result == nil {
		return string(core.ErrorKindUnexpected)
	}
	if result.OK {
		return "ok"
	}
	return string(result.ErrorKind)
}
