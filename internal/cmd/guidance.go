package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/samber/lo"

	"github.com/kundliinsight/kundli/internal/ailink"
	"github.com/kundliinsight/kundli/internal/ailink/prompt"
	"github.com/kundliinsight/kundli/internal/config"
	"github.com/kundliinsight/kundli/internal/core/engine"
)

// guidanceStack is the orchestrator plus the parts callers also need
// directly (health checks, limiter sweeps).
type guidanceStack struct {
	orchestrator *engine.Orchestrator
	service      *ailink.Service
	limiter      *engine.WindowLimiter
}

func buildGuidance(cfg *config.Config, limiterName string, logger *logging.Logger) (*guidanceStack, error) {
	prompts, err := prompt.RegistryWithOverrides(cfg.AILink.PromptsDir)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	service := ailink.NewService(cfg.AILink)
	limiter := engine.NewWindowLimiter(engine.RateLimit{
		RequestsPerWindow: cfg.RateLimit.MaxRequests,
		WindowDuration:    cfg.RateLimit.Window,
	})

	return &guidanceStack{
		orchestrator: &engine.Orchestrator{
			Limiter:   limiter,
			Prompts:   prompts,
			Generator: service,
			Options: engine.GenerationOptions{
				Model:       cfg.Guidance.Model,
				MaxTokens:   cfg.Guidance.MaxTokens,
				Temperature: lo.ToPtr(cfg.Guidance.Temperature),
				Timeout:     cfg.Guidance.GenerationTimeout,
			},
			Logger:      logger,
			LimiterName: limiterName,
		},
		service: service,
		limiter: limiter,
	}, nil
}
