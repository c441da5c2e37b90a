package ailink

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kundliinsight/kundli/internal/ailink/driver"
	"github.com/kundliinsight/kundli/internal/ailink/prompt"
)

const (
	// RoleGuidance routes guidance readings to a provider.
	RoleGuidance = "guidance"

	defaultTimeout = 60 * time.Second
	maxTimeout     = 5 * time.Minute
)

// GenerateRequest is a single system+user completion.
type GenerateRequest struct {
	Role        string
	Prompt      *prompt.Prompt
	System      string
	User        string
	Model       string
	MaxTokens   int
	// Temperature is sent as given, zero included; nil leaves the provider
	// default in place.
	Temperature *float64
	Timeout     time.Duration
}

// GenerateResponse is the provider's answer plus bookkeeping.
type GenerateResponse struct {
	Text         string
	Provider     string
	Model        string
	FinishReason string
	Usage        *driver.Usage
	Duration     time.Duration
}

// Service coordinates provider selection and driver execution.
type Service struct {
	Providers *Registry
}

// NewService returns a service backed by cfg.
func NewService(cfg Config) *Service {
	return &Service{Providers: NewRegistry(cfg)}
}

// Ready reports whether a guidance request could be sent right now. It does
// not contact the provider.
func (s *Service) Ready() error {
	if s == nil || s.Providers == nil {
		return errors.New("ailink provider registry not configured")
	}
	providerID, cfg, err := s.Providers.resolveProvider(RoleGuidance)
	if err != nil {
		return err
	}
	_, err = s.Providers.selectCredential(providerID, cfg)
	return err
}

// Generate sends exactly one completion request. It never retries.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if s == nil || s.Providers == nil {
		return nil, errors.New("ailink provider registry not configured")
	}
	if strings.TrimSpace(req.User) == "" {
		return nil, errors.New("user prompt is required")
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = RoleGuidance
	}

	resolved, err := s.Providers.Resolve(role, req.Prompt, req.Model)
	if err != nil {
		return nil, err
	}

	driverReq := &driver.Request{Model: resolved.Model}
	if strings.TrimSpace(req.System) != "" {
		driverReq.Messages = append(driverReq.Messages, driver.Message{Role: driver.RoleSystem, Text: req.System})
	}
	driverReq.Messages = append(driverReq.Messages, driver.Message{Role: driver.RoleUser, Text: req.User})
	if req.MaxTokens > 0 {
		maxTokens := req.MaxTokens
		driverReq.MaxTokens = &maxTokens
	}
	if req.Temperature != nil {
		temperature := *req.Temperature
		driverReq.Temperature = &temperature
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout(req.Timeout))
	defer cancel()

	started := time.Now()
	resp, err := resolved.Driver.Complete(ctx, driverReq)
	if err != nil {
		return nil, err
	}

	text := resp.Text
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}

	return &GenerateResponse{
		Text:         text,
		Provider:     resolved.ProviderID,
		Model:        resolved.Model,
		FinishReason: resp.FinishReason,
		Usage:        resp.Usage,
		Duration:     time.Since(started),
	}, nil
}

func (s *Service) timeout(requested time.Duration) time.Duration {
	duration := s.Providers.cfg.DefaultTimeout
	if duration <= 0 {
		duration = defaultTimeout
	}
	if requested > 0 {
		duration = requested
	}
	if duration > maxTimeout {
		duration = maxTimeout
	}
	return duration
}
