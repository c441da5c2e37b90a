// Package driver is the provider-neutral surface for chat completion
// backends. Guidance only ever sends text, so messages are plain strings.
package driver

import (
	"context"
	"fmt"
	"net/http"
)

// Driver sends one completion request to a provider.
type Driver interface {
	Name() string
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type Message struct {
	Role string
	Text string
}

// Request is a provider-neutral completion request. Nil knobs leave the
// provider default in place.
type Request struct {
	Model       string
	Messages    []Message
	Temperature *float64
	MaxTokens   *int
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response carries the first completion choice.
type Response struct {
	Text         string
	FinishReason string
	Usage        *Usage
}

// ProviderError is a non-2xx answer from a provider. Body is the response
// text and never includes request headers.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Unauthorized reports a rejected credential.
func (e *ProviderError) Unauthorized() bool {
	return e != nil && (e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

func (e *ProviderError) Throttled() bool {
	return e != nil && e.StatusCode == http.StatusTooManyRequests
}
