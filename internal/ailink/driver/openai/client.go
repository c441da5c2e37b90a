// Package openai talks to the OpenAI chat completions endpoint, or anything
// compatible with it, over plain HTTP.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kundliinsight/kundli/internal/ailink/driver"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	providerName   = "openai"
	// Completion bodies beyond this are truncated and fail to decode.
	maxResponseBytes = 4 << 20
)

var errNoAPIKey = errors.New("openai: api key is required")

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	// Timeout bounds each call when positive, on top of the caller's context.
	Timeout time.Duration
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL = strings.TrimSpace(baseURL); baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{BaseURL: baseURL, APIKey: strings.TrimSpace(apiKey)}
}

func (c *Client) Name() string { return providerName }

// Complete makes a single POST /chat/completions call. Non-2xx answers come
// back as *driver.ProviderError.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil || c.APIKey == "" {
		return nil, errNoAPIKey
	}
	payload, err := encodeRequest(req)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	endpoint := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	trace := driver.TraceEntry{
		Driver:      providerName,
		Endpoint:    endpoint,
		Method:      http.MethodPost,
		Model:       payload.Model,
		RequestBody: body,
		Timestamp:   time.Now().UTC(),
	}
	status, respBody, err := c.roundTrip(httpReq)
	trace.StatusCode = status
	trace.DurationMs = time.Since(trace.Timestamp).Milliseconds()
	if err != nil {
		trace.Error = err.Error()
		driver.Trace(trace)
		return nil, err
	}
	if json.Valid(respBody) {
		trace.Response = respBody
	}
	driver.Trace(trace)

	if status < 200 || status > 299 {
		return nil, &driver.ProviderError{Provider: providerName, StatusCode: status, Body: strings.TrimSpace(string(respBody))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return decodeResponse(&parsed)
}

func (c *Client) roundTrip(req *http.Request) (int, []byte, error) {
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}
