package openai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kundliinsight/kundli/internal/ailink/driver"
)

// Chat completions request and response bodies, limited to the fields used.

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			// Null for refusals and filtered output.
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *driver.Usage `json:"usage,omitempty"`
}

func encodeRequest(req *driver.Request) (*chatRequest, error) {
	switch {
	case req == nil:
		return nil, errors.New("request is required")
	case strings.TrimSpace(req.Model) == "":
		return nil, errors.New("model is required")
	case len(req.Messages) == 0:
		return nil, errors.New("messages are required")
	}

	out := &chatRequest{
		Model:       req.Model,
		Messages:    make([]chatMessage, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for i, m := range req.Messages {
		if m.Role != driver.RoleSystem && m.Role != driver.RoleUser {
			return nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
		out.Messages[i] = chatMessage{Role: m.Role, Content: m.Text}
	}
	return out, nil
}

// decodeResponse takes the first choice. Null content becomes "" so the
// caller decides what an empty answer means.
func decodeResponse(resp *chatResponse) (*driver.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty response choices")
	}
	first := resp.Choices[0]
	out := &driver.Response{FinishReason: first.FinishReason, Usage: resp.Usage}
	if first.Message.Content != nil {
		out.Text = *first.Message.Content
	}
	return out, nil
}
