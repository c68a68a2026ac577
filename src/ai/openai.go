package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nostrlabs/nostroracle/src/webclient"
)

const (
	openAIEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultModel   = "gpt-4o-mini"
)

// Client talks to the OpenAI chat completions API.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient returns nil when no API key is configured; callers treat a nil
// client as "provider unavailable" and fall back.
func NewClient(apiKey string, timeout time.Duration) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:     apiKey,
		model:      defaultModel,
		httpClient: webclient.NewDefault(timeout),
	}
}

// Complete runs a single system+user chat turn and returns the text reply.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	reqBody := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"max_tokens":  500,
		"temperature": 0.1,
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := webclient.PostJSON(ctx, c.httpClient, openAIEndpoint, headers, reqBody, &result); err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai: no response")
	}
	return result.Choices[0].Message.Content, nil
}
