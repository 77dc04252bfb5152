// Package openai implements model.Provider using the OpenAI-compatible
// chat completions protocol: retry-and-timeout wrapping around
// github.com/sashabaranov/go-openai, narrowed to the engine's
// single-shot completion contract.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"log"

	"github.com/quiver-labs/finagent/internal/model"
	openailib "github.com/sashabaranov/go-openai"
)

// Client implements model.Provider over any OpenAI-compatible endpoint.
type Client struct {
	client *openailib.Client
	config *Config
}

// NewClient creates a new OpenAI-compatible client.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clientConfig := openailib.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	httpTimeout := time.Duration(config.HTTPTimeout) * time.Second
	clientConfig.HTTPClient = &http.Client{Timeout: httpTimeout}

	return &Client{
		client: openailib.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// NewClientFromEnv creates a client using environment variables.
func NewClientFromEnv() (*Client, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	return NewClient(config)
}

// Complete implements model.Provider.
func (c *Client) Complete(ctx context.Context, req model.Request) (string, error) {
	msgs := []openailib.ChatCompletionMessage{
		{Role: openailib.ChatMessageRoleSystem, Content: req.SystemPrompt},
		{Role: openailib.ChatMessageRoleUser, Content: req.UserPrompt},
	}

	apiReq := openailib.ChatCompletionRequest{
		Model:    c.config.Model,
		Messages: msgs,
	}
	if req.Temperature != nil {
		apiReq.Temperature = *req.Temperature
	} else if c.config.Temperature != nil {
		apiReq.Temperature = *c.config.Temperature
	}
	if req.MaxTokens > 0 {
		apiReq.MaxTokens = req.MaxTokens
	} else if c.config.MaxTokens > 0 {
		apiReq.MaxTokens = c.config.MaxTokens
	}

	var resp openailib.ChatCompletionResponse
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		resp, lastErr = c.client.CreateChatCompletion(ctx, apiReq)
		if lastErr == nil {
			break
		}
		if attempt < c.config.MaxRetries {
			wait := time.Duration(attempt+1) * time.Second
			log.Printf("[model/openai] retry %d/%d after %v, error: %v", attempt+1, c.config.MaxRetries, wait, lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("LLM call failed after %d retries: %w", c.config.MaxRetries, lastErr)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from LLM")
	}
	return resp.Choices[0].Message.Content, nil
}

// Name implements model.Provider.
func (c *Client) Name() string {
	return fmt.Sprintf("openai-compatible (%s)", c.config.Model)
}
