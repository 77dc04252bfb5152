// Package anthropic implements model.Provider on top of Anthropic's
// Claude Messages API via github.com/anthropics/anthropic-sdk-go,
// selected by the same configuration point as the OpenAI-compatible
// adapter.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/quiver-labs/finagent/internal/model"
)

// MessagesClient captures the subset of the Anthropic SDK used by the
// adapter, so tests can substitute a mock in place of *sdk.MessageService.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Client implements model.Provider on top of Anthropic Claude Messages.
type Client struct {
	msg         MessagesClient
	model       string
	maxTokens   int
	temperature float64
}

// Config configures the Anthropic adapter.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// NewClient constructs a Client from an API key and model identifier.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("anthropic: model identifier is required")
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	ac := sdk.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{
		msg:         &ac.Messages,
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Complete implements model.Provider.
func (c *Client) Complete(ctx context.Context, req model.Request) (string, error) {
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.UserPrompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: req.SystemPrompt}}
	}

	temp := c.temperature
	if req.Temperature != nil {
		temp = float64(*req.Temperature)
	}
	if temp > 0 {
		params.Temperature = sdk.Float(temp)
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages.new: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", errors.New("anthropic: response contained no text block")
}

// Name implements model.Provider.
func (c *Client) Name() string {
	return fmt.Sprintf("anthropic (%s)", c.model)
}
