// Package model defines the single LLM client contract every graph node
// depends on. There is exactly one interface and exactly one place
// (cmd/finagent) that picks a concrete adapter; nodes receive a
// model.Provider by dependency injection and never reach for a
// package-level default.
package model

import "context"

// Request is the uniform shape every node builds to ask the model for a
// completion: a system prompt, a user prompt, and optional sampling
// knobs. Providers are free to represent this internally as a chat
// message list; callers never construct one.
type Request struct {
	SystemPrompt string
	UserPrompt   string

	// Temperature is nil when the node has no opinion and the provider's
	// own default should apply.
	Temperature *float32

	// MaxTokens is 0 when the node has no opinion (provider default).
	MaxTokens int
}

// Provider is the single LLM client interface consumed by every node.
// Any OpenAI-compatible endpoint or Anthropic Claude can implement it.
type Provider interface {
	// Complete sends req and returns the model's full text completion.
	Complete(ctx context.Context, req Request) (string, error)

	// Name identifies the provider/model for logging and trace lines.
	Name() string
}
