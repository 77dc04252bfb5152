// Package config assembles the engine's run-time configuration — model
// provider selection, safety budgets, and the StepExecutor's truncation
// cap — from environment variables, following the same getEnvOrDefault
// style as internal/model/openai.Config. An optional YAML file (yaml.go)
// layers additional, rarely-changing settings (tool-catalog toggles)
// underneath the environment, which always takes precedence.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/quiver-labs/finagent/internal/budget"
)

// DefaultTruncationBytes is the default cap on a DATA step's serialized
// result size before truncation.
const DefaultTruncationBytes = 256 * 1024

// DefaultCallTimeoutSeconds is the default per-LLM/tool-call timeout.
const DefaultCallTimeoutSeconds = 60

// Provider selects which model.Provider adapter cmd/finagent constructs.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Config is the engine's assembled run-time configuration.
type Config struct {
	ModelProvider Provider

	Safety budget.Safety

	TruncationBytes    int
	CallTimeoutSeconds int

	GraphStepLimit int

	// DisabledTools names registered tools the planner's catalog should
	// exclude regardless of credential availability. Populated only by
	// an optional YAML file layer (see FromEnvAndFile); empty by
	// default.
	DisabledTools []string
}

// FromEnv builds a Config from environment variables, applying defaults
// for anything unset.
//
// Recognized variables:
//   - MODEL_PROVIDER: "openai" (default) or "anthropic".
//   - FINAGENT_RETRY_BUDGET, FINAGENT_REPLAN_BUDGET, FINAGENT_STEP_LIMIT:
//     override the safety budgets.
//   - FINAGENT_TRUNCATION_BYTES: override the DATA step size cap.
//   - FINAGENT_CALL_TIMEOUT_SECONDS: override the per-call timeout.
func FromEnv() (*Config, error) {
	provider := Provider(getEnvOrDefault("MODEL_PROVIDER", string(ProviderOpenAI)))
	if provider != ProviderOpenAI && provider != ProviderAnthropic {
		return nil, fmt.Errorf("MODEL_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderAnthropic, provider)
	}

	safety := budget.NewSafety()
	safety.RetryBudget = getEnvIntOrDefault("FINAGENT_RETRY_BUDGET", safety.RetryBudget)
	safety.ReplanBudget = getEnvIntOrDefault("FINAGENT_REPLAN_BUDGET", safety.ReplanBudget)
	safety.StepLimit = getEnvIntOrDefault("FINAGENT_STEP_LIMIT", safety.StepLimit)

	cfg := &Config{
		ModelProvider:      provider,
		Safety:             safety,
		TruncationBytes:    getEnvIntOrDefault("FINAGENT_TRUNCATION_BYTES", DefaultTruncationBytes),
		CallTimeoutSeconds: getEnvIntOrDefault("FINAGENT_CALL_TIMEOUT_SECONDS", DefaultCallTimeoutSeconds),
		GraphStepLimit:     safety.StepLimit,
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}
