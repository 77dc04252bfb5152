package openai

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

// Config holds OpenAI-compatible LLM configuration. It is intentionally
// narrower than a general-purpose chat-completion client's config: no
// function-calling mode, no native-thinking detection — the finance
// engine only ever needs a single-shot (system, user) -> text
// completion.
type Config struct {
	APIKey      string   // API key for authentication
	BaseURL     string   // Base URL (default: https://api.openai.com/v1)
	Model       string   // Model name (default: gpt-4o)
	Temperature *float32 // Response creativity 0.0-2.0 (nil = API default)
	MaxTokens   int      // Max tokens in response, 0 = no limit
	MaxRetries  int      // Retries after any failed call (default: 1)
	HTTPTimeout int      // HTTP client timeout in seconds (default: 60)
}

// NewConfigFromEnv creates Config from environment variables.
// Expected env vars: LLM_API_KEY, LLM_BASE_URL, LLM_MODEL, LLM_TEMPERATURE,
// LLM_MAX_TOKENS, LLM_MAX_RETRIES, LLM_HTTP_TIMEOUT.
func NewConfigFromEnv() (*Config, error) {
	config := &Config{
		APIKey:      getEnvOrDefault("LLM_API_KEY", ""),
		BaseURL:     getEnvOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		Model:       getEnvOrDefault("LLM_MODEL", "gpt-4o"),
		Temperature: getEnvFloat32Ptr("LLM_TEMPERATURE"),
		MaxTokens:   getEnvIntOrDefault("LLM_MAX_TOKENS", 0),
		MaxRetries:  getEnvIntOrDefault("LLM_MAX_RETRIES", 1),
		HTTPTimeout: getEnvIntOrDefault("LLM_HTTP_TIMEOUT", 60),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required. Set it in .env or environment")
	}
	if c.Model == "" {
		return fmt.Errorf("LLM_MODEL cannot be empty")
	}
	if c.Temperature != nil && (*c.Temperature < 0.0 || *c.Temperature > 2.0) {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0.0 and 2.0, got %f", *c.Temperature)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES cannot be negative, got %d", c.MaxRetries)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvFloat32Ptr(key string) *float32 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			f := float32(parsed)
			return &f
		}
		log.Printf("[Config] WARNING: invalid value for %s=%q, ignoring", key, v)
	}
	return nil
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
		log.Printf("[Config] WARNING: invalid value for %s=%q, using default %d", key, v, defaultValue)
	}
	return defaultValue
}
