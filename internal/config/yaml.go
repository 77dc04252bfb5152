package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config's tunable fields in a typed struct carrying
// yaml tags. It is a layer under environment variables, not a
// replacement for them: env vars always win when both set the same field
// (see ApplyFile).
type fileConfig struct {
	ModelProvider string `yaml:"model_provider"`

	RetryBudget  *int `yaml:"retry_budget"`
	ReplanBudget *int `yaml:"replan_budget"`
	StepLimit    *int `yaml:"step_limit"`

	TruncationBytes    *int `yaml:"truncation_bytes"`
	CallTimeoutSeconds *int `yaml:"call_timeout_seconds"`

	// DisabledTools names registered tools to exclude from the planner's
	// catalog even when their credentials are present — e.g. to keep a
	// rate-limited vendor out of rotation.
	DisabledTools []string `yaml:"disabled_tools"`
}

// LoadYAMLFile reads a YAML config file at path and returns the parsed
// fileConfig. A missing file is not an error — it returns a zero-value
// fileConfig, so callers can unconditionally layer it under FromEnv's
// defaults without a separate existence check.
func LoadYAMLFile(path string) (*fileConfig, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &fileConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return &fc, nil
}

// ApplyFile layers fc under cfg: a field already set by an environment
// variable (FromEnv) is left untouched; a field only the file specifies
// is adopted. This keeps env vars as the authoritative override surface
// while still letting operators check in a versioned YAML file for
// budgets and tool-catalog toggles that rarely change between
// deployments.
func (cfg *Config) ApplyFile(fc *fileConfig, envSet map[string]bool) {
	if fc == nil {
		return
	}
	if fc.ModelProvider != "" && !envSet["MODEL_PROVIDER"] {
		cfg.ModelProvider = Provider(fc.ModelProvider)
	}
	if fc.RetryBudget != nil && !envSet["FINAGENT_RETRY_BUDGET"] {
		cfg.Safety.RetryBudget = *fc.RetryBudget
	}
	if fc.ReplanBudget != nil && !envSet["FINAGENT_REPLAN_BUDGET"] {
		cfg.Safety.ReplanBudget = *fc.ReplanBudget
	}
	if fc.StepLimit != nil && !envSet["FINAGENT_STEP_LIMIT"] {
		cfg.Safety.StepLimit = *fc.StepLimit
		cfg.GraphStepLimit = *fc.StepLimit
	}
	if fc.TruncationBytes != nil && !envSet["FINAGENT_TRUNCATION_BYTES"] {
		cfg.TruncationBytes = *fc.TruncationBytes
	}
	if fc.CallTimeoutSeconds != nil && !envSet["FINAGENT_CALL_TIMEOUT_SECONDS"] {
		cfg.CallTimeoutSeconds = *fc.CallTimeoutSeconds
	}
	cfg.DisabledTools = append(cfg.DisabledTools, fc.DisabledTools...)
}

// EnvSetFlags reports which of the recognized environment variables were
// actually set in the process environment, for use with ApplyFile's
// override-precedence check.
func EnvSetFlags() map[string]bool {
	names := []string{
		"MODEL_PROVIDER",
		"FINAGENT_RETRY_BUDGET",
		"FINAGENT_REPLAN_BUDGET",
		"FINAGENT_STEP_LIMIT",
		"FINAGENT_TRUNCATION_BYTES",
		"FINAGENT_CALL_TIMEOUT_SECONDS",
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := os.LookupEnv(n); ok {
			set[n] = true
		}
	}
	return set
}

// FromEnvAndFile builds a Config from environment variables (FromEnv)
// and then layers a YAML file's values under it via ApplyFile. path may
// be empty, in which case this is equivalent to FromEnv.
func FromEnvAndFile(path string) (*Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}
	fc, err := LoadYAMLFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyFile(fc, EnvSetFlags())
	return cfg, nil
}
