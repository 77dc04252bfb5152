package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/quiver-labs/finagent/internal/config"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ModelProvider != config.ProviderOpenAI {
		t.Errorf("default provider = %q, want %q", cfg.ModelProvider, config.ProviderOpenAI)
	}
	if cfg.TruncationBytes != config.DefaultTruncationBytes {
		t.Errorf("TruncationBytes = %d, want %d", cfg.TruncationBytes, config.DefaultTruncationBytes)
	}
	if cfg.CallTimeoutSeconds != config.DefaultCallTimeoutSeconds {
		t.Errorf("CallTimeoutSeconds = %d, want %d", cfg.CallTimeoutSeconds, config.DefaultCallTimeoutSeconds)
	}
}

func TestFromEnv_InvalidProvider(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "bogus")
	if _, err := config.FromEnv(); err == nil {
		t.Error("expected error for invalid MODEL_PROVIDER")
	}
}

func TestFromEnv_OverridesBudgets(t *testing.T) {
	t.Setenv("FINAGENT_RETRY_BUDGET", "5")
	t.Setenv("FINAGENT_STEP_LIMIT", "100")

	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Safety.RetryBudget != 5 {
		t.Errorf("RetryBudget = %d, want 5", cfg.Safety.RetryBudget)
	}
	if cfg.GraphStepLimit != 100 {
		t.Errorf("GraphStepLimit = %d, want 100", cfg.GraphStepLimit)
	}
}

func writeYAML(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "finagent.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp yaml: %v", err)
	}
	return path
}

func TestFromEnvAndFile_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := config.FromEnvAndFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error for a missing config file: %v", err)
	}
	if cfg.TruncationBytes != config.DefaultTruncationBytes {
		t.Errorf("expected defaults to apply, got TruncationBytes=%d", cfg.TruncationBytes)
	}
}

func TestFromEnvAndFile_FileLayersUnderDefaults(t *testing.T) {
	path := writeYAML(t, "replan_budget: 3\ndisabled_tools: [\"web_search\"]\n")

	cfg, err := config.FromEnvAndFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Safety.ReplanBudget != 3 {
		t.Errorf("ReplanBudget = %d, want 3", cfg.Safety.ReplanBudget)
	}
	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "web_search" {
		t.Errorf("DisabledTools = %v, want [web_search]", cfg.DisabledTools)
	}
}

func TestFromEnvAndFile_EnvOverridesFile(t *testing.T) {
	path := writeYAML(t, "replan_budget: 3\n")
	t.Setenv("FINAGENT_REPLAN_BUDGET", "7")

	cfg, err := config.FromEnvAndFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Safety.ReplanBudget != 7 {
		t.Errorf("ReplanBudget = %d, want env override 7 to win over file value 3", cfg.Safety.ReplanBudget)
	}
}
