package config

import (
	"fmt"
	"strings"
)

// LLMProviders lists accepted llm.provider values.
var LLMProviders = []string{"ollama", "vllm", "lmstudio"}

// LogLevels lists accepted log.level values.
var LogLevels = []string{"debug", "info", "warn", "error"}

// Validate checks required fields and enum constraints. Errors carry a
// CONFIG_INVALID prefix so the CLI can map them to exit code 2.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("CONFIG_INVALID: nil config")
	}
	if strings.TrimSpace(cfg.Corpus.DBPath) == "" {
		return fmt.Errorf("CONFIG_INVALID: corpus.db_path is required")
	}
	if !stringIn(strings.ToLower(cfg.LLM.Provider), LLMProviders) {
		return fmt.Errorf("CONFIG_INVALID: llm.provider=%q; allowed: %s", cfg.LLM.Provider, strings.Join(LLMProviders, ", "))
	}
	if strings.TrimSpace(cfg.LLM.Model) == "" {
		return fmt.Errorf("CONFIG_INVALID: llm.model is required")
	}
	if cfg.LLM.TimeoutSeconds < 0 {
		return fmt.Errorf("CONFIG_INVALID: llm.timeout_seconds must be >= 0, got %d", cfg.LLM.TimeoutSeconds)
	}
	if cfg.Agent.MaxToolCalls <= 0 {
		return fmt.Errorf("CONFIG_INVALID: agent.max_tool_calls must be > 0, got %d", cfg.Agent.MaxToolCalls)
	}
	if cfg.Agent.MaxTurns < 0 {
		return fmt.Errorf("CONFIG_INVALID: agent.max_turns must be >= 0, got %d", cfg.Agent.MaxTurns)
	}
	if !stringIn(strings.ToLower(cfg.Log.Level), LogLevels) {
		return fmt.Errorf("CONFIG_INVALID: log.level=%q; allowed: %s", cfg.Log.Level, strings.Join(LogLevels, ", "))
	}
	if cfg.Audit.Enabled && strings.TrimSpace(cfg.Audit.Path) == "" {
		return fmt.Errorf("CONFIG_INVALID: audit.path is required when audit is enabled")
	}
	return nil
}

func stringIn(value string, allowed []string) bool {
	for _, candidate := range allowed {
		if value == candidate {
			return true
		}
	}
	return false
}
