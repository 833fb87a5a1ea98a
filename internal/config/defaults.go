package config

import "path/filepath"

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Version: 1,
		Corpus: Corpus{
			DBPath:  filepath.Join(".campfire", "corpus.db"),
			DocsDir: "docs",
		},
		LLM: LLM{
			Provider:       "ollama",
			BaseURL:        "",
			Model:          "llama3.1:8b",
			TimeoutSeconds: 120,
			MaxTokens:      2048,
			Temperature:    0.1,
		},
		Agent: Agent{
			MaxToolCalls: 5,
			MaxTurns:     40,
			PrefetchK:    3,
		},
		Policy: Policy{
			Path: "",
		},
		Audit: Audit{
			Enabled: true,
			Path:    filepath.Join(".campfire", "audit.jsonl"),
		},
		Log: Log{
			Level: "info",
		},
	}
}
