// Package config loads runtime configuration with the precedence
// defaults -> YAML file -> environment -> CLI overrides.
package config

// Config is the full runtime configuration tree, mirrored 1:1 by the
// YAML file layout.
type Config struct {
	Version int    `yaml:"version"`
	Corpus  Corpus `yaml:"corpus"`
	LLM     LLM    `yaml:"llm"`
	Agent   Agent  `yaml:"agent"`
	Policy  Policy `yaml:"policy"`
	Audit   Audit  `yaml:"audit"`
	Log     Log    `yaml:"log"`
}

// Corpus locates the document store.
type Corpus struct {
	DBPath  string `yaml:"db_path"`
	DocsDir string `yaml:"docs_dir"`
}

// LLM selects and tunes the model runtime.
type LLM struct {
	Provider       string  `yaml:"provider"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"-"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
}

// Agent bounds the conversation loop.
type Agent struct {
	MaxToolCalls int `yaml:"max_tool_calls"`
	MaxTurns     int `yaml:"max_turns"`
	PrefetchK    int `yaml:"prefetch_k"`
}

// Policy points at the safety policy TOML. An empty path means built-in
// defaults.
type Policy struct {
	Path string `yaml:"path"`
}

// Audit controls the decision log.
type Audit struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Log controls structured logging.
type Log struct {
	Level string `yaml:"level"`
}
