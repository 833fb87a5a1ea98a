package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Options for loading config.
type Options struct {
	ConfigPath   string
	SkipValidate bool
	// Overrides apply last (flags > env > file > defaults). Nil means no
	// CLI overrides.
	Overrides *Overrides
}

// Overrides holds CLI flag values that take precedence over
// env/file/defaults. Only non-nil fields are applied.
type Overrides struct {
	DBPath       *string
	DocsDir      *string
	Provider     *string
	BaseURL      *string
	Model        *string
	MaxToolCalls *int
	PolicyPath   *string
	AuditPath    *string
	LogLevel     *string
}

// Load builds config with precedence: defaults -> YAML file -> env vars
// -> Overrides. A missing config file is not an error; a malformed one
// is.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	// Optional local dotenv files for developer ergonomics. Precedence
	// stays: explicit env > .env.local > .env.
	for _, p := range []string{".env.local", ".env"} {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err != nil {
				return nil, fmt.Errorf("CONFIG_INVALID: failed loading %s: %w", p, err)
			}
		}
	}

	if opts.ConfigPath != "" {
		data, err := os.ReadFile(opts.ConfigPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("CONFIG_INVALID: cannot read config file %s: %w", opts.ConfigPath, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("CONFIG_INVALID: malformed YAML in %s: %w", opts.ConfigPath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if opts.Overrides != nil {
		applyOverrides(&cfg, opts.Overrides)
	}

	if !opts.SkipValidate {
		if err := Validate(&cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CAMPFIRE_DB_PATH"); v != "" {
		cfg.Corpus.DBPath = v
	}
	if v := os.Getenv("CAMPFIRE_DOCS_DIR"); v != "" {
		cfg.Corpus.DocsDir = v
	}
	if v := os.Getenv("CAMPFIRE_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("CAMPFIRE_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("CAMPFIRE_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("CAMPFIRE_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("CAMPFIRE_MAX_TOOL_CALLS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.Agent.MaxToolCalls = n
		}
	}
	if v := os.Getenv("CAMPFIRE_POLICY_PATH"); v != "" {
		cfg.Policy.Path = v
	}
	if v := os.Getenv("CAMPFIRE_AUDIT_PATH"); v != "" {
		cfg.Audit.Path = v
	}
	if v := os.Getenv("CAMPFIRE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func applyOverrides(cfg *Config, o *Overrides) {
	if o.DBPath != nil {
		cfg.Corpus.DBPath = *o.DBPath
	}
	if o.DocsDir != nil {
		cfg.Corpus.DocsDir = *o.DocsDir
	}
	if o.Provider != nil {
		cfg.LLM.Provider = *o.Provider
	}
	if o.BaseURL != nil {
		cfg.LLM.BaseURL = *o.BaseURL
	}
	if o.Model != nil {
		cfg.LLM.Model = *o.Model
	}
	if o.MaxToolCalls != nil {
		cfg.Agent.MaxToolCalls = *o.MaxToolCalls
	}
	if o.PolicyPath != nil {
		cfg.Policy.Path = *o.PolicyPath
	}
	if o.AuditPath != nil {
		cfg.Audit.Path = *o.AuditPath
	}
	if o.LogLevel != nil {
		cfg.Log.Level = *o.LogLevel
	}
}
