package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"campfire/internal/agent"
	"campfire/internal/audit"
	"campfire/internal/config"
	"campfire/internal/corpus"
	"campfire/internal/critic"
	"campfire/internal/llm"
	"campfire/internal/model"
)

// app bundles the wired collaborators a command needs. Commands build
// one app, use it, and Close it.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *corpus.Store
	sink   model.AuditSink

	auditFile *audit.FileSink
}

func newApp() (*app, error) {
	cfg, err := config.Load(config.Options{
		ConfigPath: globalFlags.ConfigPath,
		Overrides:  flagOverrides(),
	})
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Log.Level, globalFlags.Quiet)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, sink: audit.NopSink{}}
	if cfg.Audit.Enabled {
		fileSink, err := audit.NewFileSink(cfg.Audit.Path, logger)
		if err != nil {
			logger.Warn("audit sink unavailable", zap.Error(err))
		} else {
			a.sink = fileSink
			a.auditFile = fileSink
		}
	}
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.auditFile != nil {
		_ = a.auditFile.Close()
	}
	_ = a.logger.Sync()
}

// openCorpus opens the document store read-write.
func (a *app) openCorpus(ctx context.Context) error {
	store := corpus.NewStore(a.cfg.Corpus.DBPath)
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("open corpus at %s: %w", a.cfg.Corpus.DBPath, err)
	}
	a.store = store
	return nil
}

// buildAgent assembles the full answer pipeline.
func (a *app) buildAgent(ctx context.Context) (*agent.Agent, error) {
	if a.store == nil {
		if err := a.openCorpus(ctx); err != nil {
			return nil, err
		}
	}

	mdl, err := llm.New(llm.Options{
		Provider:    a.cfg.LLM.Provider,
		BaseURL:     a.cfg.LLM.BaseURL,
		ModelName:   a.cfg.LLM.Model,
		APIKey:      a.cfg.LLM.APIKey,
		Timeout:     time.Duration(a.cfg.LLM.TimeoutSeconds) * time.Second,
		MaxTokens:   a.cfg.LLM.MaxTokens,
		Temperature: a.cfg.LLM.Temperature,
	})
	if err != nil {
		return nil, err
	}

	policy, err := critic.LoadPolicy(a.cfg.Policy.Path)
	if err != nil {
		return nil, err
	}
	gate := critic.New(policy, a.store, a.logger)

	return agent.New(mdl, a.store, gate, a.sink, a.logger, agent.Options{
		MaxToolCalls: a.cfg.Agent.MaxToolCalls,
		MaxTurns:     a.cfg.Agent.MaxTurns,
		PrefetchK:    a.cfg.Agent.PrefetchK,
	}), nil
}

func flagOverrides() *config.Overrides {
	o := &config.Overrides{}
	set := false
	if globalFlags.DBPath != "" {
		o.DBPath = &globalFlags.DBPath
		set = true
	}
	if globalFlags.DocsDir != "" {
		o.DocsDir = &globalFlags.DocsDir
		set = true
	}
	if globalFlags.Provider != "" {
		o.Provider = &globalFlags.Provider
		set = true
	}
	if globalFlags.BaseURL != "" {
		o.BaseURL = &globalFlags.BaseURL
		set = true
	}
	if globalFlags.Model != "" {
		o.Model = &globalFlags.Model
		set = true
	}
	if globalFlags.LogLevel != "" {
		o.LogLevel = &globalFlags.LogLevel
		set = true
	}
	if !set {
		return nil
	}
	return o
}

func newLogger(level string, quiet bool) (*zap.Logger, error) {
	if quiet {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}
