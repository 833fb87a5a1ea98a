// Package agent wires the conversation engine, the browser tool bridge,
// and the safety critic into the query path: one call in, one validated
// decision out.
package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"campfire/internal/browser"
	"campfire/internal/critic"
	"campfire/internal/harmony"
	"campfire/internal/model"
)

const systemPrompt = `You are an emergency guidance assistant that provides step-by-step checklists for household and community emergencies, grounded in an offline corpus of first-aid guidelines.

Requirements:
1. Respond with a structured checklist of clear, actionable steps.
2. Every step MUST cite a source from the document corpus: {"doc_id": "...", "loc": [start, end]}.
3. Use the browser tool (search, open, find) to locate and verify source text before citing it.
4. For life-threatening situations, always advise calling emergency services.

Format the final answer as JSON:
{
  "checklist": [
    {"title": "...", "action": "...", "source": {"doc_id": "...", "loc": [0, 0]}, "caution": "..."}
  ],
  "meta": {"when_to_call_emergency": "..."}
}`

// Options tune one Agent.
type Options struct {
	MaxToolCalls int
	MaxTurns     int
	PrefetchK    int
}

// Agent answers one query at a time. Instances hold only read-only
// collaborators, so one Agent may serve concurrent queries; each query
// gets its own conversation engine.
type Agent struct {
	model  model.Model
	corpus model.Corpus
	critic *critic.Critic
	audit  model.AuditSink
	logger *zap.Logger
	opts   Options
}

func New(mdl model.Model, corpus model.Corpus, gate *critic.Critic, audit model.AuditSink, logger *zap.Logger, opts Options) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxToolCalls <= 0 {
		opts.MaxToolCalls = 5
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 40
	}
	if opts.PrefetchK <= 0 {
		opts.PrefetchK = 3
	}
	return &Agent{
		model:  mdl,
		corpus: corpus,
		critic: gate,
		audit:  audit,
		logger: logger,
		opts:   opts,
	}
}

// Answer runs the full pipeline for one user query. Transport failures
// from the model runtime surface as errors; everything else, including
// malformed or unsafe answers, comes back as a BLOCK decision. A blocked
// decision carries no checklist.
func (a *Agent) Answer(ctx context.Context, query string) (model.Decision, error) {
	engine := harmony.NewEngine()
	engine.LimitHistory(a.opts.MaxTurns)
	bridge := browser.NewBridge(a.corpus, a.logger)
	if err := engine.RegisterTool(bridge.Descriptor()); err != nil {
		return model.Decision{}, err
	}

	sys, err := harmony.NewTurn(model.RoleSystem, systemPrompt)
	if err != nil {
		return model.Decision{}, err
	}
	if err := engine.Append(sys); err != nil {
		return model.Decision{}, err
	}

	if !a.model.SupportsStructured() {
		// free-text runtimes never issue tool calls, so relevant corpus
		// passages are prefetched into a developer turn instead.
		dev, prefetchErr := a.prefetchContext(ctx, query)
		if prefetchErr != nil {
			a.logger.Warn("context prefetch failed", zap.Error(prefetchErr))
		} else if dev.Text != "" {
			if err := engine.Append(dev); err != nil {
				return model.Decision{}, err
			}
		}
	}

	userTurn, err := harmony.NewTurn(model.RoleUser, query)
	if err != nil {
		return model.Decision{}, err
	}

	started := time.Now()
	result, err := engine.RunTurn(ctx, userTurn, a.model, bridge, a.opts.MaxToolCalls)
	if err != nil {
		return model.Decision{}, err
	}
	a.logger.Debug("conversation loop finished",
		zap.Int("tool_calls", result.ToolCalls),
		zap.Bool("incomplete", result.Incomplete),
		zap.Duration("elapsed", time.Since(started)),
	)

	answer, decodeErr := DecodeChecklist(result.Final.Text)
	decision := a.critic.Review(ctx, query, answer)
	decision.Incomplete = result.Incomplete

	if decodeErr != nil && decision.Status == model.StatusBlock {
		decision.Reasons = append(
			[]string{fmt.Sprintf("final answer is not a valid checklist: %v", decodeErr)},
			decision.Reasons...,
		)
	}

	a.recordAudit(ctx, query, decision, result.ToolCalls)
	return decision, nil
}

// prefetchContext runs a corpus search for the raw query and packs the
// top hits into a developer turn the model can cite from.
func (a *Agent) prefetchContext(ctx context.Context, query string) (model.Turn, error) {
	hits, err := a.corpus.Search(ctx, query, a.opts.PrefetchK)
	if err != nil {
		return model.Turn{}, err
	}
	if len(hits) == 0 {
		return model.Turn{Role: model.RoleDeveloper}, nil
	}

	var b strings.Builder
	b.WriteString("Context passages from the corpus. Cite them with their doc_id and loc offsets.\n")
	for _, hit := range hits {
		text, openErr := a.corpus.Open(ctx, hit.DocID, hit.Start, hit.End)
		if openErr != nil {
			text = hit.Snippet
		}
		fmt.Fprintf(&b, "\n[doc_id=%s loc=[%d, %d)]\n%s\n", hit.DocID, hit.Start, hit.End, text)
	}
	return model.Turn{Role: model.RoleDeveloper, Text: b.String()}, nil
}

func (a *Agent) recordAudit(ctx context.Context, query string, decision model.Decision, toolCalls int) {
	if a.audit == nil {
		return
	}
	sum := sha256.Sum256([]byte(query))
	a.audit.Record(ctx, model.AuditRecord{
		TimestampUnix:     time.Now().Unix(),
		QueryHash:         hex.EncodeToString(sum[:8]),
		Status:            decision.Status,
		Reasons:           decision.Reasons,
		EmergencyDetected: decision.EmergencyDetected,
		ToolCalls:         toolCalls,
		Incomplete:        decision.Incomplete,
	})
}
