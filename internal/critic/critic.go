// Package critic is the terminal safety gate: it decides whether an
// assembled answer may be shown, independent of how it was produced.
package critic

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"campfire/internal/model"
)

// CorpusMeta is the slice of corpus the critic needs: document existence
// and length for citation bounds. Read-only and safe for concurrent use.
type CorpusMeta interface {
	DocumentLength(ctx context.Context, docID string) (int, error)
}

// Critic validates answers against the loaded policy. It has no side
// effects: the decision is a pure function of (query, answer, corpus
// metadata, policy).
type Critic struct {
	policy Policy
	corpus CorpusMeta
	logger *zap.Logger
}

func New(policy Policy, corpus CorpusMeta, logger *zap.Logger) *Critic {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Critic{policy: policy, corpus: corpus, logger: logger}
}

// Review inspects the fully assembled answer plus the original user
// query and returns the allow/block decision.
//
// All checks run and all reasons are collected; nothing short-circuits,
// so operators see every violation in one pass. Malformed answers BLOCK
// with a reason describing the malformation; Review never fails.
func (c *Critic) Review(ctx context.Context, query string, answer model.Checklist) model.Decision {
	var reasons []string

	reasons = append(reasons, c.checkStructure(answer)...)
	reasons = append(reasons, c.checkCitations(ctx, answer)...)
	reasons = append(reasons, c.checkScope(answer)...)

	emergency := len(c.policy.EmergencyMatches(query)) > 0

	decision := model.Decision{
		Reasons:           reasons,
		EmergencyDetected: emergency,
	}

	if len(reasons) > 0 {
		decision.Status = model.StatusBlock
		c.logger.Info("answer blocked",
			zap.Int("steps", len(answer.Steps)),
			zap.Strings("reasons", reasons),
			zap.Bool("emergency", emergency),
		)
		return decision
	}

	decision.Status = model.StatusAllow
	decision.Reasons = []string{"answer meets all safety criteria"}

	// the critic owns the disclaimer; whatever the model put in meta is
	// replaced, never trusted.
	allowed := answer
	allowed.Meta.Disclaimer = c.policy.Disclaimer
	decision.Checklist = &allowed
	decision.Disclaimer = c.policy.Disclaimer
	if emergency {
		decision.Banner = c.policy.EmergencyBanner
	}

	c.logger.Info("answer allowed",
		zap.Int("steps", len(answer.Steps)),
		zap.Bool("emergency", emergency),
	)
	return decision
}

func (c *Critic) checkStructure(answer model.Checklist) []string {
	var reasons []string
	if len(answer.Steps) == 0 {
		reasons = append(reasons, "answer contains no actionable steps")
	}
	for i, step := range answer.Steps {
		if strings.TrimSpace(step.Title) == "" {
			reasons = append(reasons, fmt.Sprintf("step %d has no title", i+1))
		}
		if strings.TrimSpace(step.Action) == "" {
			reasons = append(reasons, fmt.Sprintf("step %d has no action", i+1))
		}
	}
	return reasons
}

// checkCitations enforces: every step carries a source with a known
// doc_id and a half-open range 0 <= start < end <= document length.
func (c *Critic) checkCitations(ctx context.Context, answer model.Checklist) []string {
	if !c.policy.CitationRequired {
		return nil
	}

	var reasons []string
	for i, step := range answer.Steps {
		if err := step.Source.ValidateSource(); err != nil {
			reasons = append(reasons, fmt.Sprintf("step %d: %v", i+1, err))
			continue
		}

		length, err := c.corpusLength(ctx, step.Source.DocID)
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("step %d cites unknown document %q", i+1, step.Source.DocID))
			continue
		}
		if step.Source.Loc[1] > length {
			reasons = append(reasons, fmt.Sprintf(
				"step %d citation [%d, %d) exceeds document %q length %d",
				i+1, step.Source.Loc[0], step.Source.Loc[1], step.Source.DocID, length,
			))
		}
	}
	return reasons
}

// checkScope scans every text field of the answer against the blocked
// phrase denylist. This is literal matching, not semantic
// classification; false positives are the accepted safer failure mode.
func (c *Critic) checkScope(answer model.Checklist) []string {
	var parts []string
	for _, step := range answer.Steps {
		parts = append(parts, step.Title, step.Action, step.Caution)
	}
	parts = append(parts, answer.Meta.WhenToCallEmergency)

	matched := c.policy.BlockedMatches(strings.Join(parts, " "))
	if len(matched) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("contains out-of-scope medical terms: %s", strings.Join(matched, ", "))}
}

func (c *Critic) corpusLength(ctx context.Context, docID string) (int, error) {
	if c.corpus == nil {
		return 0, fmt.Errorf("no corpus metadata")
	}
	return c.corpus.DocumentLength(ctx, docID)
}
