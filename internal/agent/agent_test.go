package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"campfire/internal/critic"
	"campfire/internal/model"
)

type memCorpus struct {
	docID string
	text  string
}

func (c *memCorpus) Search(_ context.Context, _ string, _ int) ([]model.SearchHit, error) {
	return []model.SearchHit{{
		DocID:   c.docID,
		Title:   "Severe bleeding",
		Start:   0,
		End:     len([]rune(c.text)),
		Snippet: c.text[:20],
	}}, nil
}

func (c *memCorpus) Open(_ context.Context, docID string, start, end int) (string, error) {
	if docID != c.docID {
		return "", fmt.Errorf("%w: document %q", model.ErrNotFound, docID)
	}
	runes := []rune(c.text)
	if start < 0 || end > len(runes) || start >= end {
		return "", fmt.Errorf("%w: [%d, %d)", model.ErrRangeOutOfBounds, start, end)
	}
	return string(runes[start:end]), nil
}

func (c *memCorpus) Find(_ context.Context, docID, pattern string, after int) (int, bool, error) {
	if docID != c.docID {
		return 0, false, fmt.Errorf("%w: document %q", model.ErrNotFound, docID)
	}
	idx := strings.Index(c.text[after:], pattern)
	if idx < 0 {
		return 0, false, nil
	}
	return after + idx, true, nil
}

func (c *memCorpus) DocumentLength(_ context.Context, docID string) (int, error) {
	if docID != c.docID {
		return 0, fmt.Errorf("%w: document %q", model.ErrNotFound, docID)
	}
	return len([]rune(c.text)), nil
}

func (c *memCorpus) Stats(context.Context) (model.CorpusStats, error) {
	return model.CorpusStats{Documents: 1}, nil
}

func (c *memCorpus) Close() error { return nil }

type scriptedModel struct {
	script     []string
	structured bool
	invoked    int
	prompts    []string
	err        error
}

func (m *scriptedModel) Invoke(_ context.Context, prompt string, _ []string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.prompts = append(m.prompts, prompt)
	idx := m.invoked
	if idx >= len(m.script) {
		idx = len(m.script) - 1
	}
	m.invoked++
	return m.script[idx], nil
}

func (m *scriptedModel) SupportsStructured() bool { return m.structured }

type captureSink struct {
	records []model.AuditRecord
}

func (s *captureSink) Record(_ context.Context, rec model.AuditRecord) {
	s.records = append(s.records, rec)
}

func newTestAgent(mdl model.Model, corpus *memCorpus, sink model.AuditSink) *Agent {
	gate := critic.New(critic.DefaultPolicy(), corpus, nil)
	return New(mdl, corpus, gate, sink, nil, Options{MaxToolCalls: 3, PrefetchK: 2})
}

func goodAnswerJSON(docID string, docLen int) string {
	return fmt.Sprintf(`{
  "checklist": [
    {"title": "Apply direct pressure", "action": "Press firmly on the area with a clean cloth.", "source": {"doc_id": %q, "loc": [0, %d]}}
  ],
  "meta": {"when_to_call_emergency": "Bleeding does not slow after ten minutes of pressure."}
}`, docID, docLen)
}

func TestAnswerEndToEndStructured(t *testing.T) {
	corpus := &memCorpus{
		docID: "bleeding/severe",
		text:  "Apply firm, direct pressure to the area with a clean cloth or bandage until help arrives.",
	}
	mdl := &scriptedModel{structured: true, script: []string{
		` to=browser.search<|constrain|>json<|message|>{"q":"severe bleeding"}<|call|>`,
		goodAnswerJSON(corpus.docID, 80),
	}}
	sink := &captureSink{}
	ag := newTestAgent(mdl, corpus, sink)

	decision, err := ag.Answer(context.Background(), "deep cut with severe bleeding")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if decision.Status != model.StatusAllow {
		t.Fatalf("blocked: %v", decision.Reasons)
	}
	if !decision.EmergencyDetected || decision.Banner == "" {
		t.Fatal("emergency state not surfaced")
	}
	if decision.Checklist == nil || len(decision.Checklist.Steps) != 1 {
		t.Fatalf("checklist: %+v", decision.Checklist)
	}

	if len(sink.records) != 1 {
		t.Fatalf("audit records: %d", len(sink.records))
	}
	rec := sink.records[0]
	if rec.Status != model.StatusAllow || rec.ToolCalls != 1 || !rec.EmergencyDetected {
		t.Fatalf("audit record: %+v", rec)
	}
	if rec.QueryHash == "" || strings.Contains(rec.QueryHash, "bleeding") {
		t.Fatalf("query hash must be opaque: %q", rec.QueryHash)
	}
}

func TestAnswerFreeTextPrefetchesContext(t *testing.T) {
	corpus := &memCorpus{
		docID: "bleeding/severe",
		text:  "Apply firm, direct pressure to the area with a clean cloth or bandage until help arrives.",
	}
	mdl := &scriptedModel{structured: false, script: []string{
		goodAnswerJSON(corpus.docID, 80),
	}}
	ag := newTestAgent(mdl, corpus, &captureSink{})

	decision, err := ag.Answer(context.Background(), "bad cut on leg")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if decision.Status != model.StatusAllow {
		t.Fatalf("blocked: %v", decision.Reasons)
	}
	if len(mdl.prompts) != 1 {
		t.Fatalf("invocations: %d", len(mdl.prompts))
	}
	// the developer turn carries the prefetched passage with its citation key
	if !strings.Contains(mdl.prompts[0], "doc_id=bleeding/severe") {
		t.Fatal("prefetched context missing from prompt")
	}
}

func TestAnswerBoundsConversationHistory(t *testing.T) {
	corpus := &memCorpus{
		docID: "bleeding/severe",
		text:  "Apply firm, direct pressure to the area with a clean cloth or bandage until help arrives.",
	}
	mdl := &scriptedModel{structured: true, script: []string{
		` to=browser.search<|constrain|>json<|message|>{"q":"cuts"}<|call|>`,
		goodAnswerJSON(corpus.docID, 80),
	}}
	gate := critic.New(critic.DefaultPolicy(), corpus, nil)
	ag := New(mdl, corpus, gate, &captureSink{}, nil, Options{MaxToolCalls: 3, MaxTurns: 2})

	decision, err := ag.Answer(context.Background(), "bad cut on leg")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if decision.Status != model.StatusAllow {
		t.Fatalf("blocked: %v", decision.Reasons)
	}
	if len(mdl.prompts) != 2 {
		t.Fatalf("invocations: %d", len(mdl.prompts))
	}
	// with a cap of two turns the user turn is evicted after the call
	// and its result land, so the second prompt no longer carries it
	if !strings.Contains(mdl.prompts[0], "bad cut on leg") {
		t.Fatal("first prompt missing the query")
	}
	if strings.Contains(mdl.prompts[1], "bad cut on leg") {
		t.Fatal("history cap not applied between invocations")
	}
}

func TestAnswerBlocksUndecodableFinal(t *testing.T) {
	corpus := &memCorpus{docID: "d", text: "text"}
	mdl := &scriptedModel{structured: true, script: []string{
		"I am sorry, I cannot produce a checklist.",
	}}
	sink := &captureSink{}
	ag := newTestAgent(mdl, corpus, sink)

	decision, err := ag.Answer(context.Background(), "question")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if decision.Status != model.StatusBlock {
		t.Fatal("undecodable answer allowed")
	}
	if !strings.Contains(decision.Reasons[0], "not a valid checklist") {
		t.Fatalf("first reason must name the decode failure: %v", decision.Reasons)
	}
	if len(sink.records) != 1 || sink.records[0].Status != model.StatusBlock {
		t.Fatal("blocked decision not audited")
	}
}

func TestAnswerSurfacesModelFailure(t *testing.T) {
	corpus := &memCorpus{docID: "d", text: "text"}
	provErr := &model.ProviderError{Code: "TRANSPORT", Message: "connection refused", Retryable: true}
	mdl := &scriptedModel{structured: true, err: provErr}
	ag := newTestAgent(mdl, corpus, &captureSink{})

	_, err := ag.Answer(context.Background(), "question")
	var got *model.ProviderError
	if !errors.As(err, &got) {
		t.Fatalf("want ProviderError, got %v", err)
	}
}
