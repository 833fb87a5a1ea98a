package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ValidRole reports whether r is one of the four defined roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleSystem, RoleDeveloper, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Turn is one role-tagged unit of dialogue. Turns are append-only: once a
// turn enters a conversation it is never mutated, only the turn list grows
// or is trimmed from the oldest end.
//
// For assistant turns produced after a tool call, ToolName and CallID
// identify the tool-result this turn carries.
type Turn struct {
	Role     Role
	Text     string
	Calls    []ToolCall
	ToolName string
	CallID   string
}

// IsToolResult reports whether the turn carries the output of a tool call.
func (t Turn) IsToolResult() bool {
	return t.ToolName != ""
}

// ToolCall is a model-issued request to invoke a registered tool method.
// The call identifier correlates the subsequent tool-result turn.
type ToolCall struct {
	ID        string
	Recipient string
	Method    string
	Args      map[string]interface{}
}

// Target returns the "recipient.method" routing key for the call.
func (c ToolCall) Target() string {
	return c.Recipient + "." + c.Method
}

// ToolResult is the outcome of dispatching a single tool call. Content is
// the serialized payload fed back to the model; IsError marks tool-level
// failures the model is expected to adapt to.
type ToolResult struct {
	CallID    string
	Recipient string
	Method    string
	Content   string
	IsError   bool
}

// ParamType constrains tool method parameters to the primitive types the
// wire format can carry.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
)

// ToolParam is one named parameter of a tool method.
type ToolParam struct {
	Name     string
	Type     ParamType
	Required bool
}

// ToolMethod describes one invocable method of a tool.
type ToolMethod struct {
	Name        string
	Description string
	Params      []ToolParam
}

// ToolDescriptor describes a tool the model may call. Name doubles as the
// routing prefix in `to=name.method` headers. Descriptors are registered
// once per session and immutable afterwards.
type ToolDescriptor struct {
	Name    string
	Methods []ToolMethod
}

// Method returns the named method, if declared.
func (d ToolDescriptor) Method(name string) (ToolMethod, bool) {
	for _, m := range d.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return ToolMethod{}, false
}

// SearchHit is one ranked corpus match. Start/End are character offsets
// into the document, half-open.
type SearchHit struct {
	DocID   string  `json:"doc_id"`
	Title   string  `json:"doc_title,omitempty"`
	Start   int     `json:"start"`
	End     int     `json:"end"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}

// SourceRef cites a half-open character range [Loc[0], Loc[1]) in a corpus
// document.
type SourceRef struct {
	DocID string `json:"doc_id"`
	Loc   [2]int `json:"loc"`
}

// ChecklistStep is one cited, actionable unit of a final answer.
type ChecklistStep struct {
	Title   string     `json:"title"`
	Action  string     `json:"action"`
	Source  *SourceRef `json:"source,omitempty"`
	Caution string     `json:"caution,omitempty"`
}

// ChecklistMeta carries answer-level metadata the model supplies alongside
// the steps. The critic overwrites Disclaimer on ALLOW regardless of what
// the model produced.
type ChecklistMeta struct {
	Disclaimer          string `json:"disclaimer,omitempty"`
	WhenToCallEmergency string `json:"when_to_call_emergency,omitempty"`
}

// Checklist is the model's structured answer: an ordered list of cited
// steps plus metadata.
type Checklist struct {
	Steps []ChecklistStep `json:"checklist"`
	Meta  ChecklistMeta   `json:"meta"`
}

// Status is the terminal verdict of the safety critic.
type Status string

const (
	StatusAllow Status = "ALLOW"
	StatusBlock Status = "BLOCK"
)

// Decision is the sole artifact the core hands to the API layer. It is
// created once per answer and never mutated. Checklist is only populated
// on ALLOW so a blocked answer cannot leak unvalidated content.
type Decision struct {
	Status            Status     `json:"status"`
	Reasons           []string   `json:"reasons"`
	EmergencyDetected bool       `json:"emergency_detected"`
	Incomplete        bool       `json:"incomplete,omitempty"`
	Checklist         *Checklist `json:"checklist,omitempty"`
	Disclaimer        string     `json:"disclaimer,omitempty"`
	Banner            string     `json:"banner,omitempty"`
}

// Allowed reports whether the decision permits showing the answer.
func (d Decision) Allowed() bool {
	return d.Status == StatusAllow
}

// AuditRecord is the fire-and-forget decision record emitted toward the
// audit sink. QueryHash stands in for the raw query so logs carry no
// user text.
type AuditRecord struct {
	TimestampUnix     int64    `json:"ts_unix"`
	QueryHash         string   `json:"query_hash"`
	Status            Status   `json:"status"`
	Reasons           []string `json:"reasons"`
	EmergencyDetected bool     `json:"emergency_detected"`
	ToolCalls         int      `json:"tool_calls"`
	Incomplete        bool     `json:"incomplete"`
}

// CorpusStats summarizes the ingested corpus for status output.
type CorpusStats struct {
	Documents  int64            `json:"documents"`
	Chunks     int64            `json:"chunks"`
	TotalChars int64            `json:"total_chars"`
	ByDocID    map[string]int64 `json:"by_doc_id"`
}

// MarshalJSON encodes a nil ByDocID map as {} instead of null so clients
// that expect an object need no nil handling.
func (s CorpusStats) MarshalJSON() ([]byte, error) {
	type alias CorpusStats
	if s.ByDocID == nil {
		s.ByDocID = make(map[string]int64)
	}
	return json.Marshal(alias(s))
}

// ValidateSource checks the structural citation invariant 0 <= start < end.
// Document-length bounds are the critic's concern since they need corpus
// metadata.
func (r *SourceRef) ValidateSource() error {
	if r == nil {
		return fmt.Errorf("missing source")
	}
	if strings.TrimSpace(r.DocID) == "" {
		return fmt.Errorf("missing doc_id")
	}
	if r.Loc[0] < 0 || r.Loc[0] >= r.Loc[1] {
		return fmt.Errorf("invalid loc [%d, %d]: want 0 <= start < end", r.Loc[0], r.Loc[1])
	}
	return nil
}
