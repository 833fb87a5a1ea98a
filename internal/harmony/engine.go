// Package harmony drives the structured conversation protocol between an
// ordered turn list and a local model: rendering turns to the wire format
// the model consumes, parsing completions back into turns and tool calls,
// and running the bounded tool-call loop.
package harmony

import (
	"fmt"
	"strings"

	"campfire/internal/model"
)

// Engine owns one conversation. Ownership is exclusive: an Engine is not
// safe for concurrent use, and independent queries get independent
// engines. Tool registrations are immutable once made.
type Engine struct {
	tools    map[string]model.ToolDescriptor
	turns    []model.Turn
	maxTurns int
}

func NewEngine() *Engine {
	return &Engine{
		tools: make(map[string]model.ToolDescriptor),
	}
}

// NewTurn constructs a plain text turn, rejecting roles outside the four
// defined ones.
func NewTurn(role model.Role, text string) (model.Turn, error) {
	if !model.ValidRole(role) {
		return model.Turn{}, fmt.Errorf("%w: %q", model.ErrInvalidRole, role)
	}
	return model.Turn{Role: role, Text: text}, nil
}

// RegisterTool adds a tool descriptor to the session. Names are unique;
// a collision is a protocol error.
func (e *Engine) RegisterTool(desc model.ToolDescriptor) error {
	name := strings.TrimSpace(desc.Name)
	if name == "" {
		return fmt.Errorf("tool name is required")
	}
	if _, exists := e.tools[name]; exists {
		return fmt.Errorf("%w: %q", model.ErrDuplicateTool, name)
	}
	e.tools[name] = desc
	return nil
}

// Tool returns the registered descriptor for a name.
func (e *Engine) Tool(name string) (model.ToolDescriptor, bool) {
	desc, ok := e.tools[name]
	return desc, ok
}

// Append adds a turn to the conversation. Turns are append-only; callers
// must not mutate a turn after handing it over.
func (e *Engine) Append(turn model.Turn) error {
	if !model.ValidRole(turn.Role) {
		return fmt.Errorf("%w: %q", model.ErrInvalidRole, turn.Role)
	}
	e.turns = append(e.turns, turn)
	return nil
}

// Turns returns a copy of the conversation so far.
func (e *Engine) Turns() []model.Turn {
	out := make([]model.Turn, len(e.turns))
	copy(out, e.turns)
	return out
}

// Reset drops all turns but keeps tool registrations.
func (e *Engine) Reset() {
	e.turns = e.turns[:0]
}

// LimitHistory caps the conversation at maxTurns non-system turns. The
// loop trims before each model invocation; zero or negative disables the
// cap.
func (e *Engine) LimitHistory(maxTurns int) {
	e.maxTurns = maxTurns
}

// TrimHistory drops oldest non-system turns until at most maxTurns
// non-system turns remain. The system turn is exempt, and trimming never
// leaves an orphan tool-result turn at the head: a result whose
// originating call was evicted goes with it.
func (e *Engine) TrimHistory(maxTurns int) {
	if maxTurns <= 0 {
		return
	}
	for e.nonSystemCount() > maxTurns {
		idx := e.oldestNonSystem()
		if idx < 0 {
			return
		}
		removed := e.turns[idx]
		e.turns = append(e.turns[:idx], e.turns[idx+1:]...)

		if len(removed.Calls) > 0 {
			e.dropResultsFor(removed.Calls)
		}
	}
	// an orphan result at the head carries context for a call that no
	// longer exists; drop it as part of the same eviction.
	for {
		idx := e.oldestNonSystem()
		if idx < 0 || !e.turns[idx].IsToolResult() {
			return
		}
		if e.hasCallID(e.turns[idx].CallID) {
			return
		}
		e.turns = append(e.turns[:idx], e.turns[idx+1:]...)
	}
}

func (e *Engine) nonSystemCount() int {
	n := 0
	for _, t := range e.turns {
		if t.Role != model.RoleSystem {
			n++
		}
	}
	return n
}

func (e *Engine) oldestNonSystem() int {
	for i, t := range e.turns {
		if t.Role != model.RoleSystem {
			return i
		}
	}
	return -1
}

func (e *Engine) dropResultsFor(calls []model.ToolCall) {
	ids := make(map[string]struct{}, len(calls))
	for _, c := range calls {
		ids[c.ID] = struct{}{}
	}
	kept := e.turns[:0]
	for _, t := range e.turns {
		if t.IsToolResult() {
			if _, gone := ids[t.CallID]; gone {
				continue
			}
		}
		kept = append(kept, t)
	}
	e.turns = kept
}

func (e *Engine) hasCallID(id string) bool {
	if id == "" {
		return false
	}
	for _, t := range e.turns {
		for _, c := range t.Calls {
			if c.ID == id {
				return true
			}
		}
	}
	return false
}
