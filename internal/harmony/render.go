package harmony

import (
	"encoding/json"
	"sort"
	"strings"

	"campfire/internal/model"
)

// Wire tokens of the conversation format. A completion halts on any stop
// marker; the marker itself may or may not be echoed back by the runtime.
const (
	tokStart     = "<|start|>"
	tokMessage   = "<|message|>"
	tokEnd       = "<|end|>"
	tokCall      = "<|call|>"
	tokReturn    = "<|return|>"
	tokConstrain = "<|constrain|>"
)

// StopMarkers returns the markers the model must halt on. A fresh slice
// is returned each call so callers cannot corrupt shared state.
func StopMarkers() []string {
	return []string{tokCall, tokEnd, tokReturn}
}

// Render serializes the conversation into the exact text the model
// consumes: the tool manifest once at the start (tools sorted by name),
// then every turn in order, ending with an open assistant header for the
// completion. Rendering is deterministic: identical state yields a
// byte-identical string.
func (e *Engine) Render() (string, []string) {
	var b strings.Builder

	if manifest := e.renderToolManifest(); manifest != "" {
		b.WriteString(tokStart)
		b.WriteString("developer")
		b.WriteString(tokMessage)
		b.WriteString(manifest)
		b.WriteString(tokEnd)
	}

	for _, turn := range e.turns {
		renderTurn(&b, turn)
	}

	b.WriteString(tokStart)
	b.WriteString("assistant")

	return b.String(), StopMarkers()
}

func renderTurn(b *strings.Builder, turn model.Turn) {
	switch {
	case turn.IsToolResult():
		b.WriteString(tokStart)
		b.WriteString(turn.ToolName)
		b.WriteString(" to=assistant")
		if turn.CallID != "" {
			b.WriteString(" id=")
			b.WriteString(turn.CallID)
		}
		b.WriteString(tokMessage)
		b.WriteString(turn.Text)
		b.WriteString(tokEnd)

	case len(turn.Calls) > 0:
		if strings.TrimSpace(turn.Text) != "" {
			b.WriteString(tokStart)
			b.WriteString(string(turn.Role))
			b.WriteString(tokMessage)
			b.WriteString(turn.Text)
			b.WriteString(tokEnd)
		}
		for _, call := range turn.Calls {
			b.WriteString(tokStart)
			b.WriteString(string(turn.Role))
			b.WriteString(" to=")
			b.WriteString(call.Target())
			b.WriteString(tokConstrain)
			b.WriteString("json")
			b.WriteString(tokMessage)
			b.WriteString(canonicalArgs(call.Args))
			b.WriteString(tokCall)
		}

	default:
		b.WriteString(tokStart)
		b.WriteString(string(turn.Role))
		b.WriteString(tokMessage)
		b.WriteString(turn.Text)
		b.WriteString(tokEnd)
	}
}

// renderToolManifest lists every registered tool in a fixed, readable
// namespace syntax. Sorted by tool name so registration order cannot
// perturb the render.
func (e *Engine) renderToolManifest() string {
	if len(e.tools) == 0 {
		return ""
	}

	names := make([]string, 0, len(e.tools))
	for name := range e.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("# Tools\n")
	for _, name := range names {
		desc := e.tools[name]
		b.WriteString("namespace ")
		b.WriteString(desc.Name)
		b.WriteString(" {\n")
		for _, method := range desc.Methods {
			b.WriteString("  ")
			b.WriteString(method.Name)
			b.WriteString("(")
			for i, p := range method.Params {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(p.Name)
				b.WriteString(": ")
				b.WriteString(string(p.Type))
			}
			b.WriteString(")")
			if method.Description != "" {
				b.WriteString(" // ")
				b.WriteString(method.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("}\n")
	}
	return b.String()
}

// canonicalArgs marshals tool-call arguments with encoding/json, whose
// sorted map keys keep renders byte-stable for identical args.
func canonicalArgs(args map[string]interface{}) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}
