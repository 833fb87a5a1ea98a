package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"campfire/internal/model"
)

// DecodeChecklist extracts the structured checklist from a final answer.
// Models routinely wrap JSON in markdown fences or surround it with
// prose, so the decoder locates the outermost object rather than
// requiring the whole text to be JSON. An error leaves the zero
// Checklist, which the safety critic blocks on its own.
func DecodeChecklist(text string) (model.Checklist, error) {
	var out model.Checklist

	candidate := stripFences(text)
	candidate = outerObject(candidate)
	if candidate == "" {
		return out, fmt.Errorf("no JSON object found")
	}
	if err := json.Unmarshal([]byte(candidate), &out); err != nil {
		return out, fmt.Errorf("decode checklist: %w", err)
	}
	return out, nil
}

// stripFences removes a surrounding ```json ... ``` (or bare ```) block
// if present.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		// drop the language tag line
		trimmed = trimmed[nl+1:]
	}
	if end := strings.LastIndex(trimmed, "```"); end >= 0 {
		trimmed = trimmed[:end]
	}
	return strings.TrimSpace(trimmed)
}

// outerObject returns the substring from the first '{' to the matching
// closing '}', or "" when the braces never balance. Brace counting
// ignores braces inside JSON strings.
func outerObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
