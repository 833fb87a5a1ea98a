package harmony

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"campfire/internal/model"
)

// Parser splits raw model output into structured turns. Two variants
// exist behind this interface: the structured parser for runtimes that
// emit tool-call delimiters, and the free-text parser for runtimes that
// cannot. Selection happens once, from the model capability flag, never
// by string-sniffing in business logic.
type Parser interface {
	Parse(output string) ([]model.Turn, error)
}

// ParserFor picks the parser variant matching the model's capability.
func ParserFor(structured bool) Parser {
	if structured {
		return &StructuredParser{NewCallID: uuid.NewString}
	}
	return FreeTextParser{}
}

// FreeTextParser treats the entire output as one final assistant answer.
// It never fails and never produces tool calls.
type FreeTextParser struct{}

func (FreeTextParser) Parse(output string) ([]model.Turn, error) {
	return []model.Turn{{
		Role: model.RoleAssistant,
		Text: strings.TrimSpace(output),
	}}, nil
}

// StructuredParser understands the wire format of Render. NewCallID mints
// correlation identifiers for extracted tool calls; tests may inject a
// deterministic generator.
type StructuredParser struct {
	NewCallID func() string
}

// Parse splits a completion into assistant turns and tool-call requests,
// in emission order.
//
// A completion with no message delimiter anywhere is treated as a
// well-formed free-text final answer, per the rule that ambiguous
// boundaries degrade to free text rather than guessing a structured
// parse. ErrMalformedOutput is returned only when structured delimiters
// are present but inconsistent: a tool-call header without a message
// body, or argument JSON that does not decode.
func (p *StructuredParser) Parse(output string) ([]model.Turn, error) {
	if !strings.Contains(output, tokMessage) {
		if hasToolHeader(output) {
			return nil, fmt.Errorf("%w: tool-call header without message body", model.ErrMalformedOutput)
		}
		return FreeTextParser{}.Parse(output)
	}

	turns := make([]model.Turn, 0, 2)
	for _, seg := range splitSegments(output) {
		turn, ok, err := p.parseSegment(seg)
		if err != nil {
			return nil, err
		}
		if ok {
			turns = append(turns, turn)
		}
	}
	if len(turns) == 0 {
		return FreeTextParser{}.Parse(output)
	}
	return turns, nil
}

// splitSegments cuts the completion at turn boundaries. The first
// segment has no <|start|> prefix: it continues the open assistant
// header the render ended with.
func splitSegments(output string) []string {
	parts := strings.Split(output, tokStart)
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		segments = append(segments, part)
	}
	return segments
}

// parseSegment handles one "HEADER<|message|>BODY<|terminator|>" unit.
// The bool result is false for segments that carry nothing (e.g. a bare
// terminator echo).
func (p *StructuredParser) parseSegment(seg string) (model.Turn, bool, error) {
	header, body, found := strings.Cut(seg, tokMessage)
	if !found {
		if hasToolHeader(seg) {
			return model.Turn{}, false, fmt.Errorf("%w: tool-call header without message body", model.ErrMalformedOutput)
		}
		// stray text between turns; treat as assistant prose
		text := trimTerminators(seg)
		if text == "" {
			return model.Turn{}, false, nil
		}
		return model.Turn{Role: model.RoleAssistant, Text: text}, true, nil
	}

	target, isCall := toolTarget(header)
	body = trimTerminators(body)

	if !isCall {
		if body == "" {
			return model.Turn{}, false, nil
		}
		return model.Turn{Role: model.RoleAssistant, Text: body}, true, nil
	}

	recipient, method, found := strings.Cut(target, ".")
	if !found || recipient == "" || method == "" {
		return model.Turn{}, false, fmt.Errorf("%w: invalid tool target %q", model.ErrMalformedOutput, target)
	}

	args := map[string]interface{}{}
	if body != "" {
		if err := json.Unmarshal([]byte(body), &args); err != nil {
			return model.Turn{}, false, fmt.Errorf("%w: tool arguments for %s: %v", model.ErrMalformedOutput, target, err)
		}
	}

	call := model.ToolCall{
		ID:        p.newCallID(),
		Recipient: recipient,
		Method:    method,
		Args:      args,
	}
	return model.Turn{Role: model.RoleAssistant, Calls: []model.ToolCall{call}}, true, nil
}

func (p *StructuredParser) newCallID() string {
	if p.NewCallID != nil {
		return p.NewCallID()
	}
	return uuid.NewString()
}

// toolTarget extracts the recipient of a `to=` header field, ignoring
// role names and channel annotations around it.
func toolTarget(header string) (string, bool) {
	for _, field := range strings.Fields(header) {
		if target, ok := strings.CutPrefix(field, "to="); ok {
			// a constrain annotation may be glued to the target
			if i := strings.Index(target, "<|"); i >= 0 {
				target = target[:i]
			}
			return strings.TrimSpace(target), true
		}
	}
	return "", false
}

func hasToolHeader(s string) bool {
	target, ok := toolTarget(s)
	return ok && target != "" && target != "assistant"
}

func trimTerminators(s string) string {
	for _, tok := range []string{tokCall, tokEnd, tokReturn} {
		s = strings.ReplaceAll(s, tok, "")
	}
	// constrain annotations may leak ahead of the message token when
	// runtimes echo partial headers; they carry no content.
	s = strings.ReplaceAll(s, tokConstrain+"json", "")
	return strings.TrimSpace(s)
}
