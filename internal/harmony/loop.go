package harmony

import (
	"context"
	"fmt"

	"campfire/internal/model"
)

// RunResult is the outcome of one bounded request/response loop.
type RunResult struct {
	// Final is the last assistant answer text, possibly empty when the
	// budget ran out before the model produced one.
	Final model.Turn
	// ToolCalls counts dispatched calls.
	ToolCalls int
	// Incomplete marks a loop cut off by the tool-call budget; the
	// answer is partial and downstream validation decides its fate.
	Incomplete bool
}

// RunTurn appends the user turn and drives render → invoke → parse →
// dispatch until the model emits a final answer or the tool-call budget
// is exhausted. The budget is a hard ceiling: a model that keeps calling
// tools terminates with a partial result flagged incomplete rather than
// looping. Cancellation is honored between iterations so a cancelled
// query never leaves a dangling call without its result turn. When a
// history cap is set via LimitHistory, the oldest turns are evicted
// before each invocation.
func (e *Engine) RunTurn(ctx context.Context, userTurn model.Turn, mdl model.Model, bridge model.ToolBridge, maxToolCalls int) (RunResult, error) {
	if mdl == nil {
		return RunResult{}, fmt.Errorf("model is required")
	}
	if maxToolCalls <= 0 {
		maxToolCalls = 1
	}
	if err := e.Append(userTurn); err != nil {
		return RunResult{}, err
	}

	parser := ParserFor(mdl.SupportsStructured())
	result := RunResult{}

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		e.TrimHistory(e.maxTurns)

		prompt, stops := e.Render()
		output, err := mdl.Invoke(ctx, prompt, stops)
		if err != nil {
			return result, fmt.Errorf("model invoke: %w", err)
		}

		turns, err := parser.Parse(output)
		if err != nil {
			return result, err
		}

		var pending []model.ToolCall
		for _, turn := range turns {
			if err := e.Append(turn); err != nil {
				return result, err
			}
			pending = append(pending, turn.Calls...)
		}

		if len(pending) == 0 {
			result.Final = e.lastAnswer()
			return result, nil
		}

		// every parsed call is dispatched in emission order so each call
		// turn gets exactly one result turn, even when a runtime ignores
		// the call stop marker and emits several calls in one completion.
		for _, call := range pending {
			if _, registered := e.tools[call.Recipient]; !registered {
				return result, fmt.Errorf("%w: %q", model.ErrUnknownTool, call.Recipient)
			}
			if bridge == nil || bridge.Descriptor().Name != call.Recipient {
				return result, fmt.Errorf("%w: no bridge for %q", model.ErrUnknownTool, call.Recipient)
			}

			if result.ToolCalls >= maxToolCalls {
				result.Incomplete = true
				result.Final = e.lastAnswer()
				return result, nil
			}
			result.ToolCalls++

			toolResult := bridge.Dispatch(ctx, call)
			if err := e.Append(model.Turn{
				Role:     model.RoleAssistant,
				Text:     toolResult.Content,
				ToolName: toolResult.Recipient + "." + toolResult.Method,
				CallID:   toolResult.CallID,
			}); err != nil {
				return result, err
			}
		}
	}
}

// lastAnswer returns the newest assistant turn carrying plain answer
// text, skipping tool results and call requests.
func (e *Engine) lastAnswer() model.Turn {
	for i := len(e.turns) - 1; i >= 0; i-- {
		t := e.turns[i]
		if t.Role == model.RoleAssistant && !t.IsToolResult() && len(t.Calls) == 0 && t.Text != "" {
			return t
		}
	}
	return model.Turn{Role: model.RoleAssistant}
}
