// Package browser exposes the document corpus to the model as a named
// tool with exactly three methods: search, open, and find.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"campfire/internal/model"
)

const (
	// ToolName is the recipient prefix the model addresses.
	ToolName = "browser"

	methodSearch = "search"
	methodOpen   = "open"
	methodFind   = "find"

	defaultSearchK = 5
	maxSearchK     = 25
)

type handler func(ctx context.Context, args map[string]interface{}) (interface{}, *toolError)

// Bridge adapts a corpus into the browser tool. The method set is
// closed: dispatch resolves through an explicit registry keyed by method
// name and rejects anything outside it.
type Bridge struct {
	corpus  model.Corpus
	logger  *zap.Logger
	methods map[string]handler
}

func NewBridge(corpus model.Corpus, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{corpus: corpus, logger: logger}
	b.methods = map[string]handler{
		methodSearch: b.handleSearch,
		methodOpen:   b.handleOpen,
		methodFind:   b.handleFind,
	}
	return b
}

// Descriptor declares the tool surface registered with the conversation
// engine.
func (b *Bridge) Descriptor() model.ToolDescriptor {
	return model.ToolDescriptor{
		Name: ToolName,
		Methods: []model.ToolMethod{
			{
				Name:        methodSearch,
				Description: "search the document corpus",
				Params: []model.ToolParam{
					{Name: "q", Type: model.ParamString, Required: true},
					{Name: "k", Type: model.ParamInteger},
				},
			},
			{
				Name:        methodOpen,
				Description: "read an exact text span from a document",
				Params: []model.ToolParam{
					{Name: "doc_id", Type: model.ParamString, Required: true},
					{Name: "start", Type: model.ParamInteger, Required: true},
					{Name: "end", Type: model.ParamInteger, Required: true},
				},
			},
			{
				Name:        methodFind,
				Description: "find the next pattern match in a document",
				Params: []model.ToolParam{
					{Name: "doc_id", Type: model.ParamString, Required: true},
					{Name: "pattern", Type: model.ParamString, Required: true},
					{Name: "after", Type: model.ParamInteger},
				},
			},
		},
	}
}

// Dispatch consumes one tool call and always yields exactly one result.
// Tool-level failures (bad arguments, out-of-range spans) come back as
// error results the model can react to; they never abort the query.
func (b *Bridge) Dispatch(ctx context.Context, call model.ToolCall) model.ToolResult {
	h, ok := b.methods[call.Method]
	if !ok {
		return b.errorResult(call, &toolError{
			Code:    "METHOD_NOT_FOUND",
			Message: fmt.Sprintf("unknown method: %s.%s", call.Recipient, call.Method),
		})
	}

	payload, toolErr := h(ctx, call.Args)
	if toolErr != nil {
		b.logger.Debug("tool call failed",
			zap.String("target", call.Target()),
			zap.String("code", toolErr.Code),
			zap.String("message", toolErr.Message),
		)
		return b.errorResult(call, toolErr)
	}

	return model.ToolResult{
		CallID:    call.ID,
		Recipient: ToolName,
		Method:    call.Method,
		Content:   marshalPayload(payload),
	}
}

func (b *Bridge) handleSearch(ctx context.Context, args map[string]interface{}) (interface{}, *toolError) {
	if err := assertNoUnknownArguments(args, map[string]struct{}{"q": {}, "k": {}}); err != nil {
		return nil, &toolError{Code: "INVALID_FIELD", Message: err.Error()}
	}

	q, ok, err := parseRequiredString(args, "q")
	if err != nil {
		return nil, &toolError{Code: "INVALID_FIELD", Message: err.Error()}
	}
	if !ok {
		return nil, &toolError{Code: "MISSING_FIELD", Message: "q is required"}
	}

	k := defaultSearchK
	if raw, present := args["k"]; present {
		k, err = parseInteger(raw, "k")
		if err != nil {
			return nil, &toolError{Code: "INVALID_FIELD", Message: err.Error()}
		}
	}
	if k < 1 || k > maxSearchK {
		return nil, &toolError{Code: "INVALID_RANGE", Message: fmt.Sprintf("k must be between 1 and %d", maxSearchK)}
	}

	hits, searchErr := b.corpus.Search(ctx, q, k)
	if searchErr != nil {
		return nil, &toolError{Code: "CORPUS_ERROR", Message: searchErr.Error()}
	}

	// an empty result set is a valid answer, not an error: the model is
	// expected to rephrase or finish without this lead.
	results := make([]searchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, searchResult{
			DocID:   hit.DocID,
			Title:   hit.Title,
			Snippet: hit.Snippet,
			Loc:     [2]int{hit.Start, hit.End},
			Score:   hit.Score,
		})
	}
	return searchPayload{Query: q, TotalResults: len(results), Results: results}, nil
}

func (b *Bridge) handleOpen(ctx context.Context, args map[string]interface{}) (interface{}, *toolError) {
	if err := assertNoUnknownArguments(args, map[string]struct{}{"doc_id": {}, "start": {}, "end": {}}); err != nil {
		return nil, &toolError{Code: "INVALID_FIELD", Message: err.Error()}
	}

	docID, ok, err := parseRequiredString(args, "doc_id")
	if err != nil {
		return nil, &toolError{Code: "INVALID_FIELD", Message: err.Error()}
	}
	if !ok {
		return nil, &toolError{Code: "MISSING_FIELD", Message: "doc_id is required"}
	}
	start, ok, err := parseRequiredInteger(args, "start")
	if err != nil {
		return nil, &toolError{Code: "INVALID_FIELD", Message: err.Error()}
	}
	if !ok {
		return nil, &toolError{Code: "MISSING_FIELD", Message: "start is required"}
	}
	end, ok, err := parseRequiredInteger(args, "end")
	if err != nil {
		return nil, &toolError{Code: "INVALID_FIELD", Message: err.Error()}
	}
	if !ok {
		return nil, &toolError{Code: "MISSING_FIELD", Message: "end is required"}
	}

	text, openErr := b.corpus.Open(ctx, docID, start, end)
	if openErr != nil {
		switch {
		case errors.Is(openErr, model.ErrRangeOutOfBounds):
			return nil, &toolError{Code: "RANGE_OUT_OF_BOUNDS", Message: openErr.Error()}
		case errors.Is(openErr, model.ErrNotFound):
			return nil, &toolError{Code: "NOT_FOUND", Message: openErr.Error()}
		default:
			return nil, &toolError{Code: "CORPUS_ERROR", Message: openErr.Error()}
		}
	}

	return openPayload{DocID: docID, Loc: [2]int{start, end}, Text: text}, nil
}

func (b *Bridge) handleFind(ctx context.Context, args map[string]interface{}) (interface{}, *toolError) {
	if err := assertNoUnknownArguments(args, map[string]struct{}{"doc_id": {}, "pattern": {}, "after": {}}); err != nil {
		return nil, &toolError{Code: "INVALID_FIELD", Message: err.Error()}
	}

	docID, ok, err := parseRequiredString(args, "doc_id")
	if err != nil {
		return nil, &toolError{Code: "INVALID_FIELD", Message: err.Error()}
	}
	if !ok {
		return nil, &toolError{Code: "MISSING_FIELD", Message: "doc_id is required"}
	}
	pattern, ok, err := parseRequiredString(args, "pattern")
	if err != nil {
		return nil, &toolError{Code: "INVALID_FIELD", Message: err.Error()}
	}
	if !ok {
		return nil, &toolError{Code: "MISSING_FIELD", Message: "pattern is required"}
	}

	after := 0
	if raw, present := args["after"]; present {
		after, err = parseInteger(raw, "after")
		if err != nil {
			return nil, &toolError{Code: "INVALID_FIELD", Message: err.Error()}
		}
	}
	if after < 0 {
		return nil, &toolError{Code: "INVALID_RANGE", Message: "after must be >= 0"}
	}

	offset, found, findErr := b.corpus.Find(ctx, docID, pattern, after)
	if findErr != nil {
		if errors.Is(findErr, model.ErrNotFound) {
			return nil, &toolError{Code: "NOT_FOUND", Message: findErr.Error()}
		}
		return nil, &toolError{Code: "CORPUS_ERROR", Message: findErr.Error()}
	}

	// a non-match is an explicit payload, never an error.
	payload := findPayload{DocID: docID, Pattern: pattern, After: after, Found: found}
	if found {
		payload.Offset = &offset
	}
	return payload, nil
}

func (b *Bridge) errorResult(call model.ToolCall, toolErr *toolError) model.ToolResult {
	return model.ToolResult{
		CallID:    call.ID,
		Recipient: ToolName,
		Method:    call.Method,
		Content:   marshalPayload(map[string]interface{}{"error": toolErr}),
		IsError:   true,
	}
}

type toolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type searchResult struct {
	DocID   string  `json:"doc_id"`
	Title   string  `json:"doc_title,omitempty"`
	Snippet string  `json:"snippet"`
	Loc     [2]int  `json:"loc"`
	Score   float64 `json:"score,omitempty"`
}

type searchPayload struct {
	Query        string         `json:"query"`
	TotalResults int            `json:"total_results"`
	Results      []searchResult `json:"results"`
}

type openPayload struct {
	DocID string `json:"doc_id"`
	Loc   [2]int `json:"loc"`
	Text  string `json:"text"`
}

type findPayload struct {
	DocID   string `json:"doc_id"`
	Pattern string `json:"pattern"`
	After   int    `json:"after"`
	Found   bool   `json:"found"`
	Offset  *int   `json:"offset,omitempty"`
}

func marshalPayload(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `{"error":{"code":"ENCODING","message":"unencodable tool payload"}}`
	}
	return string(data)
}
