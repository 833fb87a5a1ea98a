package model

import "context"

// Corpus is the read side of the document store: ranked full-text search,
// exact span retrieval, and forward pattern search. Implementations must
// support concurrent read-only lookups.
type Corpus interface {
	Search(ctx context.Context, query string, k int) ([]SearchHit, error)
	Open(ctx context.Context, docID string, start, end int) (string, error)
	Find(ctx context.Context, docID, pattern string, after int) (int, bool, error)
	DocumentLength(ctx context.Context, docID string) (int, error)
	Stats(ctx context.Context) (CorpusStats, error)
	Close() error
}

// Model is the token/text contract with the underlying runtime. Invoke
// blocks until the model halts on a stop marker or finishes; transport
// failures come back as *ProviderError and are not retried inside the
// core. SupportsStructured selects the structured tool-call parser over
// the free-text fallback.
type Model interface {
	Invoke(ctx context.Context, prompt string, stops []string) (string, error)
	SupportsStructured() bool
}

// ToolBridge adapts an external capability into a named, schema-described
// tool. Dispatch consumes one call and always yields exactly one result;
// tool-level failures are reported via ToolResult.IsError, never as a Go
// error, so the model can adapt and retry.
type ToolBridge interface {
	Descriptor() ToolDescriptor
	Dispatch(ctx context.Context, call ToolCall) ToolResult
}

// AuditSink receives decision records fire-and-forget. Implementations
// must not block the answer path; persistence failures are theirs to
// swallow.
type AuditSink interface {
	Record(ctx context.Context, rec AuditRecord)
}
