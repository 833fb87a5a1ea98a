package model

import "errors"

var (
	// ErrInvalidRole rejects turn construction outside the four defined roles.
	ErrInvalidRole = errors.New("invalid conversation role")

	// ErrDuplicateTool rejects registering two tools under one name.
	ErrDuplicateTool = errors.New("tool name already registered")

	// ErrUnknownTool marks a call routed to a name no registration covers.
	// This is a protocol error, not a silent no-op.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrMalformedOutput marks model output whose structured delimiters are
	// present but internally inconsistent. Well-formed free text never
	// produces it.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrRangeOutOfBounds marks an open() span that exceeds the document.
	ErrRangeOutOfBounds = errors.New("range out of bounds")

	// ErrNotFound marks a lookup for a document the corpus does not hold.
	ErrNotFound = errors.New("not found")
)

// ProviderError is a transport-level failure from a model runtime.
type ProviderError struct {
	Code       string
	Message    string
	Retryable  bool
	StatusCode int
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Message
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
