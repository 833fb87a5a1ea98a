// Package audit persists decision records as JSON lines. The sink sits
// off the answer path: a failed write is logged and dropped, never
// surfaced to the caller.
package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"campfire/internal/model"
)

// FileSink appends one JSON line per decision to a log file. Safe for
// concurrent use.
type FileSink struct {
	mu     sync.Mutex
	file   *os.File
	logger *zap.Logger
}

// NewFileSink opens (or creates) the audit log at path, creating parent
// directories as needed.
func NewFileSink(path string, logger *zap.Logger) (*FileSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileSink{file: f, logger: logger}, nil
}

// Record appends rec to the log. Errors are swallowed after logging.
func (s *FileSink) Record(_ context.Context, rec model.AuditRecord) {
	line, err := json.Marshal(rec)
	if err != nil {
		s.logger.Warn("audit record not encodable", zap.Error(err))
		return
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return
	}
	if _, err := s.file.Write(line); err != nil {
		s.logger.Warn("audit write failed", zap.Error(err))
	}
}

// Close flushes and closes the underlying file. Further Record calls
// become no-ops.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// NopSink discards every record. Used when auditing is disabled.
type NopSink struct{}

func (NopSink) Record(context.Context, model.AuditRecord) {}
