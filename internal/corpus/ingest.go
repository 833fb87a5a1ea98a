package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// IngestResult summarizes one ingest pass.
type IngestResult struct {
	Ingested int
	Skipped  int
}

// IngestDir loads every .txt and .md file under dir into the store. The
// document id is the path relative to dir with the extension dropped and
// separators normalized to '/'; the title is the first non-empty line.
func (s *Store) IngestDir(ctx context.Context, dir string, logger *zap.Logger) (IngestResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var result IngestResult
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			result.Skipped++
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		docID := docIDFromPath(rel)
		title := firstLine(string(data))

		if err := s.AddDocument(ctx, docID, title, string(data)); err != nil {
			return fmt.Errorf("ingest %s: %w", docID, err)
		}
		logger.Info("ingested document",
			zap.String("doc_id", docID),
			zap.Int("chars", len([]rune(string(data)))),
		)
		result.Ingested++
		return nil
	})
	return result, err
}

func docIDFromPath(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return rel
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line != "" {
			return line
		}
	}
	return ""
}
