package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"campfire/internal/model"
)

// Store is the SQLite-backed corpus search provider. Documents hold the
// full text; an FTS5 index over overlapping chunk windows provides ranked
// search with character offsets back into the document.
//
// All offsets are rune offsets, half-open [start, end).
type Store struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return err
	}

	schema := `
CREATE TABLE IF NOT EXISTS documents (
  doc_id TEXT PRIMARY KEY,
  title TEXT NOT NULL DEFAULT '',
  text TEXT NOT NULL,
  length INTEGER NOT NULL
);

-- chunk windows carry their own offsets so a search hit can be cited
-- without re-deriving positions from the document text.
CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
  doc_id UNINDEXED,
  start UNINDEXED,
  end UNINDEXED,
  text
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// AddDocument upserts a document and rebuilds its chunk windows.
func (s *Store) AddDocument(ctx context.Context, docID, title, text string) error {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return err
	}
	docID = strings.TrimSpace(docID)
	if docID == "" {
		return errors.New("doc_id is required")
	}

	runes := []rune(text)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO documents(doc_id, title, text, length) VALUES(?, ?, ?, ?)
		 ON CONFLICT(doc_id) DO UPDATE SET
		   title=excluded.title,
		   text=excluded.text,
		   length=excluded.length`,
		docID,
		defaultIfEmpty(title, docID),
		text,
		len(runes),
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts WHERE doc_id = ?`, docID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks_fts(doc_id, start, end, text) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, w := range chunkWindows(runes, defaultChunkChars, defaultOverlapChars) {
		if _, err := stmt.ExecContext(ctx, docID, w.start, w.end, string(runes[w.start:w.end])); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Search returns up to k ranked chunk hits. An empty result set is valid
// and not an error; an unparseable query degrades to no results rather
// than surfacing FTS syntax errors to the caller.
func (s *Store) Search(ctx context.Context, query string, k int) ([]model.SearchHit, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 5
	}

	match := ftsMatchExpr(query)
	if match == "" {
		return []model.SearchHit{}, nil
	}

	rows, err := db.QueryContext(
		ctx,
		`SELECT c.doc_id, c.start, c.end,
		        snippet(chunks_fts, 3, '', '', '…', 24),
		        bm25(chunks_fts),
		        COALESCE(d.title, '')
		 FROM chunks_fts c
		 LEFT JOIN documents d ON d.doc_id = c.doc_id
		 WHERE chunks_fts MATCH ?
		 ORDER BY bm25(chunks_fts)
		 LIMIT ?`,
		match,
		k,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	hits := make([]model.SearchHit, 0, k)
	for rows.Next() {
		var (
			hit   model.SearchHit
			score float64
		)
		if err := rows.Scan(&hit.DocID, &hit.Start, &hit.End, &hit.Snippet, &score, &hit.Title); err != nil {
			return nil, err
		}
		// bm25 is lower-is-better; flip the sign so callers see a
		// descending relevance score.
		hit.Score = -score
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// Open returns the exact text span [start, end) of a document.
func (s *Store) Open(ctx context.Context, docID string, start, end int) (string, error) {
	text, err := s.documentText(ctx, docID)
	if err != nil {
		return "", err
	}
	runes := []rune(text)
	if start < 0 || end > len(runes) || start >= end {
		return "", fmt.Errorf("%w: [%d, %d) in %q (length %d)", model.ErrRangeOutOfBounds, start, end, docID, len(runes))
	}
	return string(runes[start:end]), nil
}

// Find returns the offset of the first case-insensitive match of pattern
// at or after the given position. A non-match is reported via the bool,
// never as an error.
func (s *Store) Find(ctx context.Context, docID, pattern string, after int) (int, bool, error) {
	text, err := s.documentText(ctx, docID)
	if err != nil {
		return 0, false, err
	}
	if pattern == "" {
		return 0, false, nil
	}

	runes := []rune(text)
	if after < 0 {
		after = 0
	}
	if after >= len(runes) {
		return 0, false, nil
	}

	haystack := strings.ToLower(string(runes[after:]))
	idx := strings.Index(haystack, strings.ToLower(pattern))
	if idx < 0 {
		return 0, false, nil
	}
	// idx is a byte offset into the lowered tail; convert back to runes.
	return after + len([]rune(haystack[:idx])), true, nil
}

// DocumentLength returns the rune length of a document, or ErrNotFound.
func (s *Store) DocumentLength(ctx context.Context, docID string) (int, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return 0, err
	}

	var length int
	row := db.QueryRowContext(ctx, `SELECT length FROM documents WHERE doc_id = ?`, docID)
	if err := row.Scan(&length); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: document %q", model.ErrNotFound, docID)
		}
		return 0, err
	}
	return length, nil
}

func (s *Store) Stats(ctx context.Context) (model.CorpusStats, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return model.CorpusStats{}, err
	}

	stats := model.CorpusStats{ByDocID: make(map[string]int64)}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(length), 0) FROM documents`).
		Scan(&stats.Documents, &stats.TotalChars); err != nil {
		return model.CorpusStats{}, err
	}

	rows, err := db.QueryContext(ctx, `SELECT doc_id, COUNT(*) FROM chunks_fts GROUP BY doc_id`)
	if err != nil {
		return model.CorpusStats{}, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			docID string
			n     int64
		)
		if err := rows.Scan(&docID, &n); err != nil {
			return model.CorpusStats{}, err
		}
		stats.ByDocID[docID] = n
		stats.Chunks += n
	}
	return stats, rows.Err()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) documentText(ctx context.Context, docID string) (string, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return "", err
	}

	var text string
	row := db.QueryRowContext(ctx, `SELECT text FROM documents WHERE doc_id = ?`, docID)
	if err := row.Scan(&text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: document %q", model.ErrNotFound, docID)
		}
		return "", err
	}
	return text, nil
}

func (s *Store) ensureDB(ctx context.Context) (*sql.DB, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errors.New("sqlite db not initialized")
	}
	return s.db, nil
}

// ftsMatchExpr turns free-form user text into a safe FTS5 match
// expression: bare alphanumeric tokens, each quoted, OR-joined. Anything
// else would let query punctuation reach the FTS parser as syntax.
func ftsMatchExpr(query string) string {
	tokens := strings.FieldsFunc(query, func(r rune) bool {
		return !isWordRune(r)
	})
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		quoted = append(quoted, `"`+tok+`"`)
	}
	return strings.Join(quoted, " OR ")
}

func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	default:
		return r > 127
	}
}

func defaultIfEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
