package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // pure Go driver, no cgo
)

// SQLiteIndex is a LexicalIndex backed by SQLite FTS5 bm25().
type SQLiteIndex struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	size   int
	closed bool
}

// NewSQLiteIndex indexes docs into an FTS5 table. An empty path uses an
// in-memory database; otherwise the file at path is replaced.
func NewSQLiteIndex(ctx context.Context, path string, docs []string) (*SQLiteIndex, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to clear stale index %s: %w", p, err)
			}
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// :memory: databases are per connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = -16384",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteIndex{db: db, path: path, size: len(docs)}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.indexAll(ctx, docs); err != nil {
		_ = db.Close()
		return nil, err
	}

	slog.Debug("sqlite_index_built",
		slog.String("path", path),
		slog.Int("documents", len(docs)))

	return s, nil
}

func (s *SQLiteIndex) initSchema(ctx context.Context) error {
	// unicode61 folds case and splits on punctuation, so scores can differ
	// from the okapi backend on such tokens. Diacritics are kept (ё != е).
	schema := `
	CREATE VIRTUAL TABLE IF NOT EXISTS fts_content USING fts5(
		doc_id UNINDEXED,
		content,
		tokenize="unicode61 remove_diacritics 0"
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteIndex) indexAll(ctx context.Context, docs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO fts_content(doc_id, content) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare FTS statement: %w", err)
	}
	defer stmt.Close()

	for i, doc := range docs {
		if _, err := stmt.ExecContext(ctx, strconv.Itoa(i), strings.Join(Tokenize(doc), " ")); err != nil {
			return fmt.Errorf("failed to index document %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// ftsQuery OR-joins the query tokens as quoted FTS5 strings.
func ftsQuery(query string) string {
	tokens := Tokenize(query)
	quoted := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		quoted = append(quoted, `"`+strings.ReplaceAll(tok, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// Scores implements LexicalIndex.
func (s *SQLiteIndex) Scores(ctx context.Context, query string) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errClosed("lexical")
	}

	scores := make([]float64, s.size)
	match := ftsQuery(query)
	if match == "" || s.size == 0 {
		return scores, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, bm25(fts_content) AS score
		FROM fts_content
		WHERE content MATCH ?
		ORDER BY score
	`, match)
	if err != nil {
		// FTS5 rejects some queries (e.g. bare punctuation tokens); no match
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return scores, nil
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var docID string
		var score float64
		if err := rows.Scan(&docID, &score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		pos, err := strconv.Atoi(docID)
		if err != nil || pos < 0 || pos >= s.size {
			continue
		}
		// bm25() is negative; lower is better
		scores[pos] = -score
	}

	return scores, rows.Err()
}

// Len implements LexicalIndex.
func (s *SQLiteIndex) Len() int {
	return s.size
}

// Backend implements LexicalIndex.
func (s *SQLiteIndex) Backend() string {
	return string(LexicalBackendSQLite)
}

// Close implements LexicalIndex.
func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

var _ LexicalIndex = (*SQLiteIndex)(nil)
