package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/RishiKendai/provenance/internal/models"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS corpus_entries (
	id         TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	source     TEXT NOT NULL,
	type       TEXT NOT NULL,
	dim        INTEGER NOT NULL,
	embedding  TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_corpus_entries_type ON corpus_entries(type);
CREATE INDEX IF NOT EXISTS idx_corpus_entries_source ON corpus_entries(source);
`

// SQLiteIndex persists corpus entries in a single SQLite file. Writes are
// serialized and each batch commits atomically, so readers never observe a
// partially added batch.
type SQLiteIndex struct {
	writeMu sync.Mutex
	db      *sql.DB
	path    string
}

func NewSQLiteIndex(path string) (*SQLiteIndex, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create vector index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize vector index schema: %w", err)
	}

	log.Info().Str("path", path).Msg("Vector index opened")
	return &SQLiteIndex{db: db, path: path}, nil
}

func (s *SQLiteIndex) dimension(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}) (int, error) {
	var dim int
	err := q.QueryRowContext(ctx, "SELECT dim FROM corpus_entries LIMIT 1").Scan(&dim)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return dim, err
}

// Add upserts entries by id.
func (s *SQLiteIndex) Add(ctx context.Context, entries []models.CorpusEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.write(ctx, "", entries)
}

// ReplaceSource drops every entry of source and writes entries in the same
// transaction, so a shrunken source leaves no stale rows behind.
func (s *SQLiteIndex) ReplaceSource(ctx context.Context, source string, entries []models.CorpusEntry) error {
	if source == "" {
		return fmt.Errorf("source is required")
	}
	return s.write(ctx, source, entries)
}

func (s *SQLiteIndex) write(ctx context.Context, replace string, entries []models.CorpusEntry) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if replace != "" {
		if _, err := tx.ExecContext(ctx, "DELETE FROM corpus_entries WHERE source = ?", replace); err != nil {
			return fmt.Errorf("failed to drop entries of %s: %w", replace, err)
		}
	}

	dim, err := s.dimension(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to read index dimension: %w", err)
	}
	if _, err := checkDimensions(entries, dim); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO corpus_entries (id, document, source, type, dim, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		embedding, err := json.Marshal(e.Embedding)
		if err != nil {
			return fmt.Errorf("failed to encode embedding for %s: %w", e.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.Text, e.Source, e.Type, len(e.Embedding), string(embedding)); err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit entries: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) Query(ctx context.Context, q models.VectorQuery) ([]models.Neighbor, error) {
	query := "SELECT id, document, source, type, embedding FROM corpus_entries"
	args := make([]any, 0, 1)
	if q.Type != "" {
		query += " WHERE type = ?"
		args = append(args, q.Type)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	neighbors := make([]models.Neighbor, 0)
	for rows.Next() {
		var (
			id, document, source, entryType string
			raw                             string
			embedding                       []float32
		)
		if err := rows.Scan(&id, &document, &source, &entryType, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &embedding); err != nil {
			log.Warn().Err(err).Str("id", id).Msg("Skipping entry with corrupt embedding")
			continue
		}
		neighbors = append(neighbors, models.Neighbor{
			ID:       id,
			Document: document,
			Metadata: map[string]string{"source": source, "type": entryType},
			Distance: cosineDistance(q.Embedding, embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return topK(neighbors, q.TopK), nil
}

// Count returns the number of entries of entryType, or all entries when it is empty.
func (s *SQLiteIndex) Count(ctx context.Context, entryType string) (int, error) {
	var n int
	var err error
	if entryType == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM corpus_entries").Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM corpus_entries WHERE type = ?", entryType).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}
