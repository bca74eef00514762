// Package storage persists score snapshots and diagnostic entries in
// an embedded sqlite database so a restarted session under the same
// preference warms its cache. The in-memory cache stays authoritative.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"FeedScreener/internal/domain"
	"FeedScreener/internal/ports"
)

// SQLiteStore implements ports.ScoreStore over a single-file database.
type SQLiteStore struct {
	db *sql.DB
}

var _ ports.ScoreStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database at the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS score_snapshots (
		context_hash TEXT NOT NULL,
		item_key     TEXT NOT NULL,
		score        REAL NOT NULL,
		scored_at    TEXT NOT NULL,
		PRIMARY KEY (context_hash, item_key)
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_context ON score_snapshots(context_hash);

	CREATE TABLE IF NOT EXISTS error_log (
		id         TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		kind       TEXT NOT NULL,
		status     INTEGER NOT NULL DEFAULT 0,
		detail     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_error_log_created ON error_log(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveScore upserts one score snapshot.
func (s *SQLiteStore) SaveScore(ctx context.Context, contextHash, itemKey string, score float64) error {
	query, args, err := sq.Insert("score_snapshots").
		Columns("context_hash", "item_key", "score", "scored_at").
		Values(contextHash, itemKey, score, time.Now().UTC().Format(time.RFC3339)).
		Suffix("ON CONFLICT (context_hash, item_key) DO UPDATE SET score = excluded.score, scored_at = excluded.scored_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

// LoadScores returns every snapshot recorded under the context hash,
// keyed by item key.
func (s *SQLiteStore) LoadScores(ctx context.Context, contextHash string) (map[string]float64, error) {
	query, args, err := sq.Select("item_key", "score").
		From("score_snapshots").
		Where(sq.Eq{"context_hash": contextHash}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	scores := map[string]float64{}
	for rows.Next() {
		var key string
		var score float64
		if err := rows.Scan(&key, &score); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores[key] = score
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return scores, nil
}

// SaveErrorEntry appends one diagnostic record.
func (s *SQLiteStore) SaveErrorEntry(ctx context.Context, entry domain.ErrorEntry) error {
	query, args, err := sq.Insert("error_log").
		Columns("id", "created_at", "kind", "status", "detail").
		Values(entry.ID, entry.CreatedAt.UTC().Format(time.RFC3339), entry.Kind, entry.Status, entry.Detail).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert error entry: %w", err)
	}
	return nil
}

// RecentErrors returns up to limit diagnostic records, most recent
// last.
func (s *SQLiteStore) RecentErrors(ctx context.Context, limit int) ([]domain.ErrorEntry, error) {
	query, args, err := sq.Select("id", "created_at", "kind", "status", "detail").
		From("error_log").
		OrderBy("id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error log: %w", err)
	}
	defer rows.Close()

	var entries []domain.ErrorEntry
	for rows.Next() {
		var entry domain.ErrorEntry
		var createdAt string
		if err := rows.Scan(&entry.ID, &createdAt, &entry.Kind, &entry.Status, &entry.Detail); err != nil {
			return nil, fmt.Errorf("scan error entry: %w", err)
		}
		entry.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	// Reverse to most-recent-last.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
