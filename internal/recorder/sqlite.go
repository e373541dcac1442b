package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"fx-analyzer/internal/logger"
	"fx-analyzer/internal/types"
)

// SQLiteRecorder persists analysis results to a SQLite database. The full
// result is stored as JSON next to a few indexed columns used for listing.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	// WAL lets the history endpoint read while the async writer inserts.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info(context.Background(), "SQLite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id           TEXT PRIMARY KEY,
			created_at   INTEGER NOT NULL,
			pair         TEXT NOT NULL,
			interval     TEXT,
			period       TEXT,
			final_signal TEXT,
			confidence   REAL,
			branch       TEXT,
			sentiment    REAL,
			data_points  INTEGER,
			payload      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_pair ON analyses(pair, created_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// Record inserts result. Chart bytes are not persisted.
func (r *SQLiteRecorder) Record(ctx context.Context, result types.AnalysisResult) error {
	if result.ID == "" {
		return fmt.Errorf("record: result has no id")
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx, `INSERT INTO analyses
		(id, created_at, pair, interval, period, final_signal, confidence, branch, sentiment, data_points, payload)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		result.ID, result.Timestamp.UnixNano(),
		result.Request.Instrument, result.Request.Interval, result.Request.Period,
		string(result.Final.Direction), result.Final.Confidence, result.Final.Explanation.Branch,
		result.Sentiment.Score, result.DataPoints, string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert analysis %s: %w", result.ID, err)
	}
	return nil
}

// List returns up to limit results, newest first. An empty instrument matches all pairs.
func (r *SQLiteRecorder) List(ctx context.Context, instrument string, limit int) ([]types.AnalysisResult, error) {
	limit = clampLimit(limit)

	var (
		rows *sql.Rows
		err  error
	)
	if instrument == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT payload FROM analyses ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT payload FROM analyses WHERE pair = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, instrument, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	results := make([]types.AnalysisResult, 0, limit)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		var res types.AnalysisResult
		if err := json.Unmarshal([]byte(payload), &res); err != nil {
			return nil, fmt.Errorf("decode analysis: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	logger.Info(context.Background(), "Closing SQLite recorder")
	return r.db.Close()
}
