package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"FakeNewsDetector/internal/domain"
	"FakeNewsDetector/internal/ports"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	experiment   TEXT NOT NULL,
	model_type   TEXT NOT NULL,
	accuracy     REAL NOT NULL,
	metrics_json TEXT NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_experiment ON runs (experiment);
`

// SQLiteHistory stores every evaluation run in a local SQLite file.
type SQLiteHistory struct {
	db *sql.DB
}

var _ ports.RunHistory = (*SQLiteHistory)(nil)

// OpenSQLiteHistory opens (or creates) the database at path and runs migrations.
func OpenSQLiteHistory(path string) (*SQLiteHistory, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &SQLiteHistory{db: db}, nil
}

// Close releases the database handle.
func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}

// Record appends a run; an empty ID is replaced by a random UUID.
func (h *SQLiteHistory) Record(ctx context.Context, run domain.RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("encode run metrics: %w", err)
	}

	query, args, err := sq.Insert("runs").
		Columns("id", "experiment", "model_type", "accuracy", "metrics_json", "created_at").
		Values(run.ID, run.Experiment, run.ModelType, run.Accuracy, string(metrics), run.CreatedAt.UTC().Format(time.RFC3339Nano)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := h.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// List returns runs newest first, optionally filtered by experiment; limit <= 0 means all.
func (h *SQLiteHistory) List(ctx context.Context, experiment string, limit int) ([]domain.RunRecord, error) {
	builder := sq.Select("id", "experiment", "model_type", "accuracy", "metrics_json", "created_at").
		From("runs").
		OrderBy("seq DESC")
	if experiment != "" {
		builder = builder.Where(sq.Eq{"experiment": experiment})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	var result []domain.RunRecord
	for rows.Next() {
		var (
			run         domain.RunRecord
			metricsJSON string
			createdAt   string
		)
		if err := rows.Scan(&run.ID, &run.Experiment, &run.ModelType, &run.Accuracy, &metricsJSON, &createdAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(metricsJSON), &run.Metrics); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("decode run %s metrics: %w", run.ID, err)
		}
		run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		result = append(result, run)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}
