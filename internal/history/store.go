// Package history persists run reports in a local SQLite database so
// operators can audit what the engine changed and when.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/utils"
)

// ErrNotFound reports a missing run id.
var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id   TEXT PRIMARY KEY,
	mode     TEXT NOT NULL,
	status   TEXT NOT NULL,
	started  TIMESTAMP NOT NULL,
	finished TIMESTAMP NOT NULL,
	items    INTEGER NOT NULL,
	report   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
`

// RunSummary is the listing row for one stored run.
type RunSummary struct {
	RunID    string
	Mode     models.RunMode
	Status   models.RunStatus
	Started  time.Time
	Finished time.Time
	Items    int
}

// Store wraps the SQLite database holding run history.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates (or opens) the database at path and bootstraps the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, utils.NewAppError("history.open", "creating history directory", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, utils.NewAppError("history.open", "opening database "+path, err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, utils.NewAppError("history.open", "bootstrapping schema", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// SaveReport stores one finished run. Saving the same run id again
// replaces the stored report.
func (s *Store) SaveReport(ctx context.Context, report models.RunReport) error {
	if report.RunID == "" {
		return fmt.Errorf("report has no run id")
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (run_id, mode, status, started, finished, items, report)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, string(report.Mode), string(report.Status),
		report.Started.UTC(), report.Finished.UTC(), len(report.Items), string(payload),
	)
	if err != nil {
		return fmt.Errorf("store run %s: %w", report.RunID, err)
	}
	s.logger.Debug("run report stored", slog.String("run_id", report.RunID))
	return nil
}

// GetReport loads the full report for runID.
func (s *Store) GetReport(ctx context.Context, runID string) (models.RunReport, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE run_id = ?`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RunReport{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return models.RunReport{}, fmt.Errorf("load run %s: %w", runID, err)
	}

	var report models.RunReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return models.RunReport{}, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return report, nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns
// everything.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `SELECT run_id, mode, status, started, finished, items FROM runs ORDER BY started DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	summaries := make([]RunSummary, 0)
	for rows.Next() {
		var summary RunSummary
		var mode, status string
		if err := rows.Scan(&summary.RunID, &mode, &status, &summary.Started, &summary.Finished, &summary.Items); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		summary.Mode = models.RunMode(mode)
		summary.Status = models.RunStatus(status)
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// Prune deletes runs that started before cutoff and reports how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("pruned run history", slog.Int64("removed", removed))
	}
	return removed, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
