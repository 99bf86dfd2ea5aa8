// Package state persists run output and reports to the filesystem layout
// spec.md fixes (data/raw_outputs/<run-id>/<task-id>.{stdout,stderr} and
// data/reports/<run-id>.json) and indexes completed runs in an embedded
// sqlite database, read back through ListRuns. Grounded on
// the teacher's internal/state.StateStore, trimmed from a full
// pipeline-dashboard feature set down to the run-index query the CLI
// actually needs.
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/neosec/neosec/internal/model"
	"github.com/neosec/neosec/internal/security"
)

// Store writes raw task output and run reports under a data directory and
// maintains a queryable sqlite run index alongside it.
type Store struct {
	dataDir   string
	pathValid *security.PathValidator
	db        *sql.DB
}

// Open creates the data directory tree (raw_outputs/, reports/) if
// necessary and opens (creating if necessary) the sqlite run index at
// <dataDir>/runs.db.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dataDir, "raw_outputs"), 0o755); err != nil {
		return nil, fmt.Errorf("create raw_outputs dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dataDir, "reports"), 0o755); err != nil {
		return nil, fmt.Errorf("create reports dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, "runs.db"))
	if err != nil {
		return nil, fmt.Errorf("open run index: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		workflow TEXT NOT NULL,
		target TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TEXT NOT NULL,
		completed_at TEXT NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create runs table: %w", err)
	}

	return &Store{
		dataDir:   dataDir,
		pathValid: security.NewPathValidator(filepath.Join(dataDir, "raw_outputs")),
		db:        db,
	}, nil
}

// Close releases the sqlite handle.
func (s *Store) Close() error { return s.db.Close() }

// WriteRawOutput persists a single task's captured stdout/stderr under
// data/raw_outputs/<run-id>/<task-id>.{stdout,stderr}, rejecting run/task
// ids that would traverse outside the data directory.
func (s *Store) WriteRawOutput(runID, taskID string, stdout, stderr []byte) error {
	runDir, err := s.pathValid.ValidateComponent(runID)
	if err != nil {
		return fmt.Errorf("invalid run id: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("create run output dir: %w", err)
	}

	safeTaskID, err := security.NewPathValidator(runDir).ValidateComponent(taskID)
	if err != nil {
		return fmt.Errorf("invalid task id: %w", err)
	}

	if err := os.WriteFile(safeTaskID+".stdout", stdout, 0o644); err != nil {
		return fmt.Errorf("write stdout: %w", err)
	}
	if err := os.WriteFile(safeTaskID+".stderr", stderr, 0o644); err != nil {
		return fmt.Errorf("write stderr: %w", err)
	}
	return nil
}

// WriteReport persists the final ScanResult to data/reports/<run-id>.json
// and upserts a summary row into the sqlite run index.
func (s *Store) WriteReport(result model.ScanResult) error {
	reportPath, err := security.NewPathValidator(filepath.Join(s.dataDir, "reports")).ValidateComponent(result.RunID + ".json")
	if err != nil {
		return fmt.Errorf("invalid run id: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(reportPath, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO runs (run_id, workflow, target, status, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET status=excluded.status, completed_at=excluded.completed_at`,
		result.RunID, result.Workflow, result.Target, string(result.Status),
		result.StartedAt.Format(time.RFC3339), result.CompletedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("index run: %w", err)
	}
	return nil
}

// RunSummary is one row of the sqlite run index.
type RunSummary struct {
	RunID       string
	Workflow    string
	Target      string
	Status      string
	StartedAt   time.Time
	CompletedAt time.Time
}

// ListRuns returns every indexed run, most recent first.
func (s *Store) ListRuns() ([]RunSummary, error) {
	rows, err := s.db.Query(`SELECT run_id, workflow, target, status, started_at, completed_at FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var started, completed string
		if err := rows.Scan(&rs.RunID, &rs.Workflow, &rs.Target, &rs.Status, &started, &completed); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		rs.StartedAt, _ = time.Parse(time.RFC3339, started)
		rs.CompletedAt, _ = time.Parse(time.RFC3339, completed)
		out = append(out, rs)
	}
	return out, rows.Err()
}
