package storage

import (
	"database/sql"
	"time"

	"github.com/notforyou23/nextgen-system/internal/models"
)

// InsertRunning writes a fresh run record in RUNNING state.
func (s *Store) InsertRunning(runID, taskName string, triggeredAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO task_runs (run_id, task_name, status, triggered_at)
		 VALUES (?, ?, ?, ?)`,
		runID, taskName, models.RunStatusRunning, triggeredAt,
	)
	return err
}

// Finalize moves a run record to its terminal state. Repeating the call with
// the same terminal status is harmless: it rewrites the same terminal fields.
func (s *Store) Finalize(runID string, status models.RunStatus, completedAt time.Time, artifacts, errDetail *string) error {
	_, err := s.db.Exec(
		`UPDATE task_runs SET completed_at = ?, status = ?, artifacts = ?, error = ?
		 WHERE run_id = ?`,
		completedAt, status, artifacts, errDetail, runID,
	)
	return err
}

func (s *Store) GetRun(runID string) (*models.RunRecord, error) {
	row := s.db.QueryRow(
		`SELECT run_id, task_name, status, triggered_at, completed_at, artifacts, error
		 FROM task_runs WHERE run_id = ?`, runID,
	)
	return scanRun(row)
}

// ListRuns returns the most recently triggered runs, newest first.
func (s *Store) ListRuns(limit int) ([]*models.RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, task_name, status, triggered_at, completed_at, artifacts, error
		 FROM task_runs ORDER BY triggered_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRuns(rows)
}

// ListRunsForTask returns recent runs of one task, newest first.
func (s *Store) ListRunsForTask(taskName string, limit int) ([]*models.RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, task_name, status, triggered_at, completed_at, artifacts, error
		 FROM task_runs WHERE task_name = ? ORDER BY triggered_at DESC LIMIT ?`,
		taskName, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRuns(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.RunRecord, error) {
	var run models.RunRecord
	var completedAt sql.NullTime
	var artifacts, errDetail sql.NullString

	err := row.Scan(
		&run.RunID, &run.TaskName, &run.Status, &run.TriggeredAt,
		&completedAt, &artifacts, &errDetail,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if artifacts.Valid {
		run.Artifacts = &artifacts.String
	}
	if errDetail.Valid {
		run.Error = &errDetail.String
	}

	return &run, nil
}

func collectRuns(rows *sql.Rows) ([]*models.RunRecord, error) {
	var runs []*models.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
