package ledger

import (
	"context"
	"fmt"
	"time"

	"niftymic/internal/pipeline"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Job summarizes the history of one working directory.
type Job struct {
	Name       string
	Root       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	LastStep   string
	LastStatus string
	Runs       int
}

// Record stores a finished stage run and updates the job summary.
func (s *Store) Record(ctx context.Context, rec pipeline.StageRecord) error {
	if rec.Job == "" || rec.RequestID == "" {
		return fmt.Errorf("record stage run: job and request id are required")
	}
	started := rec.StartedAt.UTC().Format(timeLayout)
	finished := rec.FinishedAt.UTC().Format(timeLayout)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `
INSERT INTO jobs (name, root, created_at, updated_at, last_step, last_status)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
    root = excluded.root,
    updated_at = excluded.updated_at,
    last_step = excluded.last_step,
    last_status = excluded.last_status`,
			rec.Job, rec.Root, started, finished, rec.Step, rec.Status,
		); err != nil {
			return fmt.Errorf("upsert job: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO stage_runs (request_id, job_name, step, status, error_kind, error_message, started_at, finished_at, duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.RequestID, rec.Job, rec.Step, rec.Status, rec.ErrorKind, rec.Error,
			started, finished, rec.Duration().Milliseconds(),
		); err != nil {
			return fmt.Errorf("insert stage run: %w", err)
		}
		return tx.Commit()
	})
}

// Runs returns the stage runs of job in the order they started. An empty job
// returns every run.
func (s *Store) Runs(ctx context.Context, job string) ([]pipeline.StageRecord, error) {
	query := `
SELECT r.request_id, r.job_name, j.root, r.step, r.status, r.error_kind, r.error_message, r.started_at, r.finished_at
FROM stage_runs r JOIN jobs j ON j.name = r.job_name`
	var args []any
	if job != "" {
		query += " WHERE r.job_name = ?"
		args = append(args, job)
	}
	query += " ORDER BY r.started_at, r.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stage runs: %w", err)
	}
	defer rows.Close()

	var runs []pipeline.StageRecord
	for rows.Next() {
		var rec pipeline.StageRecord
		var started, finished string
		if err := rows.Scan(&rec.RequestID, &rec.Job, &rec.Root, &rec.Step, &rec.Status, &rec.ErrorKind, &rec.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan stage run: %w", err)
		}
		if rec.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if rec.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

const jobsQuery = `
SELECT j.name, j.root, j.created_at, j.updated_at, j.last_step, j.last_status, COUNT(r.id)
FROM jobs j LEFT JOIN stage_runs r ON r.job_name = j.name`

// Jobs lists every job the ledger has seen, most recently updated first.
func (s *Store) Jobs(ctx context.Context) ([]Job, error) {
	return s.queryJobs(ctx, jobsQuery+" GROUP BY j.name ORDER BY j.updated_at DESC, j.name")
}

// Job returns the summary for name, or false if the ledger has never seen it.
func (s *Store) Job(ctx context.Context, name string) (Job, bool, error) {
	jobs, err := s.queryJobs(ctx, jobsQuery+" WHERE j.name = ? GROUP BY j.name", name)
	if err != nil || len(jobs) == 0 {
		return Job{}, false, err
	}
	return jobs[0], true, nil
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...any) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		var created, updated string
		if err := rows.Scan(&job.Name, &job.Root, &created, &updated, &job.LastStep, &job.LastStatus, &job.Runs); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if job.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if job.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t, nil
}

var _ pipeline.Recorder = (*Store)(nil)
