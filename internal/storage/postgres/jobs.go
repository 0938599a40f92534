package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/performer-crawler/internal/crawler"
)

const jobColumns = `id::text, platform_id, job_type, status, started_at, completed_at,
	items_processed, items_added, items_updated, items_skipped, errors_count,
	error_log, progress_percent`

// CreateJob implements crawler.JobStore.
func (s *Store) CreateJob(ctx context.Context, job crawler.Job) error {
	query := `
		INSERT INTO spider_jobs (id, platform_id, job_type, status, started_at, progress_percent)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := s.pool.Exec(ctx, query,
		job.ID,
		job.PlatformID,
		string(job.Type),
		string(job.Status),
		job.StartedAt,
		job.ProgressPercent,
	)
	if err != nil {
		return translate(err, "create job %s", job.ID)
	}
	return nil
}

// UpdateJobProgress implements crawler.JobStore. Closed jobs are never touched.
func (s *Store) UpdateJobProgress(ctx context.Context, jobID string, counters crawler.JobCounters, percent int) error {
	query := `
		UPDATE spider_jobs
		SET items_processed = $2, items_added = $3, items_updated = $4,
			items_skipped = $5, errors_count = $6, progress_percent = $7
		WHERE id = $1 AND status = 'running';
	`
	tag, err := s.pool.Exec(ctx, query,
		jobID,
		counters.Processed,
		counters.Added,
		counters.Updated,
		counters.Skipped,
		counters.Errors,
		percent,
	)
	if err != nil {
		return translate(err, "update job %s progress", jobID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", jobID, crawler.ErrJobNotRunning)
	}
	return nil
}

// CompleteJob implements crawler.JobStore. A job leaves running exactly once.
func (s *Store) CompleteJob(
	ctx context.Context,
	jobID string,
	status crawler.JobStatus,
	counters crawler.JobCounters,
	errorLog []string,
	completedAt time.Time,
) error {
	if !status.Terminal() {
		return fmt.Errorf("complete job %s with non-terminal status %q", jobID, status)
	}
	if errorLog == nil {
		errorLog = []string{}
	}
	query := `
		UPDATE spider_jobs
		SET status = $2, completed_at = $3, items_processed = $4, items_added = $5,
			items_updated = $6, items_skipped = $7, errors_count = $8,
			error_log = $9, progress_percent = 100
		WHERE id = $1 AND status = 'running';
	`
	tag, err := s.pool.Exec(ctx, query,
		jobID,
		string(status),
		completedAt,
		counters.Processed,
		counters.Added,
		counters.Updated,
		counters.Skipped,
		counters.Errors,
		errorLog,
	)
	if err != nil {
		return translate(err, "complete job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", jobID, crawler.ErrJobNotRunning)
	}
	return nil
}

// GetJob implements crawler.JobStore.
func (s *Store) GetJob(ctx context.Context, jobID string) (crawler.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM spider_jobs WHERE id = $1;`
	job, err := scanJob(s.pool.QueryRow(ctx, query, jobID))
	if err != nil {
		return crawler.Job{}, translate(err, "get job %s", jobID)
	}
	return job, nil
}

// ListJobs implements crawler.JobStore. Newest jobs come first; a zero
// platform id lists every platform.
func (s *Store) ListJobs(ctx context.Context, filter crawler.JobFilter) ([]crawler.Job, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + jobColumns + `
		FROM spider_jobs
		WHERE ($1::bigint = 0 OR platform_id = $1)
		ORDER BY started_at DESC
		LIMIT $2;`
	rows, err := s.pool.Query(ctx, query, filter.PlatformID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]crawler.Job, 0, limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job rows: %w", err)
	}
	return jobs, nil
}

func scanJob(row pgx.Row) (crawler.Job, error) {
	var (
		job     crawler.Job
		jobType string
		status  string
	)
	err := row.Scan(
		&job.ID,
		&job.PlatformID,
		&jobType,
		&status,
		&job.StartedAt,
		&job.CompletedAt,
		&job.Counters.Processed,
		&job.Counters.Added,
		&job.Counters.Updated,
		&job.Counters.Skipped,
		&job.Counters.Errors,
		&job.ErrorLog,
		&job.ProgressPercent,
	)
	if err != nil {
		return crawler.Job{}, err
	}
	job.Type = crawler.JobType(jobType)
	job.Status = crawler.JobStatus(status)
	return job, nil
}
