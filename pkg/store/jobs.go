// Copyright 2026 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kraklabs/codescribe/pkg/model"
)

// CreateJob inserts a pending job for a repository. The insert is
// conditional: it succeeds only while the repository has no other job
// in a non-terminal state, otherwise ErrJobConflict.
func (s *Store) CreateJob(ctx context.Context, job *model.AnalysisJob) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	job.Status = model.JobPending

	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO analysis_jobs (id, repository_id, status, job_type, progress, processed_files, created_at)
		SELECT ?, ?, ?, ?, 0, 0, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM analysis_jobs
			WHERE repository_id = ? AND status IN ('pending', 'running')
		)
	`, job.ID, job.RepositoryID, string(job.Status), string(job.JobType),
		formatTime(job.CreatedAt), job.RepositoryID)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrJobConflict
	}

	s.logger.Info("job.create.complete",
		"job_id", job.ID,
		"repository_id", job.RepositoryID,
		"job_type", string(job.JobType),
	)
	return nil
}

// ClaimJob transitions a pending job to running and stamps StartedAt.
// Returns ErrNotFound if the job does not exist or is not pending, so
// a job is only ever claimed once.
func (s *Store) ClaimJob(ctx context.Context, jobID string) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE analysis_jobs SET status = 'running', started_at = ?
		WHERE id = ? AND status = 'pending'
	`, formatTime(time.Now()), jobID)
	if err != nil {
		return fmt.Errorf("claim job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetJobTotal records the size of the dirty set once change detection
// has run.
func (s *Store) SetJobTotal(ctx context.Context, jobID string, totalFiles int) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE analysis_jobs SET total_files = ? WHERE id = ? AND status = 'running'
	`, totalFiles, jobID)
	if err != nil {
		return fmt.Errorf("set job total: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateJobProgress records file-granular progress. Both counters are
// clamped to be monotonically non-decreasing, so late or reordered
// writers can never roll a job's progress backwards.
func (s *Store) UpdateJobProgress(ctx context.Context, jobID string, processedFiles, progress int) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE analysis_jobs SET
			processed_files = MAX(processed_files, ?),
			progress = MAX(progress, ?)
		WHERE id = ? AND status = 'running'
	`, processedFiles, progress, jobID)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// FinishJob moves a running job to a terminal state, recording the
// diagnostic counts and, for failures, the error message. A job that
// is already terminal is left untouched and reported as ErrNotFound.
func (s *Store) FinishJob(ctx context.Context, jobID string, status model.JobStatus, errMsg string, failedUnits, parseFailures int) error {
	if !status.Terminal() {
		return fmt.Errorf("finish job: %q is not a terminal status", status)
	}

	var msg sql.NullString
	if errMsg != "" {
		msg = sql.NullString{String: errMsg, Valid: true}
	}
	progressClause := ""
	if status == model.JobCompleted {
		progressClause = ", progress = 100"
	}

	res, err := s.conn.ExecContext(ctx, fmt.Sprintf(`
		UPDATE analysis_jobs SET
			status = ?,
			error_message = ?,
			failed_units = ?,
			parse_failures = ?,
			completed_at = ?%s
		WHERE id = ? AND status = 'running'
	`, progressClause), string(status), msg, failedUnits, parseFailures,
		formatTime(time.Now()), jobID)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	s.logger.Info("job.finish.complete",
		"job_id", jobID,
		"status", string(status),
		"failed_units", failedUnits,
		"parse_failures", parseFailures,
	)
	return nil
}

const jobColumns = `id, repository_id, status, job_type, progress, total_files, processed_files, error_message, failed_units, parse_failures, created_at, started_at, completed_at`

// GetJob fetches a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*model.AnalysisJob, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM analysis_jobs WHERE id = ?`, jobID)

	job, err := scanJob(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

// ListJobs returns a repository's jobs newest first.
func (s *Store) ListJobs(ctx context.Context, repoID string, limit int) ([]model.AnalysisJob, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM analysis_jobs
		 WHERE repository_id = ? ORDER BY created_at DESC, id LIMIT ?`,
		repoID, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.AnalysisJob
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

// ActiveJob returns the repository's pending or running job, or
// ErrNotFound when the repository is idle.
func (s *Store) ActiveJob(ctx context.Context, repoID string) (*model.AnalysisJob, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM analysis_jobs
		 WHERE repository_id = ? AND status IN ('pending', 'running')
		 ORDER BY created_at DESC LIMIT 1`, repoID)

	job, err := scanJob(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

func scanJob(scan func(...any) error) (*model.AnalysisJob, error) {
	var job model.AnalysisJob
	var status, jobType, createdAt string
	var totalFiles sql.NullInt64
	var errMsg, startedAt, completedAt sql.NullString

	err := scan(&job.ID, &job.RepositoryID, &status, &jobType, &job.Progress,
		&totalFiles, &job.ProcessedFiles, &errMsg, &job.FailedUnits,
		&job.ParseFailures, &createdAt, &startedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}

	job.Status = model.JobStatus(status)
	job.JobType = model.JobType(jobType)
	job.TotalFiles = fromNullInt(totalFiles)
	job.ErrorMessage = fromNullString(errMsg)
	job.CreatedAt = parseTime(createdAt)
	job.StartedAt = fromNullTime(startedAt)
	job.CompletedAt = fromNullTime(completedAt)
	return &job, nil
}
