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

// Package jobs orchestrates analysis runs: the job state machine
// (pending, running, completed, failed), the one-active-job-per-
// repository claim, cooperative cancellation, and progress reporting.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/kraklabs/codescribe/pkg/model"
	"github.com/kraklabs/codescribe/pkg/pipeline"
	"github.com/kraklabs/codescribe/pkg/snapshot"
	"github.com/kraklabs/codescribe/pkg/store"
)

// ErrAlreadyTerminal is returned when cancelling a job that has
// already completed or failed.
var ErrAlreadyTerminal = errors.New("job already in terminal state")

// cancelledMessage is the error message recorded when a run is
// cancelled; cancelled jobs fold into the failed state.
const cancelledMessage = "cancelled"

// SnapshotLoader fetches the current snapshot of a repository.
// Satisfied by both the git-backed and the local-directory loaders.
type SnapshotLoader interface {
	FetchSnapshot(ctx context.Context, location, ref string) (*snapshot.Snapshot, error)
}

// Service is the job orchestrator consumed by the CLI.
type Service struct {
	store  *store.Store
	loader SnapshotLoader
	agg    *pipeline.Aggregator
	logger *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc

	// Progress, when set, observes per-file progress of running jobs
	// in addition to the persisted job record. Used by the CLI to
	// render a progress bar.
	Progress func(processed, total int)
}

// NewService wires the orchestrator.
func NewService(st *store.Store, loader SnapshotLoader, agg *pipeline.Aggregator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   st,
		loader:  loader,
		agg:     agg,
		logger:  logger,
		cancels: make(map[string]context.CancelFunc),
	}
}

// StartJob creates a pending job for a repository and returns its ID.
// A repository with a pending or running job rejects the start with
// store.ErrJobConflict.
func (s *Service) StartJob(ctx context.Context, repoID string, jobType model.JobType) (string, error) {
	if _, err := s.store.GetRepository(ctx, repoID); err != nil {
		return "", err
	}

	job := &model.AnalysisJob{
		ID:           uuid.NewString(),
		RepositoryID: repoID,
		JobType:      jobType,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return "", err
	}
	return job.ID, nil
}

// RunJob claims a pending job and executes it to a terminal state:
// fetch snapshot, detect changes, aggregate bottom-up, finish. The
// returned error reflects the run outcome; the job record itself is
// always finished, including on cancellation.
func (s *Service) RunJob(ctx context.Context, jobID string) error {
	if err := s.store.ClaimJob(ctx, jobID); err != nil {
		return fmt.Errorf("claim job %s: %w", jobID, err)
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	repo, err := s.store.GetRepository(ctx, job.RepositoryID)
	if err != nil {
		s.finish(jobID, model.JobFailed, err.Error(), nil)
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancels[jobID] = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.cancels, jobID)
		s.mu.Unlock()
	}()

	s.logger.Info("job.run.start",
		"job_id", jobID,
		"repository_id", repo.ID,
		"job_type", string(job.JobType),
	)

	snap, err := s.loader.FetchSnapshot(runCtx, repo.URL, repo.DefaultBranch)
	if err != nil {
		s.finish(jobID, model.JobFailed, fmt.Sprintf("fetch snapshot: %v", err), nil)
		return err
	}

	dirty, err := s.dirtySet(runCtx, repo, snap, job.JobType)
	if err != nil {
		s.finish(jobID, model.JobFailed, err.Error(), nil)
		return err
	}

	total := len(dirty.TouchedFiles())
	if err := s.store.SetJobTotal(runCtx, jobID, total); err != nil {
		s.finish(jobID, model.JobFailed, err.Error(), nil)
		return err
	}

	onProgress := func(processed, totalFiles int) {
		progress := 100
		if totalFiles > 0 {
			progress = int(math.Round(100 * float64(processed) / float64(totalFiles)))
		}
		if err := s.store.UpdateJobProgress(context.Background(), jobID, processed, progress); err != nil {
			s.logger.Warn("job.progress.failed", "job_id", jobID, "error", err)
		}
		if s.Progress != nil {
			s.Progress(processed, totalFiles)
		}
	}

	res, runErr := s.agg.Run(runCtx, repo, snap, dirty, onProgress)
	switch {
	case runErr == nil:
		s.finish(jobID, model.JobCompleted, "", res)
	case errors.Is(runErr, context.Canceled) || runCtx.Err() != nil:
		s.finish(jobID, model.JobFailed, cancelledMessage, res)
	default:
		s.finish(jobID, model.JobFailed, runErr.Error(), res)
	}
	return runErr
}

// dirtySet computes what needs re-analysis. Full jobs treat everything
// as added; incremental jobs diff against the stored fingerprints. A
// first incremental run has no stored fingerprints and degenerates to
// a full set on its own.
//
// Files whose previous run fell short — missing file summary, or a
// unit flagged for retry — are re-queued even when their fingerprints
// match, so an interrupted or partially failed run is finished by the
// next one.
func (s *Service) dirtySet(ctx context.Context, repo *model.Repository, snap *snapshot.Snapshot, jobType model.JobType) (*snapshot.DirtySet, error) {
	if jobType == model.JobFull {
		return snapshot.Full(snap), nil
	}

	retry, err := s.store.FilesNeedingRetry(ctx, repo.ID)
	if err != nil {
		return nil, fmt.Errorf("load files needing retry: %w", err)
	}
	curr := snap.Fingerprints()

	// When the snapshot digest matches the last completed run, nothing
	// in the tree changed: one comparison replaces the per-file diff.
	if repo.Fingerprint != "" && repo.Fingerprint == snap.RepositoryFingerprint() {
		return snapshot.ForPaths(curr, retry), nil
	}

	prev, err := s.store.Fingerprints(ctx, repo.ID)
	if err != nil {
		return nil, fmt.Errorf("load stored fingerprints: %w", err)
	}
	for _, p := range retry {
		if _, ok := curr[p]; ok {
			delete(prev, p)
		}
	}
	return snapshot.Diff(prev, curr), nil
}

// finish moves the job to a terminal state. Uses a detached context so
// a cancelled run still records its outcome.
func (s *Service) finish(jobID string, status model.JobStatus, errMsg string, res *pipeline.Result) {
	failedUnits, parseFailures := 0, 0
	if res != nil {
		failedUnits = res.FailedUnits
		parseFailures = res.ParseFailures
	}
	err := s.store.FinishJob(context.Background(), jobID, status, errMsg, failedUnits, parseFailures)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("job.finish.failed", "job_id", jobID, "error", err)
	}
}

// CancelJob requests cancellation. A running job is cancelled
// cooperatively at the next file boundary; a pending job is failed
// immediately; a terminal job returns ErrAlreadyTerminal.
func (s *Service) CancelJob(ctx context.Context, jobID string) error {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrAlreadyTerminal, job.Status)
	}

	if job.Status == model.JobPending {
		if err := s.store.ClaimJob(ctx, jobID); err == nil {
			s.finish(jobID, model.JobFailed, cancelledMessage, nil)
			return nil
		}
		// Lost the race with RunJob; fall through to the cancel func.
	}

	s.mu.Lock()
	cancel := s.cancels[jobID]
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.logger.Info("job.cancel.requested", "job_id", jobID)
	return nil
}

// GetJob returns one job record.
func (s *Service) GetJob(ctx context.Context, jobID string) (*model.AnalysisJob, error) {
	return s.store.GetJob(ctx, jobID)
}

// ListJobs returns a repository's job history, newest first.
func (s *Service) ListJobs(ctx context.Context, repoID string, limit int) ([]model.AnalysisJob, error) {
	return s.store.ListJobs(ctx, repoID, limit)
}

// GetTree returns the summarized hierarchy of a repository.
func (s *Service) GetTree(ctx context.Context, repoID string) ([]model.TreeNode, error) {
	return s.store.GetTree(ctx, repoID)
}

// GetFile returns one file with its summary and extracted code units.
func (s *Service) GetFile(ctx context.Context, repoID, path string) (*model.File, error) {
	f, err := s.store.GetFile(ctx, repoID, path)
	if err != nil {
		return nil, err
	}
	f.Units, err = s.store.UnitsForFile(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// GetDirectory returns one directory with its summary.
func (s *Service) GetDirectory(ctx context.Context, repoID, path string) (*model.Directory, error) {
	return s.store.GetDirectory(ctx, repoID, path)
}
