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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codescribe/pkg/model"
)

func TestCreateJobConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := newTestRepo(t, s, "r1")

	first := &model.AnalysisJob{ID: "j1", RepositoryID: repo.ID, JobType: model.JobFull}
	require.NoError(t, s.CreateJob(ctx, first))

	second := &model.AnalysisJob{ID: "j2", RepositoryID: repo.ID, JobType: model.JobIncremental}
	err := s.CreateJob(ctx, second)
	assert.ErrorIs(t, err, ErrJobConflict)

	// A different repository is unaffected.
	other := newTestRepo(t, s, "r2")
	third := &model.AnalysisJob{ID: "j3", RepositoryID: other.ID, JobType: model.JobFull}
	assert.NoError(t, s.CreateJob(ctx, third))
}

func TestJobLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := newTestRepo(t, s, "r1")

	job := &model.AnalysisJob{ID: "j1", RepositoryID: repo.ID, JobType: model.JobFull}
	require.NoError(t, s.CreateJob(ctx, job))

	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, model.JobPending, got.Status)
	assert.Nil(t, got.StartedAt)

	require.NoError(t, s.ClaimJob(ctx, "j1"))
	// Claiming twice must fail: the pending state is gone.
	assert.ErrorIs(t, s.ClaimJob(ctx, "j1"), ErrNotFound)

	require.NoError(t, s.SetJobTotal(ctx, "j1", 4))
	require.NoError(t, s.UpdateJobProgress(ctx, "j1", 2, 50))

	got, err = s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, model.JobRunning, got.Status)
	require.NotNil(t, got.TotalFiles)
	assert.Equal(t, 4, *got.TotalFiles)
	assert.Equal(t, 2, got.ProcessedFiles)
	assert.Equal(t, 50, got.Progress)
	assert.NotNil(t, got.StartedAt)

	require.NoError(t, s.FinishJob(ctx, "j1", model.JobCompleted, "", 1, 0))

	got, err = s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, 1, got.FailedUnits)
	assert.NotNil(t, got.CompletedAt)

	// Once the job finished the repository accepts a new one.
	next := &model.AnalysisJob{ID: "j2", RepositoryID: repo.ID, JobType: model.JobIncremental}
	assert.NoError(t, s.CreateJob(ctx, next))
}

func TestJobProgressMonotonic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := newTestRepo(t, s, "r1")

	job := &model.AnalysisJob{ID: "j1", RepositoryID: repo.ID, JobType: model.JobFull}
	require.NoError(t, s.CreateJob(ctx, job))
	require.NoError(t, s.ClaimJob(ctx, "j1"))

	require.NoError(t, s.UpdateJobProgress(ctx, "j1", 3, 75))
	// A stale writer cannot roll progress back.
	require.NoError(t, s.UpdateJobProgress(ctx, "j1", 1, 25))

	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.ProcessedFiles)
	assert.Equal(t, 75, got.Progress)
}

func TestFinishJobTerminalOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := newTestRepo(t, s, "r1")

	job := &model.AnalysisJob{ID: "j1", RepositoryID: repo.ID, JobType: model.JobFull}
	require.NoError(t, s.CreateJob(ctx, job))
	require.NoError(t, s.ClaimJob(ctx, "j1"))

	err := s.FinishJob(ctx, "j1", model.JobRunning, "", 0, 0)
	assert.Error(t, err)

	require.NoError(t, s.FinishJob(ctx, "j1", model.JobFailed, "summarizer unavailable", 0, 2))
	// Terminal states never revert.
	assert.ErrorIs(t, s.FinishJob(ctx, "j1", model.JobCompleted, "", 0, 0), ErrNotFound)

	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "summarizer unavailable", *got.ErrorMessage)
	assert.Equal(t, 2, got.ParseFailures)
}

func TestListJobsAndActiveJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := newTestRepo(t, s, "r1")

	j1 := &model.AnalysisJob{ID: "j1", RepositoryID: repo.ID, JobType: model.JobFull}
	require.NoError(t, s.CreateJob(ctx, j1))
	require.NoError(t, s.ClaimJob(ctx, "j1"))
	require.NoError(t, s.FinishJob(ctx, "j1", model.JobCompleted, "", 0, 0))

	j2 := &model.AnalysisJob{ID: "j2", RepositoryID: repo.ID, JobType: model.JobIncremental}
	require.NoError(t, s.CreateJob(ctx, j2))

	jobs, err := s.ListJobs(ctx, repo.ID, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	active, err := s.ActiveJob(ctx, repo.ID)
	require.NoError(t, err)
	assert.Equal(t, "j2", active.ID)

	require.NoError(t, s.ClaimJob(ctx, "j2"))
	require.NoError(t, s.FinishJob(ctx, "j2", model.JobCompleted, "", 0, 0))

	_, err = s.ActiveJob(ctx, repo.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
