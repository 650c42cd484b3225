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

package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kraklabs/codescribe/internal/errors"
	"github.com/kraklabs/codescribe/internal/ui"
	"github.com/kraklabs/codescribe/pkg/jobs"
	"github.com/kraklabs/codescribe/pkg/pipeline"
	"github.com/kraklabs/codescribe/pkg/snapshot"
	"github.com/kraklabs/codescribe/pkg/store"
)

// runCancel executes the 'cancel' CLI command, requesting cancellation
// of a pending or running analysis job. With no argument it cancels
// the repository's active job.
//
// Cancellation is cooperative: a running job stops at its next node
// boundary, and already-persisted summaries are kept for the next
// incremental run.
//
// Examples:
//
//	codescribe cancel                Cancel the active job
//	codescribe cancel 6b3f12a0-...   Cancel a specific job by ID
func runCancel(args []string, configPath string) {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codescribe cancel [job-id]

Cancels a pending or running analysis job. With no job-id, cancels the
active job of the configured repository. Summaries persisted before the
cancellation are kept.

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load configuration",
			err.Error(),
			"Run 'codescribe init' to create .codescribe/project.yaml",
			err,
		), false)
	}

	dataDir, err := DataDir()
	if err != nil {
		errors.FatalError(err, false)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	st, err := store.Open(filepath.Join(dataDir, "codescribe.db"), logger)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot open local database",
			err.Error(),
			"Check that "+dataDir+" is writable",
			err,
		), false)
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()

	jobID := fs.Arg(0)
	if jobID == "" {
		repo, err := st.GetRepositoryByName(ctx, cfg.Repository.Owner, cfg.Repository.Name)
		if err != nil {
			errors.FatalError(errors.NewNotFoundError(
				"Repository not registered",
				"No repository matches "+repoKey(cfg),
				"Run 'codescribe analyze' first",
			), false)
		}
		active, err := st.ActiveJob(ctx, repo.ID)
		if err != nil {
			if stderrors.Is(err, store.ErrNotFound) {
				fmt.Println("No active job to cancel.")
				return
			}
			errors.FatalError(err, false)
		}
		jobID = active.ID
	}

	// The CLI runs jobs in-process, so a cancel from a second terminal
	// can only flip pending jobs. Running jobs are cancelled via
	// SIGINT on the analyzing process.
	agg := pipeline.New(st, nil, nil, 1, logger)
	svc := jobs.NewService(st, snapshot.NewDirLoader(snapshot.DefaultFilter(), logger), agg, logger)

	if err := svc.CancelJob(ctx, jobID); err != nil {
		switch {
		case stderrors.Is(err, jobs.ErrAlreadyTerminal):
			errors.FatalError(errors.NewConflictError(
				"Job already finished",
				fmt.Sprintf("Job %s is in a terminal state", jobID),
				"Run 'codescribe status' to see its outcome",
			), false)
		case stderrors.Is(err, store.ErrNotFound):
			errors.FatalError(errors.NewNotFoundError(
				"Job not found",
				fmt.Sprintf("No job with ID %s", jobID),
				"Run 'codescribe status' to list recent jobs",
			), false)
		default:
			errors.FatalError(err, false)
		}
	}

	ui.Successf("Cancelled job %s", jobID)
}
