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
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"

	"github.com/kraklabs/codescribe/internal/errors"
	"github.com/kraklabs/codescribe/internal/ui"
	"github.com/kraklabs/codescribe/pkg/extract"
	"github.com/kraklabs/codescribe/pkg/jobs"
	"github.com/kraklabs/codescribe/pkg/model"
	"github.com/kraklabs/codescribe/pkg/pipeline"
	"github.com/kraklabs/codescribe/pkg/snapshot"
	"github.com/kraklabs/codescribe/pkg/store"
	"github.com/kraklabs/codescribe/pkg/summarize"
)

// runAnalyze executes the 'analyze' CLI command: it starts an analysis
// job for the configured repository and runs it to completion,
// generating summaries bottom-up (units, files, directories, root).
//
// Flags:
//   - --full: Re-analyze everything, ignoring stored fingerprints
//   - --workers: Number of parallel file workers (default: from config)
//   - --debug: Enable debug logging
//   - --metrics-addr: HTTP address for Prometheus metrics (default: disabled)
//   - -q: Suppress progress output
//
// Examples:
//
//	codescribe analyze                 Incremental analysis (changed files only)
//	codescribe analyze --full          Re-summarize the entire repository
//	codescribe analyze --workers 8     Use 8 parallel file workers
func runAnalyze(args []string, configPath string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	full := fs.Bool("full", false, "Re-analyze everything, ignoring stored fingerprints")
	workers := fs.Int("workers", 0, "Number of parallel file workers (default: from config)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	quiet := fs.Bool("q", false, "Suppress progress output")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codescribe analyze [options]

Analyzes the configured repository using .codescribe/project.yaml.
Summaries are stored locally in ~/.codescribe/ and survive across runs;
incremental analysis re-summarizes only changed files and their
ancestor directories.

Options:
`)
		fs.PrintDefaults()
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

	logLevel := slog.LevelWarn
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			logger.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	svc, st := buildService(cfg, logger, *workers)
	defer func() { _ = st.Close() }()

	repo, err := ensureRepository(ctx, st, cfg)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot register repository",
			err.Error(),
			"Check that the data directory is writable",
			err,
		), false)
	}

	jobType := model.JobIncremental
	if *full {
		jobType = model.JobFull
	}

	jobID, err := svc.StartJob(ctx, repo.ID, jobType)
	if err != nil {
		if stderrors.Is(err, store.ErrJobConflict) {
			errors.FatalError(errors.NewConflictError(
				"An analysis job is already active for this repository",
				"At most one job per repository may be pending or running",
				"Wait for it to finish, or run 'codescribe cancel'",
			), false)
		}
		errors.FatalError(errors.NewDatabaseError(
			"Cannot start analysis job",
			err.Error(),
			"Check 'codescribe status' for repository state",
			err,
		), false)
	}

	globals := GlobalFlags{Quiet: *quiet}
	progress := NewProgressConfig(globals)
	var bar *progressbar.ProgressBar
	svc.Progress = func(processed, total int) {
		if !progress.Enabled {
			return
		}
		if bar == nil {
			bar = NewProgressBar(progress, int64(total), "summarizing")
		}
		if bar != nil {
			_ = bar.Set(processed)
		}
	}

	if !*quiet {
		fmt.Printf("Analyzing %s (%s)\n", repoKey(cfg), jobType)
	}

	start := time.Now()
	runErr := svc.RunJob(ctx, jobID)
	if bar != nil {
		_ = bar.Finish()
	}

	job, getErr := svc.GetJob(context.Background(), jobID)
	if getErr != nil {
		errors.FatalError(getErr, false)
	}

	if runErr != nil {
		msg := runErr.Error()
		if job.ErrorMessage != nil {
			msg = *job.ErrorMessage
		}
		if ctx.Err() != nil {
			fmt.Fprintf(os.Stderr, "Analysis cancelled after %s\n", time.Since(start).Round(time.Second))
			os.Exit(errors.ExitInternal)
		}
		errors.FatalError(errors.NewInternalError(
			"Analysis failed",
			msg,
			"Re-run with --debug for details; incremental state is preserved",
			runErr,
		), false)
	}

	printAnalyzeResult(job, time.Since(start))
}

// buildService assembles the snapshot loader, extractor, summarizer,
// aggregator, and job service from the configuration.
func buildService(cfg *Config, logger *slog.Logger, workers int) (*jobs.Service, *store.Store) {
	dataDir, err := DataDir()
	if err != nil {
		errors.FatalError(err, false)
	}

	st, err := store.Open(filepath.Join(dataDir, "codescribe.db"), logger)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot open local database",
			err.Error(),
			"Check that "+dataDir+" is writable",
			err,
		), false)
	}

	filter := snapshot.DefaultFilter()
	if cfg.Analysis.MaxFileSize > 0 {
		filter.MaxFileSize = cfg.Analysis.MaxFileSize
	}

	var loader jobs.SnapshotLoader
	if isRemoteURL(cfg.Repository.URL) {
		git := snapshot.NewGitLoader(filepath.Join(dataDir, "mirrors"), filter, logger)
		git.Token = os.Getenv("GITHUB_TOKEN")
		loader = git
	} else {
		loader = snapshot.NewDirLoader(filter, logger)
	}

	mode := extract.ModeTreeSitter
	if cfg.Analysis.Extractor == string(extract.ModeSimplified) {
		mode = extract.ModeSimplified
	}
	extractor := extract.New(mode, logger)

	provider, err := summarize.NewProvider(cfg.Provider)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot create summary provider",
			err.Error(),
			"Check the provider section of .codescribe/project.yaml",
			err,
		), false)
	}
	engine := summarize.NewEngine(provider, summarize.Options{
		Model:           cfg.Analysis.Model,
		MaxContextChars: cfg.Analysis.MaxContextChars,
	}, logger)

	if workers <= 0 {
		workers = cfg.Analysis.Workers
	}
	agg := pipeline.New(st, extractor, engine, workers, logger)

	return jobs.NewService(st, loader, agg, logger), st
}

// ensureRepository looks up the configured repository, registering it
// on first use.
func ensureRepository(ctx context.Context, st *store.Store, cfg *Config) (*model.Repository, error) {
	repo, err := st.GetRepositoryByName(ctx, cfg.Repository.Owner, cfg.Repository.Name)
	if err == nil {
		return repo, nil
	}
	if !stderrors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	repo = &model.Repository{
		ID:            uuid.NewString(),
		Owner:         cfg.Repository.Owner,
		Name:          cfg.Repository.Name,
		URL:           cfg.Repository.URL,
		DefaultBranch: cfg.Repository.DefaultBranch,
	}
	if err := st.CreateRepository(ctx, repo); err != nil {
		return nil, err
	}
	return repo, nil
}

// isRemoteURL reports whether location is a git remote rather than a
// local directory path.
func isRemoteURL(location string) bool {
	return strings.Contains(location, "://") || strings.HasPrefix(location, "git@")
}

// printAnalyzeResult prints the run summary to stdout.
func printAnalyzeResult(job *model.AnalysisJob, elapsed time.Duration) {
	fmt.Println()
	ui.Success("Analysis complete")
	if job.TotalFiles != nil {
		fmt.Printf("Files Analyzed: %s of %s\n", ui.CountText(job.ProcessedFiles), ui.CountText(*job.TotalFiles))
	} else {
		fmt.Printf("Files Analyzed: %s\n", ui.CountText(job.ProcessedFiles))
	}
	if job.ParseFailures > 0 {
		ui.Warningf("Parse failures: %d", job.ParseFailures)
	}
	if job.FailedUnits > 0 {
		ui.Warningf("Units without summary: %d (retried on next run)", job.FailedUnits)
	}
	fmt.Printf("Elapsed: %s\n", elapsed.Round(time.Millisecond))
	fmt.Println()
	fmt.Println("Run 'codescribe tree' to browse the summaries.")
}
