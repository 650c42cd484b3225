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
	"time"

	"github.com/kraklabs/codescribe/internal/output"
	"github.com/kraklabs/codescribe/internal/ui"
	"github.com/kraklabs/codescribe/pkg/model"
	"github.com/kraklabs/codescribe/pkg/store"
)

// StatusResult represents the repository status for JSON output.
type StatusResult struct {
	Repository string              `json:"repository"`
	URL        string              `json:"url"`
	LastCommit string              `json:"last_commit,omitempty"`
	Summary    string              `json:"summary,omitempty"`
	Jobs       []model.AnalysisJob `json:"jobs,omitempty"`
	Error      string              `json:"error,omitempty"`
	Timestamp  time.Time           `json:"timestamp"`
}

// runStatus executes the 'status' CLI command, displaying the
// repository summary state and recent analysis jobs.
//
// Flags:
//   - --json: Output results as JSON (default: false)
//   - --jobs: Number of recent jobs to show (default: 5)
//
// Examples:
//
//	codescribe status           Display formatted status
//	codescribe status --json    Output as JSON for programmatic use
func runStatus(args []string, configPath string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	jobLimit := fs.Int("jobs", 5, "Number of recent jobs to show")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codescribe status [options]

Shows repository summary state and recent analysis jobs.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		statusFail(*jsonOutput, err)
	}

	result := &StatusResult{
		Repository: repoKey(cfg),
		URL:        cfg.Repository.URL,
		Timestamp:  time.Now(),
	}

	dataDir, err := DataDir()
	if err != nil {
		statusFail(*jsonOutput, err)
	}

	dbPath := filepath.Join(dataDir, "codescribe.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		result.Error = "Repository not analyzed yet. Run 'codescribe analyze' first."
		if *jsonOutput {
			_ = output.JSON(result)
		} else {
			fmt.Printf("Repository '%s' not analyzed yet.\n", result.Repository)
			fmt.Println("Run 'codescribe analyze' to generate summaries.")
		}
		os.Exit(0)
	}

	st, err := store.Open(dbPath, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	if err != nil {
		statusFail(*jsonOutput, fmt.Errorf("open database: %w", err))
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()
	repo, err := st.GetRepositoryByName(ctx, cfg.Repository.Owner, cfg.Repository.Name)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			result.Error = "Repository not registered. Run 'codescribe analyze' first."
		} else {
			result.Error = err.Error()
		}
		if *jsonOutput {
			_ = output.JSON(result)
		} else {
			fmt.Println(result.Error)
		}
		os.Exit(0)
	}

	result.LastCommit = repo.LastCommitHash
	if repo.Summary != nil {
		result.Summary = *repo.Summary
	}
	if jobsList, err := st.ListJobs(ctx, repo.ID, *jobLimit); err == nil {
		result.Jobs = jobsList
	}

	if *jsonOutput {
		_ = output.JSON(result)
		return
	}
	printStatus(result)
}

func statusFail(jsonOutput bool, err error) {
	if jsonOutput {
		_ = output.JSONError(err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

// printStatus prints the status result as formatted text to stdout.
func printStatus(result *StatusResult) {
	ui.Header("Repository Status")
	fmt.Printf("%s   %s\n", ui.Label("Repository:"), result.Repository)
	fmt.Printf("%s       %s\n", ui.Label("Source:"), result.URL)
	if result.LastCommit != "" {
		fmt.Printf("%s  %s\n", ui.Label("Last Commit:"), ui.DimText(result.LastCommit))
	}
	if result.Summary != "" {
		fmt.Println()
		ui.SubHeader("Summary:")
		fmt.Printf("  %s\n", result.Summary)
	}

	if len(result.Jobs) > 0 {
		fmt.Println()
		ui.SubHeader("Recent Jobs:")
		for _, job := range result.Jobs {
			line := fmt.Sprintf("  %s  %-10s %-12s %3d%%", job.ID[:8], job.JobType, job.Status, job.Progress)
			if job.ErrorMessage != nil {
				line += "  " + *job.ErrorMessage
			}
			fmt.Println(line)
		}
	}

	if result.Error != "" {
		fmt.Println()
		ui.Warning(result.Error)
	}
}
