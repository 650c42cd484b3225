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
	"strings"

	"github.com/kraklabs/codescribe/internal/output"
	"github.com/kraklabs/codescribe/pkg/model"
	"github.com/kraklabs/codescribe/pkg/store"
)

// runTree executes the 'tree' CLI command, printing the summarized
// hierarchy of the repository: every directory and file with its
// generated summary, parent-first.
//
// Flags:
//   - --json: Output the tree as JSON
//   - --no-summaries: Print paths only
//
// Examples:
//
//	codescribe tree               Print paths with summaries
//	codescribe tree --json        Output TreeNode array as JSON
func runTree(args []string, configPath string) {
	fs := flag.NewFlagSet("tree", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	noSummaries := fs.Bool("no-summaries", false, "Print paths only")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codescribe tree [options]

Prints the summarized repository tree, parent-first.

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

	dataDir, err := DataDir()
	if err != nil {
		statusFail(*jsonOutput, err)
	}

	st, err := store.Open(filepath.Join(dataDir, "codescribe.db"), slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	if err != nil {
		statusFail(*jsonOutput, fmt.Errorf("open database: %w", err))
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()
	repo, err := st.GetRepositoryByName(ctx, cfg.Repository.Owner, cfg.Repository.Name)
	if err != nil {
		statusFail(*jsonOutput, notAnalyzed(err))
	}

	nodes, err := st.GetTree(ctx, repo.ID)
	if err != nil {
		statusFail(*jsonOutput, notAnalyzed(err))
	}

	if *jsonOutput {
		_ = output.JSON(nodes)
		return
	}
	printTree(repo, nodes, !*noSummaries)
}

func notAnalyzed(err error) error {
	if stderrors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("repository not analyzed yet; run 'codescribe analyze' first")
	}
	return err
}

// printTree prints the hierarchy with indentation by path depth.
func printTree(repo *model.Repository, nodes []model.TreeNode, withSummaries bool) {
	for _, node := range nodes {
		depth := 0
		name := repo.Name + "/"
		if node.Path != "" {
			depth = strings.Count(node.Path, "/") + 1
			name = filepath.Base(node.Path)
			if node.Kind == model.KindDirectory {
				name += "/"
			}
		}

		line := strings.Repeat("  ", depth) + name
		if withSummaries && node.Summary != nil {
			line += "  - " + firstLine(*node.Summary)
		}
		fmt.Println(line)
	}
}

// firstLine truncates a summary to its first line for tree display.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
