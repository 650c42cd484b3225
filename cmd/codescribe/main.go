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

// Package main implements the codescribe CLI for analyzing repositories
// and browsing the generated summary hierarchy.
//
// Usage:
//
//	codescribe init                   Create .codescribe/project.yaml configuration
//	codescribe analyze                Analyze the repository (incremental by default)
//	codescribe status [--json]        Show repository and job status
//	codescribe tree [--json]          Print the summarized tree
//	codescribe cancel [job-id]        Cancel a pending or running job
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kraklabs/codescribe/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"     // Version string
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// GlobalFlags carries flags shared across commands, used mainly to
// decide whether interactive output (progress bars, color) is wanted.
type GlobalFlags struct {
	// JSON indicates machine-readable output; implies Quiet.
	JSON bool

	// Quiet suppresses progress bars and informational output.
	Quiet bool

	// NoColor disables ANSI color in output.
	NoColor bool

	// Verbose raises the log level (counts of -v).
	Verbose int
}

// main dispatches to command handlers.
//
// Global flags:
//   - --version: Display version information and exit
//   - --config: Path to .codescribe/project.yaml configuration file
//
// Commands:
//   - init: Create .codescribe/project.yaml configuration
//   - analyze: Analyze the repository and generate summaries
//   - status: Show repository and job status
//   - tree: Print the summarized directory tree
//   - cancel: Cancel a pending or running job
//   - completion: Generate shell completion script
func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "", "Path to .codescribe/project.yaml (default: ./.codescribe/project.yaml)")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `codescribe - hierarchical code summarization

codescribe analyzes a repository bottom-up: it extracts code units with
Tree-sitter, fingerprints file content, and generates natural-language
summaries for units, files, directories, and the repository as a whole.
Re-runs are incremental: only changed files and their ancestor
directories are re-summarized.

Usage:
  codescribe <command> [options]

Commands:
  init          Create .codescribe/project.yaml configuration
  analyze       Analyze the repository (incremental by default)
  status        Show repository and job status
  tree          Print the summarized directory tree
  cancel        Cancel a pending or running job
  completion    Generate shell completion script (bash|zsh|fish)

Global Options:
  --config      Path to .codescribe/project.yaml
  --no-color    Disable colored output
  --version     Show version and exit

Examples:
  codescribe init                    Create configuration interactively
  codescribe analyze                 Incremental analysis
  codescribe analyze --full          Re-analyze everything from scratch
  codescribe status --json           Output status as JSON
  codescribe tree                    Print the summarized tree
  codescribe cancel                  Cancel the active job

Getting Started:
  1. Initialize configuration:  codescribe init
  2. Analyze your repository:   codescribe analyze
  3. Browse the summaries:      codescribe tree

Data Storage:
  Data is stored locally in ~/.codescribe/ (override: CODESCRIBE_DATA_DIR)

Environment Variables:
  OLLAMA_HOST            Ollama URL (default: http://localhost:11434)
  CODESCRIBE_API_KEY     Provider API key (overrides project.yaml)
  CODESCRIBE_MODEL       Model name (overrides project.yaml)

For detailed command help: codescribe <command> --help

`)
	}

	flag.Parse()
	ui.InitColors(*noColor)

	if *showVersion {
		fmt.Printf("codescribe version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs)
	case "analyze":
		runAnalyze(cmdArgs, *configPath)
	case "status":
		runStatus(cmdArgs, *configPath)
	case "tree":
		runTree(cmdArgs, *configPath)
	case "cancel":
		runCancel(cmdArgs, *configPath)
	case "completion":
		runCompletion(cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
