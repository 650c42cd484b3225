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
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// initFlags holds parsed flags for the init command.
type initFlags struct {
	force, nonInteractive    bool
	owner, name, url, branch string
	provider, apiKey, model  string
	providerURL              string
}

// runInit executes the 'init' CLI command, creating a
// .codescribe/project.yaml configuration file.
//
// Flags:
//   - --force: Overwrite existing configuration (default: false)
//   - -y: Non-interactive mode, use all defaults (default: false)
//   - --owner / --name: Repository identity (default: "local" / directory name)
//   - --url: Git remote URL or local path (default: current directory)
//   - --branch: Default branch for git remotes (default: main)
//   - --provider: Summary provider (ollama, openai, anthropic, mock)
//   - --provider-url: Provider API base URL
//   - --api-key: Provider API key (optional for local models)
//   - --model: Model name
//
// Examples:
//
//	codescribe init                              Interactive setup
//	codescribe init -y                           Use all defaults
//	codescribe init --url https://github.com/acme/widget --owner acme --name widget
//	codescribe init --provider openai --model gpt-4o-mini
func runInit(args []string) {
	flags := parseInitFlags(args)

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot get current directory: %v\n", err)
		os.Exit(1)
	}

	configPath := ConfigPath(cwd)
	if _, err := os.Stat(configPath); err == nil && !flags.force {
		fmt.Fprintf(os.Stderr, "Error: %s already exists. Use --force to overwrite.\n", configPath)
		os.Exit(1)
	}

	cfg := createInitConfig(cwd, flags)

	if !flags.nonInteractive {
		runInteractiveConfig(bufio.NewReader(os.Stdin), cfg)
	}

	saveInitConfig(cwd, configPath, cfg)
	printNextSteps()
}

func parseInitFlags(args []string) initFlags {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var f initFlags
	fs.BoolVar(&f.force, "force", false, "Overwrite existing configuration")
	fs.BoolVar(&f.nonInteractive, "y", false, "Non-interactive mode (use defaults)")
	fs.StringVar(&f.owner, "owner", "", "Repository owner (default: local)")
	fs.StringVar(&f.name, "name", "", "Repository name (default: directory name)")
	fs.StringVar(&f.url, "url", "", "Git remote URL or local path (default: current directory)")
	fs.StringVar(&f.branch, "branch", "", "Default branch for git remotes (default: main)")
	fs.StringVar(&f.provider, "provider", "", "Summary provider (ollama, openai, anthropic, mock)")
	fs.StringVar(&f.providerURL, "provider-url", "", "Provider API base URL")
	fs.StringVar(&f.apiKey, "api-key", "", "Provider API key (optional for local models)")
	fs.StringVar(&f.model, "model", "", "Model name")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codescribe init [options]

Creates .codescribe/project.yaml configuration file.

Examples:
  codescribe init -y                              Non-interactive with defaults
  codescribe init --provider openai --model gpt-4o-mini
  codescribe init --url https://github.com/acme/widget --owner acme --name widget

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return f
}

func createInitConfig(cwd string, f initFlags) *Config {
	cfg := DefaultConfig(cwd)
	if f.owner != "" {
		cfg.Repository.Owner = f.owner
	}
	if f.name != "" {
		cfg.Repository.Name = f.name
	}
	if f.url != "" {
		cfg.Repository.URL = f.url
	}
	if f.branch != "" {
		cfg.Repository.DefaultBranch = f.branch
	}
	if f.provider != "" {
		cfg.Provider.Type = f.provider
	}
	if f.providerURL != "" {
		cfg.Provider.BaseURL = f.providerURL
	}
	if f.apiKey != "" {
		cfg.Provider.APIKey = f.apiKey
	}
	if f.model != "" {
		cfg.Analysis.Model = f.model
	}
	return cfg
}

func runInteractiveConfig(reader *bufio.Reader, cfg *Config) {
	fmt.Println("codescribe Project Configuration")
	fmt.Println("================================")
	fmt.Println()

	cfg.Repository.Owner = prompt(reader, "Repository owner", cfg.Repository.Owner)
	cfg.Repository.Name = prompt(reader, "Repository name", cfg.Repository.Name)
	cfg.Repository.URL = prompt(reader, "Repository URL or local path", cfg.Repository.URL)
	if !strings.HasPrefix(cfg.Repository.URL, "/") && !strings.HasPrefix(cfg.Repository.URL, ".") {
		cfg.Repository.DefaultBranch = prompt(reader, "Default branch", cfg.Repository.DefaultBranch)
	}

	fmt.Println()
	fmt.Println("Summary providers: ollama, openai, anthropic, mock")
	cfg.Provider.Type = prompt(reader, "Provider", cfg.Provider.Type)
	switch cfg.Provider.Type {
	case "ollama", "local":
		cfg.Provider.BaseURL = prompt(reader, "Ollama URL (empty for http://localhost:11434)", cfg.Provider.BaseURL)
	case "openai", "anthropic", "claude", "openai-compatible":
		cfg.Provider.BaseURL = prompt(reader, "API base URL (empty for provider default)", cfg.Provider.BaseURL)
		cfg.Provider.APIKey = prompt(reader, "API key (or set CODESCRIBE_API_KEY)", cfg.Provider.APIKey)
	}
	cfg.Analysis.Model = prompt(reader, "Model name (empty for provider default)", cfg.Analysis.Model)
	fmt.Println()
}

func saveInitConfig(cwd, configPath string, cfg *Config) {
	dir := ConfigDir(cwd)
	if err := os.MkdirAll(dir, 0750); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot create .codescribe directory: %v\n", err)
		os.Exit(1)
	}
	if err := SaveConfig(cfg, configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot save configuration: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created %s\n", configPath)
	addToGitignore(cwd)
}

func printNextSteps() {
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit .codescribe/project.yaml if needed")
	fmt.Println("  2. Run 'codescribe analyze' to generate summaries")
	fmt.Println("  3. Run 'codescribe tree' to browse the result")
}

// prompt displays an interactive prompt and reads user input from
// stdin. An empty answer keeps the default value.
func prompt(reader *bufio.Reader, label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", label, defaultValue)
	} else {
		fmt.Printf("%s: ", label)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultValue
	}
	return input
}

// addToGitignore adds .codescribe/ to the project's .gitignore file if
// not already present. Missing or unwritable .gitignore is not an
// error.
func addToGitignore(dir string) {
	gitignorePath := filepath.Join(dir, ".gitignore")

	content, err := os.ReadFile(gitignorePath) //nolint:gosec // G304: gitignorePath built from repo dir
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == ".codescribe/" || line == ".codescribe" || line == "/.codescribe/" || line == "/.codescribe" {
			return
		}
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_WRONLY, 0600) //nolint:gosec // G304: gitignorePath built from repo dir
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()

	if len(content) > 0 && content[len(content)-1] != '\n' {
		_, _ = f.WriteString("\n")
	}

	_, _ = f.WriteString("\n# codescribe configuration\n.codescribe/\n")
	fmt.Println("Added .codescribe/ to .gitignore")
}
