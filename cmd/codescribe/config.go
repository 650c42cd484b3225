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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/codescribe/pkg/summarize"
)

// Config is the project configuration stored in .codescribe/project.yaml.
type Config struct {
	Repository RepositoryConfig         `yaml:"repository"`
	Provider   summarize.ProviderConfig `yaml:"provider"`
	Analysis   AnalysisConfig           `yaml:"analysis"`
}

// RepositoryConfig identifies the repository under analysis.
type RepositoryConfig struct {
	Owner string `yaml:"owner"`
	Name  string `yaml:"name"`

	// URL is a git remote or a local directory path.
	URL string `yaml:"url"`

	DefaultBranch string `yaml:"default_branch"`
}

// AnalysisConfig tunes the summarization pipeline.
type AnalysisConfig struct {
	// Model overrides the provider's default model.
	Model string `yaml:"model,omitempty"`

	// Workers bounds the parallel file phase. Zero means the default.
	Workers int `yaml:"workers,omitempty"`

	// MaxContextChars bounds prompt context. Zero means the default.
	MaxContextChars int `yaml:"max_context_chars,omitempty"`

	// MaxFileSize excludes files larger than this many bytes from
	// snapshots. Zero means the built-in default.
	MaxFileSize int64 `yaml:"max_file_size,omitempty"`

	// Extractor selects the code-unit extractor: "treesitter"
	// (default) or "simplified".
	Extractor string `yaml:"extractor,omitempty"`
}

// ConfigDir returns the .codescribe directory under dir.
func ConfigDir(dir string) string {
	return filepath.Join(dir, ".codescribe")
}

// ConfigPath returns the project.yaml path under dir.
func ConfigPath(dir string) string {
	return filepath.Join(ConfigDir(dir), "project.yaml")
}

// DataDir returns the per-user data directory holding the sqlite
// database and git mirrors. Overridable via CODESCRIBE_DATA_DIR.
func DataDir() (string, error) {
	if dir := os.Getenv("CODESCRIBE_DATA_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".codescribe"), nil
}

// DefaultConfig returns a configuration with sensible defaults for a
// local repository at dir.
func DefaultConfig(dir string) *Config {
	base := filepath.Base(dir)
	return &Config{
		Repository: RepositoryConfig{
			Owner:         "local",
			Name:          base,
			URL:           dir,
			DefaultBranch: "main",
		},
		Provider: summarize.ProviderConfig{
			Type: "ollama",
		},
		Analysis: AnalysisConfig{
			Workers: 4,
		},
	}
}

// LoadConfig reads the configuration from path, or from
// ./.codescribe/project.yaml when path is empty. Environment variables
// override provider credentials after the file is parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		path = ConfigPath(cwd)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the user's own flag
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no configuration at %s (run 'codescribe init' first)", path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// SaveConfig writes the configuration as YAML to path.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	header := "# codescribe project configuration\n# Provider API keys may also be set via environment variables\n# (CODESCRIBE_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY).\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets credentials live outside the checked-in YAML.
func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv("CODESCRIBE_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if url := os.Getenv("CODESCRIBE_PROVIDER_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if model := os.Getenv("CODESCRIBE_MODEL"); model != "" {
		cfg.Analysis.Model = model
	}
}

// repoKey is the owner/name identity used in messages and mirrors.
func repoKey(cfg *Config) string {
	return strings.TrimSuffix(cfg.Repository.Owner, "/") + "/" + cfg.Repository.Name
}
