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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(ConfigDir(dir), 0750))

	cfg := DefaultConfig(dir)
	cfg.Repository.Owner = "acme"
	cfg.Repository.Name = "widget"
	cfg.Repository.URL = "https://github.com/acme/widget"
	cfg.Provider.Type = "openai"
	cfg.Analysis.Model = "gpt-4o-mini"
	cfg.Analysis.Workers = 8

	path := ConfigPath(dir)
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "acme", loaded.Repository.Owner)
	assert.Equal(t, "widget", loaded.Repository.Name)
	assert.Equal(t, "https://github.com/acme/widget", loaded.Repository.URL)
	assert.Equal(t, "openai", loaded.Provider.Type)
	assert.Equal(t, "gpt-4o-mini", loaded.Analysis.Model)
	assert.Equal(t, 8, loaded.Analysis.Workers)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "codescribe init")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(ConfigDir(dir), 0750))
	cfg := DefaultConfig(dir)
	cfg.Provider.APIKey = "from-file"
	path := ConfigPath(dir)
	require.NoError(t, SaveConfig(cfg, path))

	t.Setenv("CODESCRIBE_API_KEY", "from-env")
	t.Setenv("CODESCRIBE_MODEL", "llama3.2")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", loaded.Provider.APIKey)
	assert.Equal(t, "llama3.2", loaded.Analysis.Model)
}

func TestDefaultConfigUsesDirectoryName(t *testing.T) {
	cfg := DefaultConfig("/tmp/some/widget")
	assert.Equal(t, "local", cfg.Repository.Owner)
	assert.Equal(t, "widget", cfg.Repository.Name)
	assert.Equal(t, "/tmp/some/widget", cfg.Repository.URL)
	assert.Equal(t, "ollama", cfg.Provider.Type)
}

func TestDataDirEnvOverride(t *testing.T) {
	t.Setenv("CODESCRIBE_DATA_DIR", "/tmp/codescribe-test-data")
	dir, err := DataDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/codescribe-test-data", dir)
}

func TestIsRemoteURL(t *testing.T) {
	tests := []struct {
		location string
		want     bool
	}{
		{"https://github.com/acme/widget", true},
		{"git@github.com:acme/widget.git", true},
		{"/home/dev/widget", false},
		{"./widget", false},
		{"widget", false},
	}
	for _, tt := range tests {
		if got := isRemoteURL(tt.location); got != tt.want {
			t.Errorf("isRemoteURL(%q) = %v, want %v", tt.location, got, tt.want)
		}
	}
}
