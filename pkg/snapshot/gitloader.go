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

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// GitLoader fetches repository snapshots from a git host, keeping a
// local mirror per repository under StorageDir.
type GitLoader struct {
	logger     *slog.Logger
	storageDir string
	filter     Filter

	// Token is an optional bearer token for private repositories.
	Token string
}

// NewGitLoader creates a git-backed snapshot loader. Mirrors live under
// storageDir/<owner>/<name>.
func NewGitLoader(storageDir string, filter Filter, logger *slog.Logger) *GitLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitLoader{
		logger:     logger,
		storageDir: storageDir,
		filter:     filter,
	}
}

// mirrorPath returns the local checkout path for a clone URL.
func (l *GitLoader) mirrorPath(url string) string {
	trimmed := strings.TrimSuffix(url, ".git")
	parts := strings.Split(trimmed, "/")
	if len(parts) >= 2 {
		return filepath.Join(l.storageDir, parts[len(parts)-2], parts[len(parts)-1])
	}
	return filepath.Join(l.storageDir, parts[len(parts)-1])
}

// FetchSnapshot clones or updates the local mirror of url at branch and
// returns the fingerprinted snapshot together with the checked-out
// commit hash.
func (l *GitLoader) FetchSnapshot(ctx context.Context, url, branch string) (*Snapshot, error) {
	path := l.mirrorPath(url)

	repo, err := git.PlainOpen(path)
	switch {
	case err == nil:
		if err := l.update(ctx, repo, branch); err != nil {
			return nil, err
		}
	case errors.Is(err, git.ErrRepositoryNotExists):
		repo, err = l.clone(ctx, url, branch, path)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("open mirror: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}
	commit := head.Hash().String()

	l.logger.Info("snapshot.fetch.complete",
		"url", url,
		"branch", branch,
		"commit", commit[:8],
	)

	loader := NewDirLoader(l.filter, l.logger)
	return loader.Load(path, commit)
}

func (l *GitLoader) clone(ctx context.Context, url, branch, path string) (*git.Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create mirror dir: %w", err)
	}

	opts := &git.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Auth:          l.auth(),
	}
	repo, err := git.PlainCloneContext(ctx, path, false, opts)
	if err != nil {
		return nil, mapTransportError(err)
	}
	return repo, nil
}

func (l *GitLoader) update(ctx context.Context, repo *git.Repository, branch string) error {
	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: "origin",
		Auth:       l.auth(),
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return mapTransportError(err)
	}

	remote, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return fmt.Errorf("resolve origin/%s: %w", branch, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if err := wt.Reset(&git.ResetOptions{Mode: git.HardReset, Commit: remote.Hash()}); err != nil {
		return fmt.Errorf("reset to origin/%s: %w", branch, err)
	}
	return nil
}

func (l *GitLoader) auth() transport.AuthMethod {
	if l.Token == "" {
		return nil
	}
	// GitHub-style token auth: any username, token as password.
	return &http.BasicAuth{Username: "token", Password: l.Token}
}

// mapTransportError maps go-git transport failures onto the loader's
// error taxonomy.
func mapTransportError(err error) error {
	switch {
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		return fmt.Errorf("%w: %v", ErrAuthRequired, err)
	case strings.Contains(err.Error(), "429"),
		strings.Contains(strings.ToLower(err.Error()), "rate limit"):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	default:
		return fmt.Errorf("fetch snapshot: %w", err)
	}
}
