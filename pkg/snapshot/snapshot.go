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

// Package snapshot loads one point-in-time view of a repository's file
// tree, assigns content fingerprints, and diffs snapshots into the
// minimal dirty set that a run must re-summarize.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loader errors, mapped from the source-hosting collaborator.
var (
	// ErrNotFound means the repository location does not exist. Fatal
	// for the run.
	ErrNotFound = errors.New("repository not found")

	// ErrAuthRequired means the source host rejected the fetch for lack
	// of credentials. Fatal for the run.
	ErrAuthRequired = errors.New("authentication required")

	// ErrRateLimited means the source host throttled the fetch.
	// Retryable with backoff.
	ErrRateLimited = errors.New("source host rate limited")
)

// FileEntry is one file of a snapshot, with its content fingerprint.
type FileEntry struct {
	Path        string
	Content     []byte
	Fingerprint string
}

// Snapshot is a filtered, fingerprinted view of a repository tree at
// one commit. Files are sorted by path.
type Snapshot struct {
	CommitHash string
	Files      []FileEntry
}

// Fingerprints returns the path -> fingerprint map of the snapshot.
func (s *Snapshot) Fingerprints() map[string]string {
	m := make(map[string]string, len(s.Files))
	for _, f := range s.Files {
		m[f.Path] = f.Fingerprint
	}
	return m
}

// File returns the entry for path and whether it exists.
func (s *Snapshot) File(path string) (*FileEntry, bool) {
	i := sort.Search(len(s.Files), func(i int) bool { return s.Files[i].Path >= path })
	if i < len(s.Files) && s.Files[i].Path == path {
		return &s.Files[i], true
	}
	return nil, false
}

// Filter controls which files are admitted into a snapshot.
type Filter struct {
	// MaxFileSize excludes files larger than this many bytes.
	// Zero means no limit.
	MaxFileSize int64

	// ExcludeNames are exact base names to skip (lockfiles and the
	// like).
	ExcludeNames []string
}

// DefaultFilter matches the ingestion defaults: skip oversized files
// and generated lockfiles.
func DefaultFilter() Filter {
	return Filter{
		MaxFileSize:  1 << 20, // 1 MiB
		ExcludeNames: []string{"package-lock.json", "yarn.lock", "Cargo.lock", "go.sum"},
	}
}

// admits reports whether a file with the given base name, size, and
// leading content bytes belongs in the snapshot. Hidden files and
// binaries (NUL byte in the first 8KB) are always skipped.
func (f Filter) admits(name string, size int64, head []byte) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	for _, n := range f.ExcludeNames {
		if name == n {
			return false
		}
	}
	if f.MaxFileSize > 0 && size > f.MaxFileSize {
		return false
	}
	if bytes.IndexByte(head, 0x00) >= 0 {
		return false
	}
	return true
}

// DirLoader builds snapshots from a local directory tree. The commit
// identifier is supplied by the caller (empty for non-git sources).
type DirLoader struct {
	logger *slog.Logger
	filter Filter
}

// NewDirLoader creates a local-directory snapshot loader.
func NewDirLoader(filter Filter, logger *slog.Logger) *DirLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirLoader{logger: logger, filter: filter}
}

// Load walks root and returns the filtered, fingerprinted snapshot.
// Hidden directories (including .git) are skipped entirely.
func (l *DirLoader) Load(root, commitHash string) (*Snapshot, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, root)
		}
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotFound, root)
	}

	snap := &Snapshot{CommitHash: commitHash}
	skipped := 0

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}

		head, err := readHead(path)
		if err != nil {
			return err
		}
		if !l.filter.admits(d.Name(), fi.Size(), head) {
			skipped++
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		snap.Files = append(snap.Files, FileEntry{
			Path:        filepath.ToSlash(rel),
			Content:     content,
			Fingerprint: Fingerprint(content),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk tree: %w", err)
	}

	sort.Slice(snap.Files, func(i, j int) bool { return snap.Files[i].Path < snap.Files[j].Path })

	l.logger.Info("snapshot.load.complete",
		"root", root,
		"files", len(snap.Files),
		"skipped", skipped,
	)
	return snap, nil
}

// FetchSnapshot loads a snapshot from a local directory, ignoring the
// ref. It gives DirLoader the same fetch surface as the git-backed
// loader, so local paths and remote repositories interchange.
func (l *DirLoader) FetchSnapshot(ctx context.Context, location, _ string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.Load(location, "")
}

// readHead returns up to the first 8KB of the file for binary sniffing.
func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, 8192)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return buf[:n], nil
}
