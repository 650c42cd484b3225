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

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kraklabs/codescribe/pkg/model"
)

// CreateRepository registers a repository. CreatedAt/UpdatedAt are set
// if zero.
func (s *Store) CreateRepository(ctx context.Context, repo *model.Repository) error {
	now := time.Now().UTC()
	if repo.CreatedAt.IsZero() {
		repo.CreatedAt = now
	}
	repo.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO repositories (id, owner, name, url, default_branch, last_commit_hash, fingerprint, summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, repo.ID, repo.Owner, repo.Name, repo.URL, repo.DefaultBranch,
		repo.LastCommitHash, repo.Fingerprint, nullString(repo.Summary),
		formatTime(repo.CreatedAt), formatTime(repo.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}
	return nil
}

const repoColumns = `id, owner, name, url, default_branch, last_commit_hash, fingerprint, summary, created_at, updated_at`

func scanRepository(row *sql.Row) (*model.Repository, error) {
	var repo model.Repository
	var summary sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&repo.ID, &repo.Owner, &repo.Name, &repo.URL,
		&repo.DefaultBranch, &repo.LastCommitHash, &repo.Fingerprint,
		&summary, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan repository: %w", err)
	}

	repo.Summary = fromNullString(summary)
	repo.CreatedAt = parseTime(createdAt)
	repo.UpdatedAt = parseTime(updatedAt)
	return &repo, nil
}

// GetRepository fetches a repository by ID.
func (s *Store) GetRepository(ctx context.Context, id string) (*model.Repository, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+repoColumns+` FROM repositories WHERE id = ?`, id)
	return scanRepository(row)
}

// GetRepositoryByName fetches a repository by its owner/name pair.
func (s *Store) GetRepositoryByName(ctx context.Context, owner, name string) (*model.Repository, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+repoColumns+` FROM repositories WHERE owner = ? AND name = ?`, owner, name)
	return scanRepository(row)
}

// ListRepositories returns all registered repositories ordered by
// owner/name.
func (s *Store) ListRepositories(ctx context.Context) ([]model.Repository, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+repoColumns+` FROM repositories ORDER BY owner, name`)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Repository
	for rows.Next() {
		var repo model.Repository
		var summary sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&repo.ID, &repo.Owner, &repo.Name, &repo.URL,
			&repo.DefaultBranch, &repo.LastCommitHash, &repo.Fingerprint,
			&summary, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repo.Summary = fromNullString(summary)
		repo.CreatedAt = parseTime(createdAt)
		repo.UpdatedAt = parseTime(updatedAt)
		out = append(out, repo)
	}
	return out, rows.Err()
}

// SetRepositorySummary commits the repository-level summary.
func (s *Store) SetRepositorySummary(ctx context.Context, id, summary string) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE repositories SET summary = ?, updated_at = ? WHERE id = ?
	`, summary, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("set repository summary: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRepositoryAnalyzed records the commit hash and snapshot
// fingerprint of the last fully analyzed tree. Called only when a run
// completes, so a matching fingerprint on a later run means the whole
// diff can be skipped.
func (s *Store) SetRepositoryAnalyzed(ctx context.Context, id, commitHash, fingerprint string) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE repositories SET last_commit_hash = ?, fingerprint = ?, updated_at = ? WHERE id = ?
	`, commitHash, fingerprint, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("set repository analyzed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRepository removes a repository and, via cascade, its entire
// tree and job history.
func (s *Store) DeleteRepository(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM repositories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete repository: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
