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

// Package store persists the repository tree and analysis jobs in a
// local SQLite database. Every summary write commits independently, so
// an interrupted run leaves durable partial progress behind.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a repository, node, or job does not
	// exist.
	ErrNotFound = errors.New("not found")

	// ErrJobConflict is returned when a repository already has a job in
	// a non-terminal state.
	ErrJobConflict = errors.New("job already active for repository")
)

// Store wraps the SQLite connection. Safe for concurrent use; writes
// serialize on SQLite's own locking with a busy timeout.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
	path   string
}

// Open opens or creates the database at path, applying pragmas and the
// schema. The parent directory is created if missing.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &Store{conn: conn, logger: logger, path: path}
	if err := s.initSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	logger.Debug("store.open.complete", "path", path)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS repositories (
			id               TEXT PRIMARY KEY,
			owner            TEXT NOT NULL,
			name             TEXT NOT NULL,
			url              TEXT NOT NULL,
			default_branch   TEXT NOT NULL DEFAULT 'main',
			last_commit_hash TEXT NOT NULL DEFAULT '',
			fingerprint      TEXT NOT NULL DEFAULT '',
			summary          TEXT,
			created_at       TEXT NOT NULL,
			updated_at       TEXT NOT NULL,
			UNIQUE (owner, name)
		);

		CREATE TABLE IF NOT EXISTS directories (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			repository_id TEXT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
			parent_id     INTEGER REFERENCES directories(id) ON DELETE CASCADE,
			path          TEXT NOT NULL,
			name          TEXT NOT NULL,
			fingerprint   TEXT NOT NULL DEFAULT '',
			summary       TEXT,
			updated_at    TEXT NOT NULL,
			UNIQUE (repository_id, path)
		);

		CREATE TABLE IF NOT EXISTS files (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			directory_id  INTEGER NOT NULL REFERENCES directories(id) ON DELETE CASCADE,
			repository_id TEXT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
			path          TEXT NOT NULL,
			name          TEXT NOT NULL,
			language      TEXT NOT NULL DEFAULT '',
			fingerprint   TEXT NOT NULL DEFAULT '',
			line_count    INTEGER NOT NULL DEFAULT 0,
			summary       TEXT,
			parse_error   TEXT,
			updated_at    TEXT NOT NULL,
			UNIQUE (repository_id, path)
		);

		CREATE TABLE IF NOT EXISTS code_units (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			file_id     INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
			parent_id   INTEGER REFERENCES code_units(id) ON DELETE CASCADE,
			kind        TEXT NOT NULL,
			name        TEXT NOT NULL,
			start_line  INTEGER NOT NULL,
			end_line    INTEGER NOT NULL,
			signature   TEXT,
			description TEXT,
			needs_retry INTEGER NOT NULL DEFAULT 0,
			metadata    TEXT,
			UNIQUE (file_id, start_line, name)
		);

		CREATE TABLE IF NOT EXISTS analysis_jobs (
			id              TEXT PRIMARY KEY,
			repository_id   TEXT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
			status          TEXT NOT NULL DEFAULT 'pending',
			job_type        TEXT NOT NULL,
			progress        INTEGER NOT NULL DEFAULT 0,
			total_files     INTEGER,
			processed_files INTEGER NOT NULL DEFAULT 0,
			error_message   TEXT,
			failed_units    INTEGER NOT NULL DEFAULT 0,
			parse_failures  INTEGER NOT NULL DEFAULT 0,
			created_at      TEXT NOT NULL,
			started_at      TEXT,
			completed_at    TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_directories_repo ON directories(repository_id);
		CREATE INDEX IF NOT EXISTS idx_files_repo ON files(repository_id);
		CREATE INDEX IF NOT EXISTS idx_files_dir ON files(directory_id);
		CREATE INDEX IF NOT EXISTS idx_units_file ON code_units(file_id);
		CREATE INDEX IF NOT EXISTS idx_jobs_repo ON analysis_jobs(repository_id, status);
		CREATE INDEX IF NOT EXISTS idx_jobs_created ON analysis_jobs(created_at DESC);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// timestamp helpers: times are stored as RFC 3339 UTC strings.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func fromNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func fromNullInt(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}
