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
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kraklabs/codescribe/pkg/model"
)

// ---------------------------------------------------------------------------
// Directories
// ---------------------------------------------------------------------------

// UpsertDirectory creates or refreshes a directory row, keyed by
// (repository_id, path), and fills in dir.ID. Summaries are preserved
// on conflict; they are cleared only by re-aggregation.
func (s *Store) UpsertDirectory(ctx context.Context, dir *model.Directory) error {
	dir.UpdatedAt = time.Now().UTC()

	var parent sql.NullInt64
	if dir.ParentID != nil {
		parent = sql.NullInt64{Int64: *dir.ParentID, Valid: true}
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO directories (repository_id, parent_id, path, name, fingerprint, summary, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repository_id, path) DO UPDATE SET
			parent_id = excluded.parent_id,
			name = excluded.name,
			fingerprint = excluded.fingerprint,
			updated_at = excluded.updated_at
	`, dir.RepositoryID, parent, dir.Path, dir.Name, dir.Fingerprint,
		nullString(dir.Summary), formatTime(dir.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert directory: %w", err)
	}

	return s.conn.QueryRowContext(ctx,
		`SELECT id FROM directories WHERE repository_id = ? AND path = ?`,
		dir.RepositoryID, dir.Path).Scan(&dir.ID)
}

// GetDirectory fetches a directory by repository and path ("" for the
// root).
func (s *Store) GetDirectory(ctx context.Context, repoID, path string) (*model.Directory, error) {
	var dir model.Directory
	var parent sql.NullInt64
	var summary sql.NullString
	var updatedAt string

	err := s.conn.QueryRowContext(ctx, `
		SELECT id, repository_id, parent_id, path, name, fingerprint, summary, updated_at
		FROM directories WHERE repository_id = ? AND path = ?
	`, repoID, path).Scan(&dir.ID, &dir.RepositoryID, &parent, &dir.Path,
		&dir.Name, &dir.Fingerprint, &summary, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get directory: %w", err)
	}

	if parent.Valid {
		v := parent.Int64
		dir.ParentID = &v
	}
	dir.Summary = fromNullString(summary)
	dir.UpdatedAt = parseTime(updatedAt)
	return &dir, nil
}

// SetDirectorySummary commits one directory summary.
func (s *Store) SetDirectorySummary(ctx context.Context, id int64, summary string) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE directories SET summary = ?, updated_at = ? WHERE id = ?
	`, summary, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("set directory summary: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDirectory removes a directory subtree. Child directories,
// files, and units go with it via cascade.
func (s *Store) DeleteDirectory(ctx context.Context, repoID, path string) error {
	_, err := s.conn.ExecContext(ctx,
		`DELETE FROM directories WHERE repository_id = ? AND path = ?`, repoID, path)
	if err != nil {
		return fmt.Errorf("delete directory: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

// UpsertFile creates or refreshes a file row, keyed by (repository_id,
// path), and fills in f.ID. Fingerprint, language, line count, and
// parse error are replaced; the summary survives until re-aggregation
// overwrites it.
func (s *Store) UpsertFile(ctx context.Context, f *model.File) error {
	f.UpdatedAt = time.Now().UTC()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO files (directory_id, repository_id, path, name, language, fingerprint, line_count, summary, parse_error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repository_id, path) DO UPDATE SET
			directory_id = excluded.directory_id,
			name = excluded.name,
			language = excluded.language,
			fingerprint = excluded.fingerprint,
			line_count = excluded.line_count,
			parse_error = excluded.parse_error,
			updated_at = excluded.updated_at
	`, f.DirectoryID, f.RepositoryID, f.Path, f.Name, f.Language,
		f.Fingerprint, f.LineCount, nullString(f.Summary),
		nullString(f.ParseError), formatTime(f.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert file: %w", err)
	}

	return s.conn.QueryRowContext(ctx,
		`SELECT id FROM files WHERE repository_id = ? AND path = ?`,
		f.RepositoryID, f.Path).Scan(&f.ID)
}

// GetFile fetches a file by repository and path.
func (s *Store) GetFile(ctx context.Context, repoID, path string) (*model.File, error) {
	var f model.File
	var summary, parseError sql.NullString
	var updatedAt string

	err := s.conn.QueryRowContext(ctx, `
		SELECT id, directory_id, repository_id, path, name, language, fingerprint, line_count, summary, parse_error, updated_at
		FROM files WHERE repository_id = ? AND path = ?
	`, repoID, path).Scan(&f.ID, &f.DirectoryID, &f.RepositoryID, &f.Path,
		&f.Name, &f.Language, &f.Fingerprint, &f.LineCount,
		&summary, &parseError, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	f.Summary = fromNullString(summary)
	f.ParseError = fromNullString(parseError)
	f.UpdatedAt = parseTime(updatedAt)
	return &f, nil
}

// SetFileSummary commits one file summary.
func (s *Store) SetFileSummary(ctx context.Context, id int64, summary string) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE files SET summary = ?, updated_at = ? WHERE id = ?
	`, summary, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("set file summary: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFile removes a file and its units.
func (s *Store) DeleteFile(ctx context.Context, repoID, path string) error {
	_, err := s.conn.ExecContext(ctx,
		`DELETE FROM files WHERE repository_id = ? AND path = ?`, repoID, path)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// Fingerprints returns the stored path → fingerprint map for a
// repository, the baseline for incremental change detection.
func (s *Store) Fingerprints(ctx context.Context, repoID string) (map[string]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT path, fingerprint FROM files WHERE repository_id = ?`, repoID)
	if err != nil {
		return nil, fmt.Errorf("load fingerprints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var path, fp string
		if err := rows.Scan(&path, &fp); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		out[path] = fp
	}
	return out, rows.Err()
}

// FilesNeedingRetry returns the paths of files whose analysis fell
// short on an earlier run: the file summary is missing, or a unit is
// flagged needs_retry. Incremental change detection re-queues them
// even when their fingerprints are unchanged.
func (s *Store) FilesNeedingRetry(ctx context.Context, repoID string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT DISTINCT f.path
		FROM files f
		LEFT JOIN code_units u ON u.file_id = f.id AND u.needs_retry = 1
		WHERE f.repository_id = ? AND (f.summary IS NULL OR u.id IS NOT NULL)
		ORDER BY f.path
	`, repoID)
	if err != nil {
		return nil, fmt.Errorf("load files needing retry: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan retry path: %w", err)
		}
		out = append(out, path)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Code units
// ---------------------------------------------------------------------------

// ReplaceUnits swaps a file's units for a freshly extracted set in one
// transaction and fills in the assigned IDs. Units must arrive in
// source order with parents before their children; ParentID linkage is
// resolved through parentIndex (index into units, -1 for top level).
func (s *Store) ReplaceUnits(ctx context.Context, fileID int64, units []model.CodeUnit, parentIndex []int) ([]model.CodeUnit, error) {
	if len(parentIndex) != len(units) {
		return nil, fmt.Errorf("replace units: parent index length mismatch")
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin replace units: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM code_units WHERE file_id = ?`, fileID); err != nil {
		return nil, fmt.Errorf("clear units: %w", err)
	}

	for i := range units {
		u := &units[i]
		u.FileID = fileID

		var parent sql.NullInt64
		if pi := parentIndex[i]; pi >= 0 {
			if pi >= i {
				return nil, fmt.Errorf("replace units: parent %d not inserted before child %d", pi, i)
			}
			parent = sql.NullInt64{Int64: units[pi].ID, Valid: true}
			v := units[pi].ID
			u.ParentID = &v
		}

		var meta sql.NullString
		if len(u.Metadata) > 0 {
			b, err := json.Marshal(u.Metadata)
			if err != nil {
				return nil, fmt.Errorf("encode unit metadata: %w", err)
			}
			meta = sql.NullString{String: string(b), Valid: true}
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO code_units (file_id, parent_id, kind, name, start_line, end_line, signature, description, needs_retry, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, fileID, parent, string(u.Kind), u.Name, u.StartLine, u.EndLine,
			nullString(u.Signature), nullString(u.Description),
			boolToInt(u.NeedsRetry), meta)
		if err != nil {
			return nil, fmt.Errorf("insert unit %q: %w", u.Name, err)
		}
		u.ID, err = res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("unit id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace units: %w", err)
	}
	return units, nil
}

// SetUnitDescription commits one unit description and clears the retry
// flag.
func (s *Store) SetUnitDescription(ctx context.Context, id int64, description string) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE code_units SET description = ?, needs_retry = 0 WHERE id = ?
	`, description, id)
	if err != nil {
		return fmt.Errorf("set unit description: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkUnitRetry flags a unit whose summarization failed node-locally.
func (s *Store) MarkUnitRetry(ctx context.Context, id int64) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE code_units SET needs_retry = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark unit retry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UnitsForFile returns a file's units ordered by start line.
func (s *Store) UnitsForFile(ctx context.Context, fileID int64) ([]model.CodeUnit, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, file_id, parent_id, kind, name, start_line, end_line, signature, description, needs_retry, metadata
		FROM code_units WHERE file_id = ? ORDER BY start_line, end_line DESC
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.CodeUnit
	for rows.Next() {
		var u model.CodeUnit
		var parent sql.NullInt64
		var kind string
		var signature, description, meta sql.NullString
		var needsRetry int
		if err := rows.Scan(&u.ID, &u.FileID, &parent, &kind, &u.Name,
			&u.StartLine, &u.EndLine, &signature, &description,
			&needsRetry, &meta); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		if parent.Valid {
			v := parent.Int64
			u.ParentID = &v
		}
		u.Kind = model.UnitKind(kind)
		u.Signature = fromNullString(signature)
		u.Description = fromNullString(description)
		u.NeedsRetry = needsRetry != 0
		if meta.Valid {
			if err := json.Unmarshal([]byte(meta.String), &u.Metadata); err != nil {
				return nil, fmt.Errorf("decode unit metadata: %w", err)
			}
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Tree queries
// ---------------------------------------------------------------------------

// GetTree returns the navigable hierarchy for a repository: every
// directory and file with its summary, parents before children.
func (s *Store) GetTree(ctx context.Context, repoID string) ([]model.TreeNode, error) {
	var nodes []model.TreeNode

	rows, err := s.conn.QueryContext(ctx,
		`SELECT path, summary FROM directories WHERE repository_id = ?`, repoID)
	if err != nil {
		return nil, fmt.Errorf("list directories: %w", err)
	}
	for rows.Next() {
		var n model.TreeNode
		var summary sql.NullString
		if err := rows.Scan(&n.Path, &summary); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan tree directory: %w", err)
		}
		n.Kind = model.KindDirectory
		n.Summary = fromNullString(summary)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	rows, err = s.conn.QueryContext(ctx,
		`SELECT path, summary FROM files WHERE repository_id = ?`, repoID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var n model.TreeNode
		var summary sql.NullString
		if err := rows.Scan(&n.Path, &summary); err != nil {
			return nil, fmt.Errorf("scan tree file: %w", err)
		}
		n.Kind = model.KindFile
		n.Summary = fromNullString(summary)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(nodes) == 0 {
		return nil, ErrNotFound
	}

	// Parent-first: shallower paths before deeper ones, directories
	// before files at equal path, otherwise lexicographic.
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Kind == model.KindDirectory && b.Kind != model.KindDirectory
	})
	return nodes, nil
}

// CountUnitsNeedingRetry returns how many units in a repository still
// lack a description because of node-local failures.
func (s *Store) CountUnitsNeedingRetry(ctx context.Context, repoID string) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM code_units u
		JOIN files f ON f.id = u.file_id
		WHERE f.repository_id = ? AND u.needs_retry = 1
	`, repoID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count retry units: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
