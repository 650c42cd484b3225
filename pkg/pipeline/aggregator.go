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

// Package pipeline aggregates summaries over the repository tree,
// strictly bottom-up: code units leaf-first within a file, then the
// file, then dirty directories deepest-first, then the repository
// root. Every node write commits independently, so an interrupted run
// leaves durable partial progress that the next run builds on.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kraklabs/codescribe/pkg/extract"
	"github.com/kraklabs/codescribe/pkg/model"
	"github.com/kraklabs/codescribe/pkg/snapshot"
	"github.com/kraklabs/codescribe/pkg/store"
	"github.com/kraklabs/codescribe/pkg/summarize"
)

// ProgressFunc receives file-granular progress while a run executes.
type ProgressFunc func(processed, total int)

// Result carries the diagnostic counts of one run.
type Result struct {
	FilesProcessed int
	FilesRemoved   int

	// FailedUnits counts units left without a description by
	// node-local summarizer failures.
	FailedUnits int

	// ParseFailures counts files whose extraction failed soft.
	ParseFailures int
}

// Aggregator drives extraction and summarization over a dirty set.
type Aggregator struct {
	store      *store.Store
	extractor  extract.Extractor
	summarizer summarize.Summarizer
	logger     *slog.Logger
	workers    int
}

// New creates an aggregator. workers bounds file-level parallelism;
// values below 1 mean sequential.
func New(st *store.Store, ex extract.Extractor, sum summarize.Summarizer, workers int, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	aggMetrics.init()
	return &Aggregator{
		store:      st,
		extractor:  ex,
		summarizer: sum,
		logger:     logger,
		workers:    workers,
	}
}

// Run processes one dirty set against the current snapshot. Removed
// nodes are swept first, then files in parallel, then directories
// deepest-first, then the repository root. Cancellation is cooperative
// at file boundaries; already-committed node summaries survive.
func (a *Aggregator) Run(ctx context.Context, repo *model.Repository, snap *snapshot.Snapshot, dirty *snapshot.DirtySet, onProgress ProgressFunc) (*Result, error) {
	start := time.Now()
	defer func() { aggMetrics.totalDuration.Observe(time.Since(start).Seconds()) }()

	res := &Result{}

	if err := a.sweepRemoved(ctx, repo.ID, snap, dirty, res); err != nil {
		return res, err
	}

	dirIDs, err := a.ensureDirectories(ctx, repo.ID, snap)
	if err != nil {
		return res, err
	}

	touched := dirty.TouchedFiles()
	var processed, failedUnits, parseFailures atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for _, filePath := range touched {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fileRes, err := a.processFile(gctx, repo.ID, snap, dirIDs, filePath)
			if err != nil {
				return err
			}
			failedUnits.Add(int64(fileRes.failedUnits))
			if fileRes.parseFailed {
				parseFailures.Add(1)
			}
			done := processed.Add(1)
			if onProgress != nil {
				onProgress(int(done), len(touched))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		res.FilesProcessed = int(processed.Load())
		res.FailedUnits = int(failedUnits.Load())
		res.ParseFailures = int(parseFailures.Load())
		return res, err
	}

	res.FilesProcessed = int(processed.Load())
	res.FailedUnits = int(failedUnits.Load())
	res.ParseFailures = int(parseFailures.Load())

	dirs := treeIndex(snap)
	for _, dirPath := range dirty.DirsDeepestFirst() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, ok := dirIDs[dirPath]; !ok {
			// Directory no longer exists in the snapshot.
			continue
		}
		if err := a.summarizeDirectory(ctx, repo.ID, dirPath, dirIDs[dirPath], dirs); err != nil {
			if summarize.Retryable(err) {
				return res, err
			}
			a.logger.Warn("aggregate.directory.failed", "path", dirPath, "error", err)
			aggMetrics.summaryFailures.Inc()
		}
	}

	if dirty.Root {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := a.summarizeRepository(ctx, repo, dirs); err != nil {
			if summarize.Retryable(err) {
				return res, err
			}
			a.logger.Warn("aggregate.repository.failed", "repository_id", repo.ID, "error", err)
			aggMetrics.summaryFailures.Inc()
		}
	}

	if err := a.store.SetRepositoryAnalyzed(ctx, repo.ID, snap.CommitHash, snap.RepositoryFingerprint()); err != nil {
		return res, err
	}

	a.logger.Info("aggregate.run.complete",
		"repository_id", repo.ID,
		"files", res.FilesProcessed,
		"removed", res.FilesRemoved,
		"failed_units", res.FailedUnits,
		"parse_failures", res.ParseFailures,
		"duration", time.Since(start),
	)
	return res, nil
}

// sweepRemoved deletes files and directories that left the snapshot.
// Units cascade with their files.
func (a *Aggregator) sweepRemoved(ctx context.Context, repoID string, snap *snapshot.Snapshot, dirty *snapshot.DirtySet, res *Result) error {
	for _, p := range dirty.Removed {
		if err := a.store.DeleteFile(ctx, repoID, p); err != nil {
			return fmt.Errorf("sweep file %s: %w", p, err)
		}
		res.FilesRemoved++
		aggMetrics.filesRemoved.Inc()
	}

	// Directories that no longer contain any snapshot file are gone.
	// Deepest-first so each delete cascades over an already-pruned
	// subtree.
	live := make(map[string]bool)
	for _, f := range snap.Files {
		for dir := path.Dir(f.Path); dir != "."; dir = path.Dir(dir) {
			live[dir] = true
		}
	}
	var dead []string
	for _, p := range dirty.Removed {
		for dir := path.Dir(p); dir != "."; dir = path.Dir(dir) {
			if !live[dir] {
				dead = append(dead, dir)
			}
		}
	}
	sort.Slice(dead, func(i, j int) bool {
		return strings.Count(dead[i], "/") > strings.Count(dead[j], "/")
	})
	seen := make(map[string]bool)
	for _, dir := range dead {
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := a.store.DeleteDirectory(ctx, repoID, dir); err != nil {
			return fmt.Errorf("sweep directory %s: %w", dir, err)
		}
	}
	return nil
}

// ensureDirectories upserts a row for every directory in the snapshot,
// shallow-first so parents get IDs before their children link to them.
// Each row carries the subtree fingerprint derived from the snapshot.
// Returns the path → ID map, including "" for the root.
func (a *Aggregator) ensureDirectories(ctx context.Context, repoID string, snap *snapshot.Snapshot) (map[string]int64, error) {
	paths := map[string]bool{"": true}
	for _, f := range snap.Files {
		for dir := path.Dir(f.Path); dir != "."; dir = path.Dir(dir) {
			paths[dir] = true
		}
	}
	fingerprints := snap.DirectoryFingerprints()

	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Slice(sorted, func(i, j int) bool {
		di, dj := strings.Count(sorted[i], "/"), strings.Count(sorted[j], "/")
		if (sorted[i] == "") != (sorted[j] == "") {
			return sorted[i] == ""
		}
		if di != dj {
			return di < dj
		}
		return sorted[i] < sorted[j]
	})

	ids := make(map[string]int64, len(sorted))
	for _, p := range sorted {
		dir := &model.Directory{RepositoryID: repoID, Path: p, Name: path.Base(p),
			Fingerprint: fingerprints[p]}
		if p == "" {
			dir.Name = ""
		} else {
			parentPath := path.Dir(p)
			if parentPath == "." {
				parentPath = ""
			}
			parentID := ids[parentPath]
			dir.ParentID = &parentID
		}
		if err := a.store.UpsertDirectory(ctx, dir); err != nil {
			return nil, fmt.Errorf("ensure directory %s: %w", p, err)
		}
		ids[p] = dir.ID
	}
	return ids, nil
}

type fileResult struct {
	failedUnits int
	parseFailed bool
}

// processFile extracts a file's units, summarizes them leaf-first, and
// commits the file summary. Node-local summarizer failures flag the
// unit for retry and never abort the file.
func (a *Aggregator) processFile(ctx context.Context, repoID string, snap *snapshot.Snapshot, dirIDs map[string]int64, filePath string) (*fileResult, error) {
	fileStart := time.Now()
	defer func() { aggMetrics.fileDuration.Observe(time.Since(fileStart).Seconds()) }()

	entry, ok := snap.File(filePath)
	if !ok {
		return nil, fmt.Errorf("file %s missing from snapshot", filePath)
	}

	language := extract.DetectLanguage(filePath)
	extractStart := time.Now()
	extraction, err := a.extractor.Extract(entry.Content, language)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filePath, err)
	}
	aggMetrics.extractDuration.Observe(time.Since(extractStart).Seconds())

	dirPath := path.Dir(filePath)
	if dirPath == "." {
		dirPath = ""
	}
	dirID, ok := dirIDs[dirPath]
	if !ok {
		return nil, fmt.Errorf("directory %s not materialized for %s", dirPath, filePath)
	}

	file := &model.File{
		DirectoryID:  dirID,
		RepositoryID: repoID,
		Path:         filePath,
		Name:         path.Base(filePath),
		Language:     language,
		Fingerprint:  entry.Fingerprint,
		LineCount:    extraction.LineCount,
	}
	res := &fileResult{}
	if extraction.ParseFailed() {
		msg := strings.Join(extraction.Diagnostics, "; ")
		file.ParseError = &msg
		res.parseFailed = true
		aggMetrics.parseFailures.Inc()
	}
	if err := a.store.UpsertFile(ctx, file); err != nil {
		return nil, err
	}

	flat, parentIndex := flattenUnits(extraction.Units)
	saved, err := a.store.ReplaceUnits(ctx, file.ID, flat, parentIndex)
	if err != nil {
		return nil, err
	}
	aggMetrics.unitsExtracted.Add(float64(len(saved)))

	// Leaf-first over the nesting tree: reverse order of the flattening
	// guarantees children before their parents.
	descriptions := make(map[int]string, len(saved))
	for i := len(saved) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		src := unitSource(flat[i], extraction.Units)
		req := summarize.Request{
			Kind:     model.KindUnit,
			Name:     saved[i].Name,
			Path:     filePath,
			Language: language,
			UnitKind: saved[i].Kind,
			Source:   src,
		}
		if saved[i].Signature != nil {
			req.Signature = *saved[i].Signature
		}
		for j := i + 1; j < len(saved); j++ {
			if parentIndex[j] == i {
				if d, ok := descriptions[j]; ok {
					req.Children = append(req.Children, summarize.ChildSummary{Name: saved[j].Name, Summary: d})
				}
			}
		}

		sumStart := time.Now()
		desc, err := a.summarizer.Summarize(ctx, req)
		aggMetrics.summarizeDuration.Observe(time.Since(sumStart).Seconds())
		if err != nil {
			if summarize.Retryable(err) || ctx.Err() != nil {
				return res, err
			}
			a.logger.Warn("aggregate.unit.failed", "file", filePath, "unit", saved[i].Name, "error", err)
			if err := a.store.MarkUnitRetry(ctx, saved[i].ID); err != nil {
				return res, err
			}
			res.failedUnits++
			aggMetrics.summaryFailures.Inc()
			continue
		}
		descriptions[i] = desc
		if err := a.store.SetUnitDescription(ctx, saved[i].ID, desc); err != nil {
			return res, err
		}
		aggMetrics.summariesGenerated.Inc()
	}

	// File summary from the surviving top-level unit descriptions; a
	// file without units is summarized from its raw content.
	fileReq := summarize.Request{
		Kind:     model.KindFile,
		Name:     file.Name,
		Path:     filePath,
		Language: language,
	}
	for i := range saved {
		if parentIndex[i] != -1 {
			continue
		}
		if d, ok := descriptions[i]; ok {
			fileReq.Children = append(fileReq.Children, summarize.ChildSummary{Name: saved[i].Name, Summary: d})
		}
	}
	if len(fileReq.Children) == 0 {
		fileReq.Source = string(entry.Content)
	}

	desc, err := a.summarizer.Summarize(ctx, fileReq)
	if err != nil {
		if summarize.Retryable(err) || ctx.Err() != nil {
			return res, err
		}
		a.logger.Warn("aggregate.file.failed", "file", filePath, "error", err)
		aggMetrics.summaryFailures.Inc()
	} else {
		if err := a.store.SetFileSummary(ctx, file.ID, desc); err != nil {
			return res, err
		}
		aggMetrics.summariesGenerated.Inc()
	}

	aggMetrics.filesProcessed.Inc()
	a.logger.Debug("aggregate.file.done", "file", filePath, "units", len(saved))
	return res, nil
}

func (a *Aggregator) summarizeDirectory(ctx context.Context, repoID, dirPath string, dirID int64, dirs map[string]*dirEntry) error {
	entry := dirs[dirPath]
	if entry == nil {
		return nil
	}

	req := summarize.Request{
		Kind: model.KindDirectory,
		Name: path.Base(dirPath),
		Path: dirPath,
	}
	var err error
	req.Children, err = a.childSummaries(ctx, repoID, entry)
	if err != nil {
		return err
	}

	desc, err := a.summarizer.Summarize(ctx, req)
	if err != nil {
		return err
	}
	if err := a.store.SetDirectorySummary(ctx, dirID, desc); err != nil {
		return err
	}
	aggMetrics.summariesGenerated.Inc()
	a.logger.Debug("aggregate.directory.done", "path", dirPath)
	return nil
}

func (a *Aggregator) summarizeRepository(ctx context.Context, repo *model.Repository, dirs map[string]*dirEntry) error {
	root := dirs[""]
	if root == nil {
		return nil
	}

	req := summarize.Request{
		Kind: model.KindRepository,
		Name: repo.Name,
	}
	var err error
	req.Children, err = a.childSummaries(ctx, repo.ID, root)
	if err != nil {
		return err
	}

	desc, err := a.summarizer.Summarize(ctx, req)
	if err != nil {
		return err
	}
	if err := a.store.SetRepositorySummary(ctx, repo.ID, desc); err != nil {
		return err
	}
	aggMetrics.summariesGenerated.Inc()
	return nil
}

// childSummaries loads the committed summaries of a directory's
// immediate children, subdirectories first, in tree order.
func (a *Aggregator) childSummaries(ctx context.Context, repoID string, entry *dirEntry) ([]summarize.ChildSummary, error) {
	var out []summarize.ChildSummary
	for _, sub := range entry.subdirs {
		dir, err := a.store.GetDirectory(ctx, repoID, sub)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if dir.Summary != nil {
			out = append(out, summarize.ChildSummary{Name: path.Base(sub) + "/", Summary: *dir.Summary})
		}
	}
	for _, fp := range entry.files {
		f, err := a.store.GetFile(ctx, repoID, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if f.Summary != nil {
			out = append(out, summarize.ChildSummary{Name: f.Name, Summary: *f.Summary})
		}
	}
	return out, nil
}

// dirEntry indexes one snapshot directory's immediate children.
type dirEntry struct {
	subdirs []string
	files   []string
}

// treeIndex builds the directory structure of the snapshot, keyed by
// directory path with "" for the root. Child lists are sorted.
func treeIndex(snap *snapshot.Snapshot) map[string]*dirEntry {
	dirs := map[string]*dirEntry{"": {}}
	ensure := func(p string) *dirEntry {
		if e, ok := dirs[p]; ok {
			return e
		}
		e := &dirEntry{}
		dirs[p] = e
		return e
	}

	for _, f := range snap.Files {
		dirPath := path.Dir(f.Path)
		if dirPath == "." {
			dirPath = ""
		}
		ensure(dirPath).files = append(ensure(dirPath).files, f.Path)

		child := dirPath
		for child != "" {
			parent := path.Dir(child)
			if parent == "." {
				parent = ""
			}
			pe := ensure(parent)
			pe.subdirs = append(pe.subdirs, child)
			child = parent
		}
	}

	for _, e := range dirs {
		sort.Strings(e.files)
		sort.Strings(e.subdirs)
		e.subdirs = dedupe(e.subdirs)
	}
	return dirs
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

// flattenUnits linearizes the extraction tree parent-first and returns
// the parallel parent index (-1 for top level), the layout ReplaceUnits
// expects.
func flattenUnits(units []extract.Unit) ([]model.CodeUnit, []int) {
	var flat []model.CodeUnit
	var parents []int

	var walk func(us []extract.Unit, parent int)
	walk = func(us []extract.Unit, parent int) {
		for _, u := range us {
			cu := model.CodeUnit{
				Kind:      u.Kind,
				Name:      u.Name,
				StartLine: u.StartLine,
				EndLine:   u.EndLine,
				Metadata:  u.Metadata,
			}
			if u.Signature != "" {
				sig := u.Signature
				cu.Signature = &sig
			}
			idx := len(flat)
			flat = append(flat, cu)
			parents = append(parents, parent)
			walk(u.Children, idx)
		}
	}
	walk(units, -1)
	return flat, parents
}

// unitSource finds the source text of a flattened unit by line range.
func unitSource(cu model.CodeUnit, units []extract.Unit) string {
	var find func(us []extract.Unit) string
	find = func(us []extract.Unit) string {
		for _, u := range us {
			if u.StartLine == cu.StartLine && u.EndLine == cu.EndLine && u.Name == cu.Name {
				return u.Source
			}
			if s := find(u.Children); s != "" {
				return s
			}
		}
		return ""
	}
	return find(units)
}
