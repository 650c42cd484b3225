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

// Package model defines the domain types shared across the codescribe
// pipeline: the repository tree (Repository, Directory, File, CodeUnit)
// and the analysis job record.
//
// The tree is parent-owned and acyclic by construction: a Directory owns
// its child directories and files, a File owns its code units, and unit
// nesting follows source containment. Paths are slash-delimited and
// relative to the repository root; the root directory has the empty path.
package model

import "time"

// NodeKind identifies a level of the summary hierarchy.
type NodeKind string

const (
	KindUnit       NodeKind = "unit"
	KindFile       NodeKind = "file"
	KindDirectory  NodeKind = "directory"
	KindRepository NodeKind = "repository"
)

// UnitKind identifies the type of an extracted code unit.
type UnitKind string

const (
	UnitFunction UnitKind = "function"
	UnitClass    UnitKind = "class"
	UnitMethod   UnitKind = "method"
)

// JobStatus is the lifecycle state of an analysis job.
// Completed and failed are terminal; a job never leaves a terminal state.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobType selects between re-analyzing the whole tree and only the
// nodes whose fingerprints changed since the last successful run.
type JobType string

const (
	JobFull        JobType = "full"
	JobIncremental JobType = "incremental"
)

// Repository is a registered source repository and the root of one
// summary hierarchy.
type Repository struct {
	ID            string
	Owner         string
	Name          string
	URL           string
	DefaultBranch string

	// LastCommitHash is the commit identifier of the last fully
	// analyzed snapshot. Empty until the first completed job.
	LastCommitHash string

	// Fingerprint is the snapshot-level digest of the last fully
	// analyzed tree. A matching current snapshot means nothing changed.
	Fingerprint string

	// Summary is the repository-level description. Nil until analyzed.
	Summary *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Directory is one directory of the repository tree. The root directory
// has Path == "" and no parent.
type Directory struct {
	ID           int64
	RepositoryID string
	ParentID     *int64
	Path         string
	Name         string

	// Fingerprint is derived from the directory's children, so it
	// changes whenever anything under the subtree does.
	Fingerprint string

	Summary   *string
	UpdatedAt time.Time
}

// File is one source file of the repository tree.
type File struct {
	ID           int64
	DirectoryID  int64
	RepositoryID string
	Path         string
	Name         string

	// Language is the detected source language, or empty when the
	// extension is not recognized. Unsupported files are stored and
	// summarized from raw content but contribute no code units.
	Language string

	// Fingerprint is the hex-encoded content digest of the file at the
	// time of last successful aggregation.
	Fingerprint string

	LineCount int
	Summary   *string

	// ParseError records a soft extraction failure (malformed syntax).
	// The file is still summarized as a whole.
	ParseError *string

	// Units holds the file's extracted code units in source order.
	// Populated by service-level reads; bare store reads leave it nil.
	Units []CodeUnit

	UpdatedAt time.Time
}

// CodeUnit is one extracted function, class, or method. Units nest by
// source containment: methods are owned by their class via ParentID.
type CodeUnit struct {
	ID       int64
	FileID   int64
	ParentID *int64
	Kind     UnitKind
	Name     string

	// StartLine and EndLine are 1-indexed and inclusive;
	// EndLine >= StartLine always holds.
	StartLine int
	EndLine   int

	Signature *string

	// Description is produced by the summarizer. Nil when summarization
	// has not run or failed for this unit.
	Description *string

	// NeedsRetry marks a unit whose summarization failed with a
	// node-local error. The next incremental run re-attempts it.
	NeedsRetry bool

	Metadata map[string]string
}

// AnalysisJob tracks one analysis run over a repository. At most one
// job per repository may be pending or running at any time.
type AnalysisJob struct {
	ID           string
	RepositoryID string
	Status       JobStatus
	JobType      JobType

	// Progress is a percentage in [0,100], derived from ProcessedFiles
	// over TotalFiles. Monotonically non-decreasing within a run.
	Progress int

	// TotalFiles is nil until the dirty set is known.
	TotalFiles     *int
	ProcessedFiles int

	// ErrorMessage is set only when Status == JobFailed.
	ErrorMessage *string

	// FailedUnits counts units left without a description by node-local
	// summarizer failures. Reported at completion, not a job failure.
	FailedUnits int

	// ParseFailures counts files whose unit extraction failed soft.
	ParseFailures int

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// TreeNode is one entry of the navigable hierarchy returned to callers:
// a directory or file path with its summary, ordered parent-first.
type TreeNode struct {
	Path    string   `json:"path"`
	Kind    NodeKind `json:"kind"`
	Summary *string  `json:"summary"`
}
