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
	"path"
	"sort"
	"strings"
)

// DirtySet is the outcome of comparing two snapshots: which files need
// re-analysis and which directories need their summaries rebuilt. The
// root directory is represented by the empty path "".
type DirtySet struct {
	Changed []string
	Added   []string
	Removed []string

	// Dirs holds every directory whose summary is stale, keyed by
	// repository-relative path. Includes "" for the root.
	Dirs map[string]bool

	// Root reports whether the repository-level summary is stale.
	Root bool
}

// Empty reports whether nothing changed between the two snapshots.
func (d *DirtySet) Empty() bool {
	return len(d.Changed) == 0 && len(d.Added) == 0 && len(d.Removed) == 0
}

// TouchedFiles returns the files needing extraction and summarization
// (changed plus added), sorted.
func (d *DirtySet) TouchedFiles() []string {
	out := make([]string, 0, len(d.Changed)+len(d.Added))
	out = append(out, d.Changed...)
	out = append(out, d.Added...)
	sort.Strings(out)
	return out
}

// DirsDeepestFirst returns the dirty directories ordered deepest first,
// so child summaries exist before their parents aggregate them. Ties
// break lexicographically for determinism.
func (d *DirtySet) DirsDeepestFirst() []string {
	dirs := make([]string, 0, len(d.Dirs))
	for dir := range d.Dirs {
		dirs = append(dirs, dir)
	}
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := pathDepth(dirs[i]), pathDepth(dirs[j])
		if di != dj {
			return di > dj
		}
		return dirs[i] < dirs[j]
	})
	return dirs
}

func pathDepth(p string) int {
	if p == "" {
		return 0
	}
	return strings.Count(p, "/") + 1
}

// markAncestors flags every directory on the way from a file's parent
// to the root as dirty.
func (d *DirtySet) markAncestors(filePath string) {
	dir := path.Dir(filePath)
	for {
		if dir == "." || dir == "/" {
			d.Dirs[""] = true
			return
		}
		d.Dirs[dir] = true
		dir = path.Dir(dir)
	}
}

// Diff compares two fingerprint maps (path → content fingerprint) and
// returns the dirty set. An empty prev yields a full dirty set, so a
// first run and an incremental run share one code path.
func Diff(prev, curr map[string]string) *DirtySet {
	d := &DirtySet{Dirs: make(map[string]bool)}

	for p, fp := range curr {
		old, ok := prev[p]
		switch {
		case !ok:
			d.Added = append(d.Added, p)
		case old != fp:
			d.Changed = append(d.Changed, p)
		}
	}
	for p := range prev {
		if _, ok := curr[p]; !ok {
			d.Removed = append(d.Removed, p)
		}
	}

	sort.Strings(d.Changed)
	sort.Strings(d.Added)
	sort.Strings(d.Removed)

	for _, p := range d.Changed {
		d.markAncestors(p)
	}
	for _, p := range d.Added {
		d.markAncestors(p)
	}
	for _, p := range d.Removed {
		d.markAncestors(p)
	}

	d.Root = !d.Empty()
	return d
}

// ForPaths returns a dirty set that re-analyzes exactly the given
// files, ignoring paths absent from curr. Used to re-queue files whose
// earlier summarization fell short when the tree itself is unchanged.
func ForPaths(curr map[string]string, paths []string) *DirtySet {
	d := &DirtySet{Dirs: make(map[string]bool)}
	for _, p := range paths {
		if _, ok := curr[p]; ok {
			d.Changed = append(d.Changed, p)
		}
	}
	sort.Strings(d.Changed)
	for _, p := range d.Changed {
		d.markAncestors(p)
	}
	d.Root = !d.Empty()
	return d
}

// Full returns a dirty set treating every file in snap as added, used
// when a repository is analyzed for the first time or a full re-run is
// forced.
func Full(snap *Snapshot) *DirtySet {
	return Diff(nil, snap.Fingerprints())
}
