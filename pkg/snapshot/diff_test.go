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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffClassifiesFiles(t *testing.T) {
	prev := map[string]string{
		"main.go":        "aaa",
		"pkg/util.go":    "bbb",
		"pkg/removed.go": "ccc",
	}
	curr := map[string]string{
		"main.go":     "aaa",
		"pkg/util.go": "bbb2",
		"pkg/new.go":  "ddd",
	}

	d := Diff(prev, curr)

	assert.Equal(t, []string{"pkg/util.go"}, d.Changed)
	assert.Equal(t, []string{"pkg/new.go"}, d.Added)
	assert.Equal(t, []string{"pkg/removed.go"}, d.Removed)
	assert.True(t, d.Root)
}

func TestDiffMarksAncestorsOnly(t *testing.T) {
	prev := map[string]string{
		"a/b/deep.go": "v1",
		"a/other.go":  "x",
		"c/far.go":    "y",
	}
	curr := map[string]string{
		"a/b/deep.go": "v2",
		"a/other.go":  "x",
		"c/far.go":    "y",
	}

	d := Diff(prev, curr)

	require.Equal(t, []string{"a/b/deep.go"}, d.Changed)
	assert.True(t, d.Dirs["a/b"])
	assert.True(t, d.Dirs["a"])
	assert.True(t, d.Dirs[""])
	// Untouched sibling trees stay clean.
	assert.False(t, d.Dirs["c"])
	assert.Len(t, d.Dirs, 3)
}

func TestDiffNoChanges(t *testing.T) {
	fps := map[string]string{"main.go": "aaa"}
	d := Diff(fps, fps)

	assert.True(t, d.Empty())
	assert.False(t, d.Root)
	assert.Empty(t, d.Dirs)
}

func TestDiffRemovalDirtiesParent(t *testing.T) {
	prev := map[string]string{"pkg/gone.go": "v", "main.go": "m"}
	curr := map[string]string{"main.go": "m"}

	d := Diff(prev, curr)

	assert.Equal(t, []string{"pkg/gone.go"}, d.Removed)
	assert.True(t, d.Dirs["pkg"])
	assert.True(t, d.Dirs[""])
}

func TestDirsDeepestFirst(t *testing.T) {
	d := &DirtySet{Dirs: map[string]bool{
		"":        true,
		"a":       true,
		"a/b":     true,
		"a/b/c":   true,
		"a/a/z":   true,
		"b":       true,
	}}

	got := d.DirsDeepestFirst()

	assert.Equal(t, []string{"a/a/z", "a/b/c", "a/b", "a", "b", ""}, got)
}

func TestFullTreatsEverythingAsAdded(t *testing.T) {
	snap := &Snapshot{
		CommitHash: "abc",
		Files: []FileEntry{
			{Path: "main.go", Fingerprint: "f1"},
			{Path: "pkg/x.go", Fingerprint: "f2"},
		},
	}

	d := Full(snap)

	assert.Equal(t, []string{"main.go", "pkg/x.go"}, d.Added)
	assert.Empty(t, d.Changed)
	assert.Empty(t, d.Removed)
	assert.True(t, d.Dirs[""])
	assert.True(t, d.Dirs["pkg"])
}

func TestTouchedFilesSorted(t *testing.T) {
	d := &DirtySet{
		Changed: []string{"z.go"},
		Added:   []string{"a.go", "m.go"},
	}
	assert.Equal(t, []string{"a.go", "m.go", "z.go"}, d.TouchedFiles())
}

func TestForPaths(t *testing.T) {
	curr := map[string]string{
		"main.go":     "f1",
		"pkg/util.go": "f2",
	}

	d := ForPaths(curr, []string{"pkg/util.go", "gone.go"})

	assert.Equal(t, []string{"pkg/util.go"}, d.Changed)
	assert.Empty(t, d.Added)
	assert.Empty(t, d.Removed)
	assert.True(t, d.Dirs["pkg"])
	assert.True(t, d.Dirs[""])
	assert.True(t, d.Root)

	empty := ForPaths(curr, nil)
	assert.True(t, empty.Empty())
	assert.False(t, empty.Root)
}
