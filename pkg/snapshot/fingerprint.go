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
	"crypto/sha256"
	"encoding/hex"
	"path"
	"sort"
)

// Fingerprint returns the hex-encoded SHA-256 digest of content.
// Collision resistance at file-corpus scale is what matters here, not
// cryptographic strength.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Child is one immediate child of a directory, for fingerprint
// derivation.
type Child struct {
	Name        string
	Fingerprint string
}

// DirectoryFingerprint derives a directory's fingerprint from the
// sorted (name, fingerprint) pairs of its immediate children. Any
// change anywhere under the subtree changes this digest, making
// "did this subtree change" a single comparison.
func DirectoryFingerprint(children []Child) string {
	sorted := make([]Child, len(children))
	copy(sorted, children)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	h := sha256.New()
	for _, c := range sorted {
		h.Write([]byte(c.Name))
		h.Write([]byte{0})
		h.Write([]byte(c.Fingerprint))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RepositoryFingerprint combines the root directory's fingerprint with
// the source commit identifier into the snapshot-level digest.
func RepositoryFingerprint(rootFingerprint, commitHash string) string {
	h := sha256.New()
	h.Write([]byte(rootFingerprint))
	h.Write([]byte{0})
	h.Write([]byte(commitHash))
	return hex.EncodeToString(h.Sum(nil))
}

// DirectoryFingerprints derives the fingerprint of every directory in
// the snapshot from the file fingerprints, bottom-up. Keys are
// directory paths, "" for the root. Subdirectory names carry a
// trailing slash so a file and a directory with the same name digest
// differently.
func (s *Snapshot) DirectoryFingerprints() map[string]string {
	files := make(map[string][]Child)
	dirs := map[string]bool{"": true}

	for _, f := range s.Files {
		dir := parentDir(f.Path)
		for p := dir; !dirs[p]; p = parentDir(p) {
			dirs[p] = true
		}
		files[dir] = append(files[dir], Child{Name: path.Base(f.Path), Fingerprint: f.Fingerprint})
	}

	subdirs := make(map[string][]string)
	for d := range dirs {
		if d != "" {
			subdirs[parentDir(d)] = append(subdirs[parentDir(d)], d)
		}
	}

	// Deepest-first so child digests exist before their parent needs
	// them.
	order := make([]string, 0, len(dirs))
	for d := range dirs {
		order = append(order, d)
	}
	sort.Slice(order, func(i, j int) bool { return pathDepth(order[i]) > pathDepth(order[j]) })

	out := make(map[string]string, len(order))
	for _, d := range order {
		kids := append([]Child(nil), files[d]...)
		for _, sub := range subdirs[d] {
			kids = append(kids, Child{Name: path.Base(sub) + "/", Fingerprint: out[sub]})
		}
		out[d] = DirectoryFingerprint(kids)
	}
	return out
}

// RepositoryFingerprint returns the snapshot-level digest: the root
// directory fingerprint combined with the commit hash. Comparing it to
// the stored value answers "did anything change" in one comparison.
func (s *Snapshot) RepositoryFingerprint() string {
	return RepositoryFingerprint(s.DirectoryFingerprints()[""], s.CommitHash)
}

func parentDir(p string) string {
	d := path.Dir(p)
	if d == "." {
		return ""
	}
	return d
}
