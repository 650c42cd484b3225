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

// Package extract turns raw source text into an ordered tree of code
// units (functions, classes, methods) with line ranges and signatures.
//
// Extraction is a pure function of (content, language): no side effects,
// deterministic output, source order preserved. Files in unsupported
// languages yield an empty unit list; malformed syntax fails soft with a
// diagnostic instead of an error.
package extract

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kraklabs/codescribe/pkg/model"
)

// Unit is one extracted code unit, before summarization. Children are
// units strictly contained within this unit's line range (methods of a
// class), in source order.
type Unit struct {
	Kind      model.UnitKind
	Name      string
	StartLine int // 1-indexed, inclusive
	EndLine   int // 1-indexed, inclusive
	Signature string
	Source    string
	Children  []Unit
	Metadata  map[string]string
}

// Result is the outcome of extracting one file.
type Result struct {
	Language  string
	LineCount int

	// Units are the top-level units in source order. Nested units hang
	// off their container's Children.
	Units []Unit

	// Diagnostics records soft failures: syntax errors tolerated by the
	// parser, or units rejected for violating the nesting contract.
	Diagnostics []string
}

// ParseFailed reports whether extraction failed soft for the whole file.
// The file is still stored and summarized from raw content.
func (r *Result) ParseFailed() bool {
	return len(r.Units) == 0 && len(r.Diagnostics) > 0
}

// UnitCount returns the total number of units including nested ones.
func (r *Result) UnitCount() int {
	var count func(units []Unit) int
	count = func(units []Unit) int {
		n := len(units)
		for i := range units {
			n += count(units[i].Children)
		}
		return n
	}
	return count(r.Units)
}

// Extractor is the unit extraction contract consumed by the aggregator.
type Extractor interface {
	// Extract parses file content and returns its code units. An
	// unsupported or empty language returns a Result with no units and
	// no error. Parse failures are reported via Result.Diagnostics.
	Extract(content []byte, language string) (*Result, error)
}

// extensionLanguages maps file extensions to language identifiers.
// Unlisted extensions are stored but not unit-extracted.
var extensionLanguages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "tsx",
	".java": "java",
	".go":   "go",
	".rs":   "rust",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".hpp":  "cpp",
	".cc":   "cpp",
	".cxx":  "cpp",
}

// DetectLanguage returns the language identifier for a file path, or ""
// when the extension is not recognized.
func DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return extensionLanguages[ext]
}

// SupportedLanguages returns the set of recognized language identifiers.
func SupportedLanguages() []string {
	seen := make(map[string]bool)
	var langs []string
	for _, lang := range extensionLanguages {
		if !seen[lang] {
			seen[lang] = true
			langs = append(langs, lang)
		}
	}
	return langs
}

// CountLines returns the 1-based line count of content. An empty file
// has zero lines.
func CountLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := strings.Count(string(content), "\n")
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}

// Mode selects the extractor implementation.
type Mode string

const (
	// ModeTreeSitter uses Tree-sitter grammars for AST-accurate ranges.
	ModeTreeSitter Mode = "treesitter"

	// ModeSimplified uses line scanning. Coarser boundaries, no CGO.
	ModeSimplified Mode = "simplified"

	// ModeAuto prefers Tree-sitter and falls back to simplified.
	ModeAuto Mode = "auto"
)

// New returns the extractor for the given mode. ModeAuto selects
// Tree-sitter; the grammars are compiled into the binary, so the
// fallback only matters when simplified mode is forced.
func New(mode Mode, logger *slog.Logger) Extractor {
	switch mode {
	case ModeSimplified:
		return NewSimplifiedExtractor(logger)
	default:
		return NewTreeSitterExtractor(logger)
	}
}

// Ensure implementations satisfy the interface.
var _ Extractor = (*TreeSitterExtractor)(nil)
var _ Extractor = (*SimplifiedExtractor)(nil)
