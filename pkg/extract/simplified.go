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

package extract

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/kraklabs/codescribe/pkg/model"
)

// SimplifiedExtractor is a line-scanning fallback used when a grammar
// is unavailable. Boundaries are coarser than Tree-sitter's: block ends
// are found by indentation (Python) or brace balance (brace languages),
// and nesting is limited to methods directly inside a class body.
type SimplifiedExtractor struct {
	logger *slog.Logger
}

// NewSimplifiedExtractor creates the fallback extractor.
func NewSimplifiedExtractor(logger *slog.Logger) *SimplifiedExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SimplifiedExtractor{logger: logger}
}

var (
	pyDefRe    = regexp.MustCompile(`^(\s*)def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	pyClassRe  = regexp.MustCompile(`^(\s*)class\s+([A-Za-z_][A-Za-z0-9_]*)`)
	braceNameRe = regexp.MustCompile(
		`^\s*(?:export\s+)?(?:pub\s+)?(?:func|function|fn)\s+(?:\([^)]*\)\s*)?([A-Za-z_][A-Za-z0-9_]*)`)
	braceClassRe = regexp.MustCompile(
		`^\s*(?:export\s+)?(?:pub\s+)?(?:class|interface|struct|trait)\s+([A-Za-z_][A-Za-z0-9_]*)`)
)

// Extract scans content line by line for unit declarations.
func (e *SimplifiedExtractor) Extract(content []byte, language string) (*Result, error) {
	result := &Result{
		Language:  language,
		LineCount: CountLines(content),
	}
	if _, ok := languageSpecs[language]; !ok {
		return result, nil
	}

	lines := strings.Split(string(content), "\n")
	var units []Unit
	if language == "python" {
		units = e.scanPython(lines)
	} else {
		units = e.scanBraces(lines)
	}

	units, diags := validateUnits(units, language)
	result.Units = units
	result.Diagnostics = append(result.Diagnostics, diags...)
	return result, nil
}

// scanPython finds def/class declarations and closes each block at the
// next non-blank line with indentation at or below the declaration's.
func (e *SimplifiedExtractor) scanPython(lines []string) []Unit {
	var units []Unit

	for i := 0; i < len(lines); i++ {
		var kind model.UnitKind
		var name, indent string

		if m := pyClassRe.FindStringSubmatch(lines[i]); m != nil {
			kind, indent, name = model.UnitClass, m[1], m[2]
		} else if m := pyDefRe.FindStringSubmatch(lines[i]); m != nil {
			kind, indent, name = model.UnitFunction, m[1], m[2]
		} else {
			continue
		}

		// Top-level declarations only; nested defs are picked up while
		// scanning the class body below.
		if indent != "" {
			continue
		}

		end := pythonBlockEnd(lines, i, len(indent))
		source := strings.Join(lines[i:end+1], "\n")
		unit := Unit{
			Kind:      kind,
			Name:      name,
			StartLine: i + 1,
			EndLine:   end + 1,
			Signature: signatureOf(source, "python"),
			Source:    source,
		}

		if kind == model.UnitClass {
			for j := i + 1; j <= end; j++ {
				if m := pyDefRe.FindStringSubmatch(lines[j]); m != nil && m[1] != "" {
					mEnd := pythonBlockEnd(lines, j, len(m[1]))
					mSource := strings.Join(lines[j:mEnd+1], "\n")
					unit.Children = append(unit.Children, Unit{
						Kind:      model.UnitMethod,
						Name:      m[2],
						StartLine: j + 1,
						EndLine:   mEnd + 1,
						Signature: signatureOf(mSource, "python"),
						Source:    mSource,
						Metadata:  map[string]string{"parent_class": name},
					})
					j = mEnd
				}
			}
		}

		units = append(units, unit)
		i = end
	}

	return units
}

// pythonBlockEnd returns the index of the last line belonging to the
// block declared at start with the given indentation width.
func pythonBlockEnd(lines []string, start, indent int) int {
	end := start
	for j := start + 1; j < len(lines); j++ {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" {
			continue
		}
		if len(lines[j])-len(strings.TrimLeft(lines[j], " \t")) <= indent {
			break
		}
		end = j
	}
	return end
}

// scanBraces finds declarations in brace languages and closes each unit
// when the brace balance returns to zero.
func (e *SimplifiedExtractor) scanBraces(lines []string) []Unit {
	var units []Unit

	for i := 0; i < len(lines); i++ {
		var kind model.UnitKind
		var name string

		if m := braceClassRe.FindStringSubmatch(lines[i]); m != nil {
			kind, name = model.UnitClass, m[1]
		} else if m := braceNameRe.FindStringSubmatch(lines[i]); m != nil {
			kind, name = model.UnitFunction, m[1]
		} else {
			continue
		}

		end := braceBlockEnd(lines, i)
		source := strings.Join(lines[i:end+1], "\n")
		units = append(units, Unit{
			Kind:      kind,
			Name:      name,
			StartLine: i + 1,
			EndLine:   end + 1,
			Signature: signatureOf(source, ""),
			Source:    source,
		})
		i = end
	}

	return units
}

// braceBlockEnd returns the index of the line where the brace opened on
// or after start closes. Declarations without a body (prototypes,
// interface members) end on their own line.
func braceBlockEnd(lines []string, start int) int {
	depth := 0
	opened := false
	for j := start; j < len(lines); j++ {
		depth += strings.Count(lines[j], "{") - strings.Count(lines[j], "}")
		if strings.Contains(lines[j], "{") {
			opened = true
		}
		if opened && depth <= 0 {
			return j
		}
		if !opened && strings.Contains(lines[j], ";") {
			return j
		}
	}
	return len(lines) - 1
}
