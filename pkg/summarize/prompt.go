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

package summarize

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kraklabs/codescribe/pkg/model"
)

// BuildPrompt renders the prompt for one node. Source text and child
// summaries together are bounded by maxContextChars: child summaries
// are kept whole in tree order until the budget runs out, then an
// omission count is appended, so a child summary is never cut mid-text.
func BuildPrompt(req Request, maxContextChars int) string {
	switch req.Kind {
	case model.KindUnit:
		return unitPrompt(req, maxContextChars)
	case model.KindFile:
		return filePrompt(req, maxContextChars)
	case model.KindDirectory:
		return directoryPrompt(req, maxContextChars)
	case model.KindRepository:
		return repositoryPrompt(req, maxContextChars)
	default:
		return filePrompt(req, maxContextChars)
	}
}

func unitPrompt(req Request, maxChars int) string {
	var b strings.Builder
	kind := string(req.UnitKind)
	if kind == "" {
		kind = "function"
	}
	fmt.Fprintf(&b, "Describe what the following %s %s does in one or two plain sentences. ", req.Language, kind)
	b.WriteString("Focus on purpose and behavior, not implementation detail. Do not repeat the name or restate the signature.\n\n")
	if req.Signature != "" {
		fmt.Fprintf(&b, "Signature: %s\n", req.Signature)
	}
	fmt.Fprintf(&b, "Name: %s\n\nSource:\n%s\n", req.Name, truncateText(req.Source, maxChars))
	return b.String()
}

func filePrompt(req Request, maxChars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the purpose of the source file %q in two or three sentences. ", req.Path)
	b.WriteString("Describe what the file as a whole provides, not each piece individually.\n\n")

	if len(req.Children) > 0 {
		b.WriteString("It contains the following definitions:\n")
		b.WriteString(childContext(req.Children, maxChars))
	} else if req.Source != "" {
		fmt.Fprintf(&b, "File content:\n%s\n", truncateText(req.Source, maxChars))
	}
	return b.String()
}

func directoryPrompt(req Request, maxChars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the role of the directory %q within the codebase in two or three sentences. ", req.Path)
	b.WriteString("Describe the theme of its contents rather than listing them.\n\n")
	b.WriteString("It contains:\n")
	b.WriteString(childContext(req.Children, maxChars))
	return b.String()
}

func repositoryPrompt(req Request, maxChars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a short overview of the repository %q: what the project does and how it is organized, in three or four sentences.\n\n", req.Name)
	b.WriteString("Its top-level contents:\n")
	b.WriteString(childContext(req.Children, maxChars))
	return b.String()
}

// childContext renders "- name: summary" lines in tree order, keeping
// each summary whole, until maxChars of context is spent. Remaining
// children collapse into an omission count.
func childContext(children []ChildSummary, maxChars int) string {
	var b strings.Builder
	used := 0
	omitted := 0

	for _, c := range children {
		line := fmt.Sprintf("- %s: %s\n", c.Name, c.Summary)
		if used+len(line) > maxChars && used > 0 {
			omitted++
			continue
		}
		if len(line) > maxChars {
			// A single oversized child still gets an entry, name only.
			line = fmt.Sprintf("- %s\n", c.Name)
		}
		b.WriteString(line)
		used += len(line)
	}
	if omitted > 0 {
		fmt.Fprintf(&b, "(%d more omitted)\n", omitted)
	}
	return b.String()
}

// truncateText cuts s to at most maxChars bytes, backing up so a
// multi-byte rune is never split.
func truncateText(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n... (truncated)"
}
