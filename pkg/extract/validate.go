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
	"fmt"
	"sort"
)

// validateUnits enforces the extraction contract on a unit tree:
// sibling ranges must be disjoint, children must be strictly contained
// in their parent, and every range must satisfy end >= start. Units
// violating the contract are rejected with a diagnostic, never merged.
// Surviving siblings are returned in source order.
func validateUnits(units []Unit, language string) ([]Unit, []string) {
	return validateLevel(units, language, nil)
}

// validateLevel validates one sibling group. parent is the containing
// unit, or nil at file scope.
func validateLevel(units []Unit, language string, parent *Unit) ([]Unit, []string) {
	var diags []string

	sort.SliceStable(units, func(i, j int) bool {
		if units[i].StartLine != units[j].StartLine {
			return units[i].StartLine < units[j].StartLine
		}
		return units[i].EndLine > units[j].EndLine
	})

	kept := units[:0]
	var prev *Unit
	for i := range units {
		u := &units[i]

		if u.EndLine < u.StartLine {
			diags = append(diags, fmt.Sprintf(
				"%s %q: inverted range %d-%d", u.Kind, u.Name, u.StartLine, u.EndLine))
			continue
		}

		if parent != nil && (u.StartLine < parent.StartLine || u.EndLine > parent.EndLine) {
			diags = append(diags, fmt.Sprintf(
				"%s %q: range %d-%d escapes parent %q (%d-%d)",
				u.Kind, u.Name, u.StartLine, u.EndLine,
				parent.Name, parent.StartLine, parent.EndLine))
			continue
		}

		// Partial overlap with the previous sibling is a parser
		// contract violation; strict containment would have made it a
		// child instead.
		if prev != nil && u.StartLine <= prev.EndLine {
			diags = append(diags, fmt.Sprintf(
				"%s %q: range %d-%d overlaps sibling %q (%d-%d)",
				u.Kind, u.Name, u.StartLine, u.EndLine,
				prev.Name, prev.StartLine, prev.EndLine))
			continue
		}

		childUnits, childDiags := validateLevel(u.Children, language, u)
		u.Children = childUnits
		diags = append(diags, childDiags...)

		kept = append(kept, *u)
		prev = &kept[len(kept)-1]
	}

	return kept, diags
}
