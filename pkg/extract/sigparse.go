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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// identifierTypes are node types that carry a unit's name across the
// supported grammars.
var identifierTypes = map[string]bool{
	"identifier":      true,
	"name":            true,
	"type_identifier": true,
}

// nodeName resolves the declared name of a unit node. It prefers the
// grammar's "name" field, then scans children, descending through
// declarator wrappers (C/C++) and type_spec (Go type declarations).
func nodeName(node *sitter.Node, content []byte) string {
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		return string(content[nameNode.StartByte():nameNode.EndByte()])
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if identifierTypes[child.Type()] {
			return string(content[child.StartByte():child.EndByte()])
		}
		switch child.Type() {
		case "function_declarator", "pointer_declarator", "type_spec":
			if name := nodeName(child, content); name != "" {
				return name
			}
		}
	}
	return ""
}

// signatureOf slices the declaration line(s) out of a unit's source.
// Python signatures run through the colon that opens the suite,
// including decorators; brace languages take the first line up to the
// opening brace.
func signatureOf(source, language string) string {
	lines := strings.Split(source, "\n")

	if language == "python" {
		var sig []string
		for _, line := range lines {
			sig = append(sig, line)
			if strings.HasSuffix(strings.TrimSpace(line), ":") {
				break
			}
		}
		return strings.Join(sig, "\n")
	}

	first := lines[0]
	if idx := strings.Index(first, "{"); idx >= 0 {
		return strings.TrimSpace(first[:idx])
	}
	return strings.TrimSpace(first)
}
