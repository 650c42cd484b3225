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
	"context"
	"fmt"
	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/kraklabs/codescribe/pkg/model"
)

// languageSpec describes how to extract units from one grammar: which
// node types are callables and which are type/class containers.
type languageSpec struct {
	language  *sitter.Language
	functions map[string]bool
	classes   map[string]bool
}

// languageSpecs holds the per-language extraction tables. The node type
// names come from the upstream tree-sitter grammars.
var languageSpecs = map[string]*languageSpec{
	"python": {
		language:  python.GetLanguage(),
		functions: set("function_definition"),
		classes:   set("class_definition"),
	},
	"javascript": {
		language:  javascript.GetLanguage(),
		functions: set("function_declaration", "generator_function_declaration"),
		classes:   set("class_declaration"),
	},
	"typescript": {
		language:  typescript.GetLanguage(),
		functions: set("function_declaration", "generator_function_declaration"),
		classes:   set("class_declaration", "interface_declaration"),
	},
	"tsx": {
		language:  tsx.GetLanguage(),
		functions: set("function_declaration", "generator_function_declaration"),
		classes:   set("class_declaration", "interface_declaration"),
	},
	"java": {
		language:  java.GetLanguage(),
		functions: set("method_declaration", "constructor_declaration"),
		classes:   set("class_declaration", "interface_declaration"),
	},
	"go": {
		language:  golang.GetLanguage(),
		functions: set("function_declaration", "method_declaration"),
		classes:   set("type_declaration"),
	},
	"rust": {
		language:  rust.GetLanguage(),
		functions: set("function_item"),
		classes:   set("struct_item", "impl_item", "trait_item"),
	},
	"c": {
		language:  c.GetLanguage(),
		functions: set("function_definition"),
		classes:   set("struct_specifier"),
	},
	"cpp": {
		language:  cpp.GetLanguage(),
		functions: set("function_definition"),
		classes:   set("class_specifier", "struct_specifier"),
	},
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// TreeSitterExtractor extracts code units via Tree-sitter grammars.
type TreeSitterExtractor struct {
	logger *slog.Logger
}

// NewTreeSitterExtractor creates a Tree-sitter backed extractor.
func NewTreeSitterExtractor(logger *slog.Logger) *TreeSitterExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TreeSitterExtractor{logger: logger}
}

// Extract parses content with the grammar for language and returns the
// unit tree. Unsupported languages yield an empty result. Tree-sitter
// is error-tolerant: recoverable syntax errors are downgraded to
// diagnostics and extraction continues over the intact subtrees.
func (e *TreeSitterExtractor) Extract(content []byte, language string) (*Result, error) {
	result := &Result{
		Language:  language,
		LineCount: CountLines(content),
	}

	spec, ok := languageSpecs[language]
	if !ok {
		return result, nil
	}

	// Tree-sitter parsers are not safe for concurrent use; a fresh one
	// per call keeps Extract reentrant for parallel file workers.
	parser := sitter.NewParser()
	parser.SetLanguage(spec.language)

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		result.Diagnostics = append(result.Diagnostics,
			fmt.Sprintf("parse failed: %v", err))
		return result, nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		n := countErrorNodes(root)
		result.Diagnostics = append(result.Diagnostics,
			fmt.Sprintf("syntax errors: %d", n))
		e.logger.Warn("extract.treesitter.syntax_errors",
			"language", language,
			"error_count", n,
		)
	}

	units := e.walk(root, content, spec, language, "")
	units, diags := validateUnits(units, language)
	result.Units = units
	result.Diagnostics = append(result.Diagnostics, diags...)

	return result, nil
}

// walk recursively collects units below node. parentClass is the name
// of the enclosing class unit, or "" at file scope; callables inside a
// class become methods.
func (e *TreeSitterExtractor) walk(node *sitter.Node, content []byte, spec *languageSpec, language, parentClass string) []Unit {
	var units []Unit

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}

		switch {
		case spec.functions[child.Type()]:
			if u, ok := e.extractCallable(child, content, language, parentClass); ok {
				units = append(units, u)
			}
		case spec.classes[child.Type()]:
			if u, ok := e.extractContainer(child, content, language); ok {
				u.Children = e.walk(child, content, spec, language, u.Name)
				units = append(units, u)
			}
		default:
			units = append(units, e.walk(child, content, spec, language, parentClass)...)
		}
	}

	return units
}

// extractCallable builds a function or method unit from an AST node.
// Anonymous callables (no resolvable name) are skipped.
func (e *TreeSitterExtractor) extractCallable(node *sitter.Node, content []byte, language, parentClass string) (Unit, bool) {
	name := nodeName(node, content)
	if name == "" {
		return Unit{}, false
	}

	kind := model.UnitFunction
	var meta map[string]string
	if parentClass != "" {
		kind = model.UnitMethod
		meta = map[string]string{"parent_class": parentClass}
	}

	source := string(content[node.StartByte():node.EndByte()])
	return Unit{
		Kind:      kind,
		Name:      name,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Signature: signatureOf(source, language),
		Source:    source,
		Metadata:  meta,
	}, true
}

// extractContainer builds a class-kind unit (class, interface, struct,
// trait, impl block) from an AST node.
func (e *TreeSitterExtractor) extractContainer(node *sitter.Node, content []byte, language string) (Unit, bool) {
	name := nodeName(node, content)
	if name == "" {
		return Unit{}, false
	}

	source := string(content[node.StartByte():node.EndByte()])
	return Unit{
		Kind:      model.UnitClass,
		Name:      name,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Signature: signatureOf(source, language),
		Source:    source,
	}, true
}

// countErrorNodes counts ERROR nodes in the tree.
func countErrorNodes(node *sitter.Node) int {
	count := 0
	if node.Type() == "ERROR" {
		count++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil {
			count += countErrorNodes(child)
		}
	}
	return count
}
