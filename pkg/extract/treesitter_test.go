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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codescribe/pkg/model"
)

const pythonSample = `def top_level(x):
    return x * 2


class Greeter:
    def __init__(self, name):
        self.name = name

    def greet(self):
        return "hello " + self.name
`

func TestTreeSitterExtractor_Python(t *testing.T) {
	e := NewTreeSitterExtractor(nil)

	result, err := e.Extract([]byte(pythonSample), "python")
	require.NoError(t, err)
	require.Len(t, result.Units, 2)

	fn := result.Units[0]
	assert.Equal(t, model.UnitFunction, fn.Kind)
	assert.Equal(t, "top_level", fn.Name)
	assert.Equal(t, 1, fn.StartLine)
	assert.Equal(t, 2, fn.EndLine)
	assert.Equal(t, "def top_level(x):", fn.Signature)
	assert.Empty(t, fn.Children)

	cls := result.Units[1]
	assert.Equal(t, model.UnitClass, cls.Kind)
	assert.Equal(t, "Greeter", cls.Name)
	require.Len(t, cls.Children, 2)

	for _, m := range cls.Children {
		assert.Equal(t, model.UnitMethod, m.Kind)
		assert.Equal(t, "Greeter", m.Metadata["parent_class"])
		assert.GreaterOrEqual(t, m.StartLine, cls.StartLine)
		assert.LessOrEqual(t, m.EndLine, cls.EndLine)
	}
	assert.Equal(t, "__init__", cls.Children[0].Name)
	assert.Equal(t, "greet", cls.Children[1].Name)
}

func TestTreeSitterExtractor_Go(t *testing.T) {
	src := `package thing

func Add(a, b int) int {
	return a + b
}

type Counter struct {
	n int
}

func (c *Counter) Inc() {
	c.n++
}
`
	e := NewTreeSitterExtractor(nil)

	result, err := e.Extract([]byte(src), "go")
	require.NoError(t, err)
	require.Len(t, result.Units, 3)

	assert.Equal(t, "Add", result.Units[0].Name)
	assert.Equal(t, model.UnitFunction, result.Units[0].Kind)
	assert.Equal(t, "func Add(a, b int) int", result.Units[0].Signature)

	assert.Equal(t, "Counter", result.Units[1].Name)
	assert.Equal(t, model.UnitClass, result.Units[1].Kind)

	// Go methods are file-scoped declarations, not nested in the type.
	assert.Equal(t, "Inc", result.Units[2].Name)
	assert.Equal(t, model.UnitFunction, result.Units[2].Kind)
}

func TestTreeSitterExtractor_UnsupportedLanguage(t *testing.T) {
	e := NewTreeSitterExtractor(nil)

	result, err := e.Extract([]byte("# just a readme\n"), "")
	require.NoError(t, err)
	assert.Empty(t, result.Units)
	assert.Empty(t, result.Diagnostics)
	assert.Equal(t, 1, result.LineCount)

	result, err = e.Extract([]byte("body { color: red }\n"), "css")
	require.NoError(t, err)
	assert.Empty(t, result.Units)
}

func TestTreeSitterExtractor_MalformedFailsSoft(t *testing.T) {
	e := NewTreeSitterExtractor(nil)

	result, err := e.Extract([]byte("def broken(:\n    ???\n"), "python")
	require.NoError(t, err, "malformed syntax must not abort the job")
	assert.NotEmpty(t, result.Diagnostics)
}

func TestTreeSitterExtractor_Deterministic(t *testing.T) {
	e := NewTreeSitterExtractor(nil)

	first, err := e.Extract([]byte(pythonSample), "python")
	require.NoError(t, err)
	second, err := e.Extract([]byte(pythonSample), "python")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"main.go", "go"},
		{"app/models/user.py", "python"},
		{"src/index.TS", "typescript"},
		{"component.tsx", "tsx"},
		{"lib.rs", "rust"},
		{"native/jni.cc", "cpp"},
		{"README.md", ""},
		{"Makefile", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLanguage(tt.path), tt.path)
	}
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, CountLines(nil))
	assert.Equal(t, 1, CountLines([]byte("one line, no newline")))
	assert.Equal(t, 2, CountLines([]byte("a\nb\n")))
	assert.Equal(t, 3, CountLines([]byte("a\nb\nc")))
}
