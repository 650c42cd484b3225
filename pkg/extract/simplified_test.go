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

func TestSimplifiedExtractor_Python(t *testing.T) {
	e := NewSimplifiedExtractor(nil)

	result, err := e.Extract([]byte(pythonSample), "python")
	require.NoError(t, err)
	require.Len(t, result.Units, 2)

	assert.Equal(t, "top_level", result.Units[0].Name)
	assert.Equal(t, model.UnitFunction, result.Units[0].Kind)

	cls := result.Units[1]
	assert.Equal(t, "Greeter", cls.Name)
	require.Len(t, cls.Children, 2)
	assert.Equal(t, "__init__", cls.Children[0].Name)
	assert.Equal(t, model.UnitMethod, cls.Children[0].Kind)
}

func TestSimplifiedExtractor_Go(t *testing.T) {
	src := "package x\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n"
	e := NewSimplifiedExtractor(nil)

	result, err := e.Extract([]byte(src), "go")
	require.NoError(t, err)
	require.Len(t, result.Units, 1)
	assert.Equal(t, "Hello", result.Units[0].Name)
	assert.Equal(t, 3, result.Units[0].StartLine)
	assert.Equal(t, 5, result.Units[0].EndLine)
}

func TestSimplifiedExtractor_Unsupported(t *testing.T) {
	e := NewSimplifiedExtractor(nil)

	result, err := e.Extract([]byte("whatever\n"), "brainfuck")
	require.NoError(t, err)
	assert.Empty(t, result.Units)
}
