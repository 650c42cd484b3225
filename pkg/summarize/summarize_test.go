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
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codescribe/pkg/model"
)

func newTestEngine(provider Provider, opts Options) *Engine {
	e := NewEngine(provider, opts, nil)
	e.backoff = func(int) time.Duration { return time.Millisecond }
	return e
}

func TestEngineSummarize(t *testing.T) {
	provider := &MockProvider{
		GenerateFunc: func(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
			return &GenerateResponse{Text: "  Computes the sum of two values.  "}, nil
		},
	}
	e := newTestEngine(provider, Options{})

	got, err := e.Summarize(context.Background(), Request{
		Kind: model.KindUnit, Name: "Add", Language: "go",
		UnitKind: model.UnitFunction, Source: "func Add(a, b int) int { return a + b }",
	})
	require.NoError(t, err)
	assert.Equal(t, "Computes the sum of two values.", got)
}

func TestEngineRetriesTransientErrors(t *testing.T) {
	calls := 0
	provider := &MockProvider{
		GenerateFunc: func(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
			calls++
			if calls < 3 {
				return nil, fmt.Errorf("%w: status 429", ErrRateLimited)
			}
			return &GenerateResponse{Text: "A summary."}, nil
		},
	}
	e := newTestEngine(provider, Options{MaxRetries: 3})

	got, err := e.Summarize(context.Background(), Request{Kind: model.KindFile, Path: "a.go"})
	require.NoError(t, err)
	assert.Equal(t, "A summary.", got)
	assert.Equal(t, 3, calls)
}

func TestEngineDoesNotRetryInvalidResponse(t *testing.T) {
	calls := 0
	provider := &MockProvider{
		GenerateFunc: func(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
			calls++
			return &GenerateResponse{Text: ""}, nil
		},
	}
	e := newTestEngine(provider, Options{MaxRetries: 3})

	_, err := e.Summarize(context.Background(), Request{Kind: model.KindFile, Path: "a.go"})
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Equal(t, 1, calls)
}

func TestEngineGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	provider := &MockProvider{
		GenerateFunc: func(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
			calls++
			return nil, fmt.Errorf("%w: still throttled", ErrRateLimited)
		},
	}
	e := newTestEngine(provider, Options{MaxRetries: 2})

	_, err := e.Summarize(context.Background(), Request{Kind: model.KindFile, Path: "a.go"})
	assert.Equal(t, 3, calls)
	// Once the retry budget is spent the failure is node-local: callers
	// flag the node and keep going instead of aborting the run.
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.False(t, Retryable(err))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(fmt.Errorf("wrap: %w", ErrRateLimited)))
	assert.True(t, Retryable(ErrTimeout))
	assert.False(t, Retryable(ErrInvalidResponse))
	assert.False(t, Retryable(fmt.Errorf("other")))
}

func TestChildContextOmissionCount(t *testing.T) {
	children := []ChildSummary{
		{Name: "a.go", Summary: "Handles A."},
		{Name: "b.go", Summary: "Handles B."},
		{Name: "c.go", Summary: "Handles C."},
	}

	out := childContext(children, 40)

	assert.Contains(t, out, "- a.go: Handles A.")
	assert.Contains(t, out, "- b.go: Handles B.")
	assert.NotContains(t, out, "Handles C.")
	assert.Contains(t, out, "(1 more omitted)")
}

func TestTruncateTextKeepsRunesWhole(t *testing.T) {
	// "héllo" is 6 bytes: cutting at byte 2 lands inside the é.
	got := truncateText("héllo", 2)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "h\n... (truncated)", got)

	assert.Equal(t, "héllo", truncateText("héllo", 6))

	long := strings.Repeat("日本語", 10)
	cut := truncateText(long, 10)
	assert.True(t, utf8.ValidString(cut))
	assert.Contains(t, cut, "(truncated)")
}

func TestChildContextKeepsWholeSummaries(t *testing.T) {
	children := []ChildSummary{
		{Name: "x", Summary: "One complete sentence that must never be cut in half."},
	}
	out := childContext(children, 8000)
	assert.Contains(t, out, "One complete sentence that must never be cut in half.")
}

func TestBuildPromptPerKind(t *testing.T) {
	unit := BuildPrompt(Request{
		Kind: model.KindUnit, Name: "greet", Language: "python",
		UnitKind: model.UnitMethod, Signature: "def greet(self):",
		Source: "def greet(self):\n    return 'hi'",
	}, 8000)
	assert.Contains(t, unit, "python method")
	assert.Contains(t, unit, "def greet(self):")

	dir := BuildPrompt(Request{
		Kind: model.KindDirectory, Path: "pkg/store",
		Children: []ChildSummary{{Name: "store.go", Summary: "Persists things."}},
	}, 8000)
	assert.Contains(t, dir, `"pkg/store"`)
	assert.Contains(t, dir, "Persists things.")

	repo := BuildPrompt(Request{
		Kind: model.KindRepository, Name: "demo",
		Children: []ChildSummary{{Name: "cmd", Summary: "CLI entry points."}},
	}, 8000)
	assert.Contains(t, repo, "overview of the repository")
	assert.Contains(t, repo, "CLI entry points.")
}

func TestNewProviderTypes(t *testing.T) {
	cases := []struct {
		typ  string
		name string
	}{
		{"ollama", "ollama"},
		{"openai", "openai"},
		{"anthropic", "anthropic"},
		{"mock", "mock"},
	}
	for _, tc := range cases {
		p, err := NewProvider(ProviderConfig{Type: tc.typ})
		require.NoError(t, err, tc.typ)
		assert.Equal(t, tc.name, p.Name())
	}

	_, err := NewProvider(ProviderConfig{Type: "nope"})
	assert.Error(t, err)
}
