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

// Package summarize produces natural-language descriptions for nodes of
// the repository tree. A Summarizer turns one node (code unit, file,
// directory, or repository) plus its child summaries into a short
// English description, with bounded context, per-call timeouts, and
// retry on transient provider failures.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kraklabs/codescribe/pkg/model"
)

// Error taxonomy. RateLimited and Timeout are transient and retried
// with backoff; InvalidResponse is node-local and never retried within
// a run. A transient error that survives the retry budget is reported
// as InvalidResponse so the node is flagged instead of the run
// aborting.
var (
	ErrRateLimited     = errors.New("summarizer rate limited")
	ErrTimeout         = errors.New("summarizer timeout")
	ErrInvalidResponse = errors.New("summarizer returned invalid response")
)

// Retryable reports whether an error is worth re-attempting within the
// same run.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}

// ChildSummary is one already-summarized child offered as context for a
// parent node, in tree order.
type ChildSummary struct {
	Name    string
	Summary string
}

// Request describes one node to summarize.
type Request struct {
	Kind model.NodeKind

	// Name and Path identify the node ("" path for the repository root).
	Name string
	Path string

	// Language and Source apply to unit and file nodes. For files with
	// no extracted units the raw source is the only context.
	Language string
	Source   string

	// Signature applies to unit nodes.
	Signature string

	// UnitKind applies to unit nodes (function, class, method).
	UnitKind model.UnitKind

	// Children carries the summaries of direct children: units for a
	// file, files and subdirectories for a directory, top-level entries
	// for the repository.
	Children []ChildSummary
}

// Summarizer is the capability consumed by the aggregation pipeline.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

// Options tunes the engine.
type Options struct {
	// Model overrides the provider's default model.
	Model string

	// MaxContextChars bounds the prompt context assembled from source
	// text and child summaries. Defaults to 8000.
	MaxContextChars int

	// Timeout bounds each provider call. Defaults to 60s.
	Timeout time.Duration

	// MaxRetries bounds re-attempts on transient failures. Defaults to 3.
	MaxRetries int
}

func (o *Options) defaults() {
	if o.MaxContextChars <= 0 {
		o.MaxContextChars = 8000
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
}

// Engine is the production Summarizer: prompt construction, bounded
// context, per-call timeout, and bounded exponential backoff on
// transient provider errors.
type Engine struct {
	provider Provider
	opts     Options
	logger   *slog.Logger

	// backoff is swappable for tests.
	backoff func(attempt int) time.Duration
}

// NewEngine wraps a provider into a Summarizer.
func NewEngine(provider Provider, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	opts.defaults()
	return &Engine{provider: provider, opts: opts, logger: logger, backoff: backoffDelay}
}

// Summarize produces the description for one node.
func (e *Engine) Summarize(ctx context.Context, req Request) (string, error) {
	prompt := BuildPrompt(req, e.opts.MaxContextChars)

	var lastErr error
	for attempt := 0; attempt <= e.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := e.backoff(attempt)
			e.logger.Warn("summarize.retry",
				"path", req.Path,
				"kind", string(req.Kind),
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
			case <-time.After(delay):
			}
		}

		text, err := e.generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !Retryable(err) {
			return "", err
		}
	}
	// Retries exhausted: the failure becomes node-local so the caller
	// flags this node and moves on rather than aborting the run.
	return "", fmt.Errorf("%w: %s gave up after %d attempts: %v",
		ErrInvalidResponse, req.Path, e.opts.MaxRetries+1, lastErr)
}

func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	resp, err := e.provider.Generate(callCtx, GenerateRequest{
		Prompt: prompt,
		Model:  e.opts.Model,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", err
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrInvalidResponse)
	}
	return text, nil
}

// backoffDelay returns the wait before the given attempt (1-based):
// 1s, 2s, 4s, ... capped at 30s.
func backoffDelay(attempt int) time.Duration {
	d := time.Second << (attempt - 1)
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}
