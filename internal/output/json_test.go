// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestJSONIndentsResult(t *testing.T) {
	var buf bytes.Buffer

	data := map[string]any{
		"repository":  "kraklabs/demo",
		"total_files": 42,
	}
	if err := JSONTo(&buf, data); err != nil {
		t.Fatalf("JSONTo failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "  \"repository\"") {
		t.Errorf("expected 2-space indentation, got: %s", got)
	}
	if !strings.Contains(got, `"repository": "kraklabs/demo"`) {
		t.Errorf("missing repository field, got: %s", got)
	}
	if !strings.Contains(got, `"total_files": 42`) {
		t.Errorf("missing total_files field, got: %s", got)
	}
	if !strings.HasSuffix(got, "}\n") {
		t.Errorf("expected trailing newline, got: %q", got)
	}
}

func TestJSONRespectsStructTags(t *testing.T) {
	type result struct {
		Repository string `json:"repository"`
		Files      int    `json:"files"`
		JobID      string `json:"job_id,omitempty"`
		Internal   string `json:"-"`
	}

	var buf bytes.Buffer
	data := result{Repository: "kraklabs/demo", Files: 3, Internal: "hidden"}
	if err := JSONTo(&buf, data); err != nil {
		t.Fatalf("JSONTo failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, `"repository"`) {
		t.Errorf("expected snake_case tag names, got: %s", got)
	}
	if strings.Contains(got, `"job_id"`) {
		t.Errorf("expected empty job_id to be omitted, got: %s", got)
	}
	if strings.Contains(got, "hidden") {
		t.Errorf("expected ignored field to be excluded, got: %s", got)
	}
}

func TestJSONNilPointer(t *testing.T) {
	type node struct {
		Summary *string `json:"summary"`
	}

	var buf bytes.Buffer
	if err := JSONTo(&buf, node{}); err != nil {
		t.Fatalf("JSONTo failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"summary": null`) {
		t.Errorf("expected null for nil pointer, got: %s", buf.String())
	}
}

func TestJSONError(t *testing.T) {
	var buf bytes.Buffer

	if encErr := JSONErrorTo(&buf, errors.New("repository not found")); encErr != nil {
		t.Fatalf("JSONErrorTo failed: %v", encErr)
	}

	got := buf.String()
	if !strings.Contains(got, `"error": "repository not found"`) {
		t.Errorf("missing error field, got: %s", got)
	}
	if !strings.Contains(got, "  \"error\"") {
		t.Errorf("expected 2-space indentation, got: %s", got)
	}
}

func TestJSONEscapesSpecialCharacters(t *testing.T) {
	var buf bytes.Buffer

	data := map[string]string{
		"summary": "Parses \"quoted\" tokens",
		"path":    "pkg\tstore",
	}
	if err := JSONTo(&buf, data); err != nil {
		t.Fatalf("JSONTo failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, `\"quoted\"`) {
		t.Errorf("expected escaped quotes, got: %s", got)
	}
	if !strings.Contains(got, `\t`) {
		t.Errorf("expected escaped tab, got: %s", got)
	}
}
