// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

// Package output encodes the machine-readable side of the codescribe
// CLI. Every command that accepts --json routes its result through
// JSON and its failures through JSONError, so scripted callers get one
// consistent shape on stdout and stderr.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// JSON writes data to stdout as JSON indented with two spaces. This is
// the format behind --json on every codescribe command; results like
// the status report or the summary tree go through here.
func JSON(data any) error {
	return JSONTo(os.Stdout, data)
}

// JSONTo is JSON with an explicit destination, mainly for tests.
func JSONTo(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("JSON encoding failed: %w", err)
	}
	return nil
}

// ErrorJSON is the shape errors take on stderr in --json mode.
type ErrorJSON struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSONError writes err to stderr as an ErrorJSON object, keeping
// stdout clean for the command's result. Returns an error only if the
// encoding itself fails.
func JSONError(err error) error {
	return JSONErrorTo(os.Stderr, err)
}

// JSONErrorTo is JSONError with an explicit destination.
func JSONErrorTo(w io.Writer, err error) error {
	errObj := ErrorJSON{Error: err.Error()}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(errObj); encErr != nil {
		return fmt.Errorf("JSON error encoding failed: %w", encErr)
	}
	return nil
}
