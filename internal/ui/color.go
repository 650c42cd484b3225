// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

// Package ui renders the human-readable side of the codescribe CLI:
// colored status lines, headers, and inline labels. Color honors the
// --no-color flag and the NO_COLOR environment variable, and is
// dropped automatically when stdout is not a terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	yellow = color.New(color.FgYellow)
	green  = color.New(color.FgGreen)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

// InitColors applies the --no-color flag. Call it once in main after
// flag parsing; fatih/color already honors NO_COLOR on its own.
func InitColors(noColor bool) {
	color.NoColor = noColor
}

// Success prints a green line with a checkmark prefix, e.g.
// "✓ Analysis complete".
func Success(msg string) {
	_, _ = green.Println("✓ " + msg)
}

// Successf is Success with formatting.
func Successf(format string, args ...any) {
	_, _ = green.Printf("✓ "+format+"\n", args...)
}

// Warning prints a yellow line with a warning prefix, e.g.
// "⚠ 2 files failed to parse".
func Warning(msg string) {
	_, _ = yellow.Println("⚠ " + msg)
}

// Warningf is Warning with formatting.
func Warningf(format string, args ...any) {
	_, _ = yellow.Printf("⚠ "+format+"\n", args...)
}

// Header prints a bold title with an = underline, used at the top of
// the status and tree views.
func Header(text string) {
	_, _ = bold.Println(text)
	fmt.Println(strings.Repeat("=", len(text)))
}

// SubHeader prints a bold section title without an underline.
func SubHeader(text string) {
	_, _ = bold.Println(text)
}

// Label returns text bolded for inline use, e.g.
// fmt.Printf("%s %s\n", ui.Label("Repository:"), name).
func Label(text string) string {
	return bold.Sprint(text)
}

// DimText returns text faintly rendered, for paths and other detail.
func DimText(text string) string {
	return dim.Sprint(text)
}

// CountText returns a count rendered in cyan for statistics lines.
func CountText(count int) string {
	return cyan.Sprint(count)
}
