// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"testing"

	"github.com/fatih/color"
)

func withoutColor(t *testing.T) {
	t.Helper()
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = original })
}

func TestInitColors(t *testing.T) {
	original := color.NoColor
	defer func() { color.NoColor = original }()

	InitColors(true)
	if !color.NoColor {
		t.Error("InitColors(true): color.NoColor = false, expected true")
	}

	InitColors(false)
	if color.NoColor {
		t.Error("InitColors(false): color.NoColor = true, expected false")
	}
}

func TestLabel(t *testing.T) {
	withoutColor(t)

	if got := Label("Repository:"); got != "Repository:" {
		t.Errorf("Label() = %q, expected %q", got, "Repository:")
	}
	if got := Label(""); got != "" {
		t.Errorf("Label(\"\") = %q, expected empty string", got)
	}
}

func TestDimText(t *testing.T) {
	withoutColor(t)

	if got := DimText("/home/u/.codescribe"); got != "/home/u/.codescribe" {
		t.Errorf("DimText() = %q, expected %q", got, "/home/u/.codescribe")
	}
}

func TestCountText(t *testing.T) {
	withoutColor(t)

	cases := []struct {
		in   int
		want string
	}{
		{42, "42"},
		{0, "0"},
		{-1, "-1"},
	}
	for _, tc := range cases {
		if got := CountText(tc.in); got != tc.want {
			t.Errorf("CountText(%d) = %q, expected %q", tc.in, got, tc.want)
		}
	}
}

func TestMessageFunctions(t *testing.T) {
	withoutColor(t)

	// These write straight to stdout; the test only verifies they run
	// with formatting arguments without panicking.
	Success("analysis complete")
	Successf("analyzed %d files in %s", 42, "demo")
	Warning("2 files failed to parse")
	Warningf("%d units without summary", 3)
	Header("Repository Status")
	SubHeader("Recent Jobs")
}
