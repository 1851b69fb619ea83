// Package testkit holds assertions shared by package tests.
package testkit

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"weave/internal/diag"
)

// CheckLocationInvariants verifies that every location in diags fits the
// source it points into:
// 1) the file is one of files
// 2) a positioned location has a line inside the file
// 3) column and length stay within that line
// 4) LineText, when set, is the text of that line
//
// Locations with Line 0 refer to a whole file and only need condition 1.
func CheckLocationInvariants(diags []diag.Diagnostic, files map[string]string) error {
	for i, d := range diags {
		if err := checkLocation(d.Location, files); err != nil {
			return fmt.Errorf("diagnostic %d (%s): %w", i, d.Message, err)
		}
		for j, n := range d.Notes {
			if err := checkLocation(n.Location, files); err != nil {
				return fmt.Errorf("diagnostic %d note %d: %w", i, j, err)
			}
		}
	}
	return nil
}

func checkLocation(loc *diag.Location, files map[string]string) error {
	if loc == nil {
		return nil
	}
	text, ok := files[loc.File]
	if !ok {
		return fmt.Errorf("unknown file %q", loc.File)
	}
	if loc.Line == 0 {
		return nil
	}
	lines := strings.Split(text, "\n")
	count, err := safecast.Conv[uint32](len(lines))
	if err != nil {
		return fmt.Errorf("line count overflow: %w", err)
	}
	if loc.Line > count {
		return fmt.Errorf("line %d beyond end of %s (%d lines)", loc.Line, loc.File, count)
	}
	line := strings.TrimSuffix(lines[loc.Line-1], "\r")
	width, err := safecast.Conv[uint32](len(line))
	if err != nil {
		return fmt.Errorf("line length overflow: %w", err)
	}
	if loc.Column > width {
		return fmt.Errorf("column %d beyond line %d of %s (%d bytes)", loc.Column, loc.Line, loc.File, width)
	}
	if loc.Column+loc.Length > width {
		return fmt.Errorf("range %d+%d beyond line %d of %s (%d bytes)", loc.Column, loc.Length, loc.Line, loc.File, width)
	}
	if loc.LineText != "" && loc.LineText != line {
		return fmt.Errorf("line text %q does not match line %d %q", loc.LineText, loc.Line, line)
	}
	return nil
}
