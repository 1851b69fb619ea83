package diagfmt

import (
	"path/filepath"
	"strings"
)

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto uses relative paths for files under the current directory.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// Format selects the output encoding of a Reporter.
type Format string

const (
	FormatPretty Format = "pretty"
	FormatJSON   Format = "json"
	FormatSarif  Format = "sarif"
)

// ParseFormat accepts "pretty", "json" or "sarif"; "" means pretty.
func ParseFormat(s string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPretty:
		return FormatPretty, true
	case FormatJSON:
		return FormatJSON, true
	case FormatSarif:
		return FormatSarif, true
	}
	return "", false
}

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	Width     int // terminal width, 0 lets the formatter decide
	ShowNotes bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool
	PathMode         PathMode
	Max              int // trims output only, never the count
	IncludeNotes     bool
}

// SarifRunMeta provides metadata for SARIF output.
type SarifRunMeta struct {
	ToolName       string
	ToolVersion    string
	InvocationArgs []string
}

// FormatHost supplies the environment used when printing paths.
type FormatHost struct {
	// CanonicalFileName normalises a path before display; nil keeps it as is.
	CanonicalFileName func(string) string
	CurrentDirectory  string
	NewLine           string
}

func (h FormatHost) newLine() string {
	if h.NewLine == "" {
		return "\n"
	}
	return h.NewLine
}

// displayPath renders path according to mode.
func (h FormatHost) displayPath(path string, mode PathMode) string {
	if path == "" {
		return ""
	}
	if h.CanonicalFileName != nil {
		path = h.CanonicalFileName(path)
	}
	switch mode {
	case PathModeAbsolute:
		return path
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeRelative, PathModeAuto:
		if h.CurrentDirectory == "" || !filepath.IsAbs(path) {
			return path
		}
		rel, err := filepath.Rel(h.CurrentDirectory, path)
		if err != nil {
			return path
		}
		if mode == PathModeAuto && strings.HasPrefix(rel, "..") {
			return path
		}
		return filepath.ToSlash(rel)
	}
	return path
}
