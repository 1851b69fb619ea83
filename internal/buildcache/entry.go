package buildcache

import (
	"weave/internal/diag"
)

// SchemaVersion is bumped whenever the Entry encoding changes. Entries with a
// different schema are treated as misses.
const SchemaVersion uint16 = 1

// Entry is the cached result of checking one source file.
type Entry struct {
	Schema      uint16
	RunID       string
	Path        string
	ContentHash Digest
	Diagnostics []Diagnostic
}

// Diagnostic is the flattened, serialisable form of diag.Diagnostic.
type Diagnostic struct {
	Severity uint8
	Code     uint16
	Phase    uint8
	Message  string
	Source   string
	Loc      *Location
	Notes    []Note
}

type Location struct {
	File     string
	Line     uint32
	Column   uint32
	Length   uint32
	LineText string
}

type Note struct {
	Msg string
	Loc *Location
}

// FromDiagnostics flattens diagnostics for storage.
func FromDiagnostics(in []diag.Diagnostic) []Diagnostic {
	if len(in) == 0 {
		return nil
	}
	out := make([]Diagnostic, len(in))
	for i, d := range in {
		out[i] = Diagnostic{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Phase:    uint8(d.Phase),
			Message:  d.Message,
			Source:   d.Source,
			Loc:      fromLocation(d.Location),
		}
		for _, n := range d.Notes {
			out[i].Notes = append(out[i].Notes, Note{Msg: n.Msg, Loc: fromLocation(n.Location)})
		}
	}
	return out
}

// ToDiagnostics restores stored diagnostics.
func ToDiagnostics(in []Diagnostic) []diag.Diagnostic {
	if len(in) == 0 {
		return nil
	}
	out := make([]diag.Diagnostic, len(in))
	for i, d := range in {
		out[i] = diag.Diagnostic{
			Severity: diag.Severity(d.Severity),
			Code:     diag.Code(d.Code),
			Phase:    diag.Phase(d.Phase),
			Message:  d.Message,
			Source:   d.Source,
			Location: toLocation(d.Loc),
		}
		for _, n := range d.Notes {
			out[i].Notes = append(out[i].Notes, diag.Note{Msg: n.Msg, Location: toLocation(n.Loc)})
		}
	}
	return out
}

func fromLocation(l *diag.Location) *Location {
	if l == nil {
		return nil
	}
	return &Location{File: l.File, Line: l.Line, Column: l.Column, Length: l.Length, LineText: l.LineText}
}

func toLocation(l *Location) *diag.Location {
	if l == nil {
		return nil
	}
	return &diag.Location{File: l.File, Line: l.Line, Column: l.Column, Length: l.Length, LineText: l.LineText}
}
