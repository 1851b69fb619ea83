package diagfmt

import (
	"encoding/json"
	"io"

	"weave/internal/diag"
)

// LocationJSON is a file position in JSON output.
type LocationJSON struct {
	File   string `json:"file"`
	Line   uint32 `json:"line,omitempty"`
	Column uint32 `json:"column,omitempty"`
	Length uint32 `json:"length,omitempty"`
}

// NoteJSON is an attached note in JSON output.
type NoteJSON struct {
	Message  string        `json:"message"`
	Location *LocationJSON `json:"location,omitempty"`
}

// DiagnosticJSON is one diagnostic in JSON output.
type DiagnosticJSON struct {
	Severity string        `json:"severity"`
	Code     string        `json:"code"`
	Phase    string        `json:"phase"`
	Message  string        `json:"message"`
	Source   string        `json:"source,omitempty"`
	Location *LocationJSON `json:"location,omitempty"`
	Notes    []NoteJSON    `json:"notes,omitempty"`
}

// DiagnosticsOutput is the root of JSON output.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

func makeLocation(loc *diag.Location, host FormatHost, opts JSONOpts) *LocationJSON {
	if loc == nil {
		return nil
	}
	out := &LocationJSON{File: host.displayPath(loc.File, opts.PathMode)}
	if opts.IncludePositions {
		out.Line = loc.Line
		out.Column = loc.Column + 1
		out.Length = loc.Length
	}
	return out
}

// BuildDiagnosticsOutput assembles JSON output without serialising it.
// Count is always the full number of diagnostics.
func BuildDiagnosticsOutput(diags []diag.Diagnostic, host FormatHost, opts JSONOpts) DiagnosticsOutput {
	n := len(diags)
	if opts.Max > 0 && opts.Max < n {
		n = opts.Max
	}
	out := make([]DiagnosticJSON, 0, n)
	for _, d := range diags[:n] {
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Phase:    d.Phase.String(),
			Message:  d.Message,
			Source:   d.Source,
			Location: makeLocation(d.Location, host, opts),
		}
		if opts.IncludeNotes {
			for _, note := range d.Notes {
				dj.Notes = append(dj.Notes, NoteJSON{
					Message:  note.Msg,
					Location: makeLocation(note.Location, host, opts),
				})
			}
		}
		out = append(out, dj)
	}
	return DiagnosticsOutput{Diagnostics: out, Count: len(diags)}
}

// JSON writes diagnostics as an indented JSON document.
func JSON(w io.Writer, diags []diag.Diagnostic, host FormatHost, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(diags, host, opts))
}
