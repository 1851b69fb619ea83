package diagfmt

import (
	"fmt"
	"io"

	"weave/internal/diag"
)

// Reporter prints diagnostics of a failed run followed by a count line.
type Reporter struct {
	// Err receives the diagnostics themselves.
	Err io.Writer
	// Out receives the "Found N error(s)." summary.
	Out    io.Writer
	Host   FormatHost
	Format Format
	Pretty PrettyOpts
	JSON   JSONOpts
	Sarif  SarifRunMeta
}

// Report writes diags and the summary line, and returns the number of
// diagnostics written. Nothing is printed for an empty slice.
func (r *Reporter) Report(diags []diag.Diagnostic) (int, error) {
	if len(diags) == 0 {
		return 0, nil
	}
	var err error
	switch r.Format {
	case FormatJSON:
		err = JSON(r.Err, diags, r.Host, r.JSON)
	case FormatSarif:
		err = Sarif(r.Err, diags, r.Host, r.Sarif)
	default:
		err = Pretty(r.Err, diags, r.Host, r.Pretty)
	}
	if err != nil {
		return 0, fmt.Errorf("write diagnostics: %w", err)
	}
	if _, err := fmt.Fprintf(r.Out, "Found %d error(s).%s", len(diags), r.Host.newLine()); err != nil {
		return 0, fmt.Errorf("write summary: %w", err)
	}
	return len(diags), nil
}
