package program

import (
	"github.com/evanw/esbuild/pkg/api"

	"weave/internal/diag"
)

// checkFile runs the backend over one file and returns its pre-emit findings.
func checkFile(opts Options, file SourceFile) []diag.Diagnostic {
	topts, err := opts.transformOptions(file.Path, false)
	if err != nil {
		return []diag.Diagnostic{{
			Severity: diag.SevError,
			Code:     diag.CheckUnsupported,
			Phase:    diag.PhasePreEmit,
			Message:  err.Error(),
			Location: &diag.Location{File: file.Path},
		}}
	}
	res := api.Transform(file.Text, topts)
	out := fromMessages(res.Errors, diag.SevError, diag.CheckSyntax, diag.PhasePreEmit)
	return append(out, fromMessages(res.Warnings, diag.SevWarning, diag.CheckWarning, diag.PhasePreEmit)...)
}

func fromMessages(msgs []api.Message, sev diag.Severity, code diag.Code, phase diag.Phase) []diag.Diagnostic {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]diag.Diagnostic, 0, len(msgs))
	for _, m := range msgs {
		d := diag.Diagnostic{
			Severity: sev,
			Code:     code,
			Phase:    phase,
			Message:  m.Text,
			Location: fromLocation(m.Location),
			Source:   m.ID,
		}
		for _, n := range m.Notes {
			d.Notes = append(d.Notes, diag.Note{Msg: n.Text, Location: fromLocation(n.Location)})
		}
		out = append(out, d)
	}
	return out
}

func fromLocation(l *api.Location) *diag.Location {
	if l == nil {
		return nil
	}
	return diag.NewLocation(l.File, l.Line, l.Column, l.Length, l.LineText)
}
