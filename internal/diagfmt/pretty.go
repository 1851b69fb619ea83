package diagfmt

import (
	"io"

	"github.com/evanw/esbuild/pkg/api"

	"weave/internal/diag"
)

const defaultWidth = 100

// Pretty writes each diagnostic with its source line and a caret under the
// reported range, using esbuild's message renderer.
func Pretty(w io.Writer, diags []diag.Diagnostic, host FormatHost, opts PrettyOpts) error {
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	for _, d := range diags {
		kind := api.WarningMessage
		if d.Severity == diag.SevError {
			kind = api.ErrorMessage
		}
		formatted := api.FormatMessages([]api.Message{toMessage(d, host, opts)}, api.FormatMessagesOptions{
			TerminalWidth: width,
			Kind:          kind,
			Color:         opts.Color,
		})
		for _, s := range formatted {
			if _, err := io.WriteString(w, s); err != nil {
				return err
			}
		}
	}
	return nil
}

func toMessage(d diag.Diagnostic, host FormatHost, opts PrettyOpts) api.Message {
	msg := api.Message{
		ID:       d.Code.ID(),
		Text:     d.Code.ID() + ": " + d.Message,
		Location: toLocation(d.Location, host, opts.PathMode),
	}
	if d.Severity == diag.SevInfo {
		msg.Text = "info " + msg.Text
	}
	if opts.ShowNotes {
		for _, n := range d.Notes {
			msg.Notes = append(msg.Notes, api.Note{
				Text:     n.Msg,
				Location: toLocation(n.Location, host, opts.PathMode),
			})
		}
	}
	return msg
}

func toLocation(loc *diag.Location, host FormatHost, mode PathMode) *api.Location {
	if loc == nil {
		return nil
	}
	return &api.Location{
		File:     host.displayPath(loc.File, mode),
		Line:     int(loc.Line),
		Column:   int(loc.Column),
		Length:   int(loc.Length),
		LineText: loc.LineText,
	}
}
