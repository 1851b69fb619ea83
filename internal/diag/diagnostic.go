package diag

import (
	"fmt"

	"fortio.org/safecast"
)

// Location points at a range inside a source file. Line is 1-based, Column is
// a 0-based byte offset into the line.
type Location struct {
	File     string
	Line     uint32
	Column   uint32
	Length   uint32
	LineText string
}

// NewLocation builds a Location from the int coordinates most producers use.
// Negative or oversized values are clamped to zero.
func NewLocation(file string, line, column, length int, lineText string) *Location {
	return &Location{
		File:     file,
		Line:     toUint32(line),
		Column:   toUint32(column),
		Length:   toUint32(length),
		LineText: lineText,
	}
}

func toUint32(v int) uint32 {
	out, err := safecast.Conv[uint32](v)
	if err != nil {
		return 0
	}
	return out
}

func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Line == 0 {
		return l.File
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column+1)
}

type Note struct {
	Location *Location
	Msg      string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Phase    Phase
	Message  string
	Location *Location
	Notes    []Note
	// Source names the producer, e.g. a transformer name or a backend message id.
	Source string
}

// File returns the file of the primary location, or "" for global diagnostics.
func (d Diagnostic) File() string {
	if d.Location == nil {
		return ""
	}
	return d.Location.File
}

func (d Diagnostic) String() string {
	if d.Location == nil {
		return fmt.Sprintf("%s %s: %s", d.Severity, d.Code.ID(), d.Message)
	}
	return fmt.Sprintf("%s: %s %s: %s", d.Location, d.Severity, d.Code.ID(), d.Message)
}
