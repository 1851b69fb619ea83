package diag

import (
	"fmt"
)

type Code uint16

const (
	// Unknown / unclassified
	UnknownCode Code = 0

	// Checking (pre-emit)
	CheckInfo        Code = 1000
	CheckSyntax      Code = 1001
	CheckWarning     Code = 1002
	CheckUnsupported Code = 1003
	CheckReadFailed  Code = 1004

	// Emission
	EmitInfo      Code = 2000
	EmitTransform Code = 2001
	EmitCompile   Code = 2002
	EmitWrite     Code = 2003
	EmitMapWrite  Code = 2004

	// Observability
	ObsInfo  Code = 6000
	ObsCache Code = 6001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:      "Unknown error",
		CheckInfo:        "Check information",
		CheckSyntax:      "Invalid source",
		CheckWarning:     "Suspicious source",
		CheckUnsupported: "Unsupported construct",
		CheckReadFailed:  "Source could not be read",
		EmitInfo:         "Emit information",
		EmitTransform:    "Transformer failed",
		EmitCompile:      "Transformed source failed to compile",
		EmitWrite:        "Output could not be written",
		EmitMapWrite:     "Source map could not be written",
		ObsInfo:          "Observability information",
		ObsCache:         "Build cache unavailable",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("CHK%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("EMT%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
