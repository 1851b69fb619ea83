package diag

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevInfo is for informational diagnostics.
	SevInfo Severity = iota
	// SevWarning is for warning diagnostics.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Phase records which part of a run produced a diagnostic.
type Phase uint8

const (
	// PhasePreEmit covers findings from building and checking the program.
	PhasePreEmit Phase = iota
	// PhaseEmit covers findings from transformation and output.
	PhaseEmit
)

func (p Phase) String() string {
	switch p {
	case PhasePreEmit:
		return "pre-emit"
	case PhaseEmit:
		return "emit"
	}
	return "unknown"
}
