// Package program holds a checked, read-only snapshot of a TypeScript project
// and emits JavaScript from it through ordered transformer pipelines.
package program

import (
	"os"

	"github.com/go-git/go-billy/v5"

	"weave/internal/diag"
)

// Mode records how a Program was constructed.
type Mode uint8

const (
	// ModeFresh means every file was checked in this run.
	ModeFresh Mode = iota
	// ModeIncremental means check results were looked up in a build cache.
	ModeIncremental
)

func (m Mode) String() string {
	if m == ModeIncremental {
		return "incremental"
	}
	return "fresh"
}

// Program is immutable once CreateProgram returns it. Every accessor
// returns a copy so callers and transformers cannot alter the snapshot.
type Program struct {
	fs         billy.Filesystem
	rootNames  []string
	options    Options
	references []ProjectReference
	files      []SourceFile
	byPath     map[string]int
	preEmit    []diag.Diagnostic
	failed     map[string]bool
	rootDir    string
	mode       Mode
	reused     int
	runID      string
}

// RootNames returns the root file names in declaration order.
func (p *Program) RootNames() []string {
	return append([]string(nil), p.rootNames...)
}

// Options returns a copy of the compiler options.
func (p *Program) Options() Options {
	return p.options.Clone()
}

// ProjectReferences returns the referenced projects.
func (p *Program) ProjectReferences() []ProjectReference {
	return append([]ProjectReference(nil), p.references...)
}

// SourceFile looks a loaded file up by path.
func (p *Program) SourceFile(path string) (SourceFile, bool) {
	i, ok := p.byPath[path]
	if !ok {
		return SourceFile{}, false
	}
	return p.files[i], true
}

// PreEmitDiagnostics returns the findings of checking, in root order.
func (p *Program) PreEmitDiagnostics() []diag.Diagnostic {
	return append([]diag.Diagnostic(nil), p.preEmit...)
}

// FileExists reports whether path names a regular file on the program's filesystem.
func (p *Program) FileExists(path string) bool {
	info, err := p.fs.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeType == 0
}

// Mode reports how the program was constructed.
func (p *Program) Mode() Mode { return p.mode }

// ReusedFiles is the number of files whose check result came from the cache.
func (p *Program) ReusedFiles() int { return p.reused }

// RunID identifies the run that built this program.
func (p *Program) RunID() string { return p.runID }
