package plugins

import (
	"weave/internal/program"
)

// Factory instantiates a transformer from bound options and the checked program.
type Factory func(options map[string]any, prog *program.Program) (program.Transformer, error)

// Module is a loaded plugin unit.
type Module struct {
	Name   string
	Path   string
	Before Factory
	After  Factory
}

// Capability is the validated shape of a module.
type Capability uint8

const (
	// BeforeOnly modules contribute a before hook.
	BeforeOnly Capability = iota + 1
	// AfterOnly modules contribute an after hook.
	AfterOnly
	// Both modules contribute a before and an after hook.
	Both
)

func (c Capability) String() string {
	switch c {
	case BeforeOnly:
		return "before"
	case AfterOnly:
		return "after"
	case Both:
		return "before+after"
	}
	return "invalid"
}

// HasBefore reports whether the module contributes a before hook.
func (c Capability) HasBefore() bool { return c == BeforeOnly || c == Both }

// HasAfter reports whether the module contributes an after hook.
func (c Capability) HasAfter() bool { return c == AfterOnly || c == Both }

// Validate classifies m, rejecting modules without any hook.
func Validate(m Module) (Capability, error) {
	switch {
	case m.Before != nil && m.After != nil:
		return Both, nil
	case m.Before != nil:
		return BeforeOnly, nil
	case m.After != nil:
		return AfterOnly, nil
	}
	return 0, &InvalidPluginError{Name: m.Name, Path: m.Path}
}

// Hook is a factory partially applied to its plugin's options. Invoke
// completes it with the program.
type Hook struct {
	Plugin  string
	Stage   program.Stage
	options map[string]any
	factory Factory
}

// Options returns a copy of the bound options.
func (h Hook) Options() map[string]any {
	out := make(map[string]any, len(h.options))
	for k, v := range h.options {
		out[k] = v
	}
	return out
}

// Invoke instantiates the transformer for prog.
func (h Hook) Invoke(prog *program.Program) (program.Transformer, error) {
	t, err := h.factory(h.Options(), prog)
	if err != nil {
		return nil, &HookError{Name: h.Plugin, Stage: h.Stage, Err: err}
	}
	if t == nil {
		return nil, &HookError{Name: h.Plugin, Stage: h.Stage, Err: errNilTransformer}
	}
	return t, nil
}

// Hooks are the user hooks in declaration order.
type Hooks struct {
	Before []Hook
	After  []Hook
}
