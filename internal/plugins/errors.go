package plugins

import (
	"errors"
	"fmt"

	"weave/internal/program"
)

var errNilTransformer = errors.New("factory returned no transformer")

// PluginNotFoundError reports a plugin name that no search root contains.
type PluginNotFoundError struct {
	Name     string
	Searched []string
}

func (e *PluginNotFoundError) Error() string {
	return fmt.Sprintf("%q plugin could not be found!", e.Name)
}

// InvalidPluginError reports a module that exports neither hook.
type InvalidPluginError struct {
	Name string
	Path string
}

func (e *InvalidPluginError) Error() string {
	return fmt.Sprintf("%q plugin is not compatible with weave: it must export \"before\" and/or \"after\" (%s)", e.Name, e.Path)
}

// LoadError wraps failures while reading or executing a plugin module.
type LoadError struct {
	Name string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("plugin %q (%s): %v", e.Name, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SpecError reports a malformed entry in the plugin list.
type SpecError struct {
	Index  int
	Reason string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("plugins[%d]: %s", e.Index, e.Reason)
}

// HookError wraps a factory failure while instantiating a transformer.
type HookError struct {
	Name  string
	Stage program.Stage
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("plugin %q %s hook: %v", e.Name, e.Stage, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }
