package plugins

import (
	"strings"

	"weave/internal/program"
)

// Loader turns plugin specs into hooks.
type Loader struct {
	resolver Resolver
}

// NewLoader returns a Loader backed by r.
func NewLoader(r Resolver) *Loader {
	return &Loader{resolver: r}
}

// Load resolves every spec, validates each module and returns the hooks in
// declaration order. Any failure aborts the call and no hooks are returned.
func (l *Loader) Load(specs []Spec) (Hooks, error) {
	roots := l.resolver.Roots()

	modules := make([]Module, 0, len(specs))
	for i, spec := range specs {
		if strings.TrimSpace(spec.Name) == "" {
			return Hooks{}, &SpecError{Index: i, Reason: "empty plugin name"}
		}
		m, err := l.resolve(spec.Name, roots)
		if err != nil {
			return Hooks{}, err
		}
		modules = append(modules, m)
	}

	var hooks Hooks
	for i, m := range modules {
		capability, err := Validate(m)
		if err != nil {
			return Hooks{}, err
		}
		options := specs[i].boundOptions()
		if capability.HasBefore() {
			hooks.Before = append(hooks.Before, Hook{
				Plugin:  specs[i].Name,
				Stage:   program.StageBefore,
				options: options,
				factory: m.Before,
			})
		}
		if capability.HasAfter() {
			hooks.After = append(hooks.After, Hook{
				Plugin:  specs[i].Name,
				Stage:   program.StageAfter,
				options: options,
				factory: m.After,
			})
		}
	}
	return hooks, nil
}

// resolve loads name from the first root that contains it.
func (l *Loader) resolve(name string, roots []string) (Module, error) {
	searched := make([]string, 0, len(roots))
	for _, root := range roots {
		candidate := CandidatePath(root, name)
		searched = append(searched, candidate)
		if !l.resolver.Exists(candidate) {
			continue
		}
		return l.resolver.Load(name, candidate)
	}
	return Module{}, &PluginNotFoundError{Name: name, Searched: searched}
}
