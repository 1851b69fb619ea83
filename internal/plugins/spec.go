package plugins

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Spec is one entry of the user's plugin list: a bare name or a
// {name, options} pair.
type Spec struct {
	Name    string         `mapstructure:"name"`
	Options map[string]any `mapstructure:"options"`
}

// NewSpec returns a bare-name spec.
func NewSpec(name string) Spec {
	return Spec{Name: name}
}

// ParseSpecs converts the raw configuration value into specs. Accepted
// entries are strings and tables with a "name" key and an optional
// "options" table.
func ParseSpecs(raw any) ([]Spec, error) {
	if raw == nil {
		return nil, nil
	}
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	case []map[string]any:
		for _, m := range v {
			items = append(items, m)
		}
	default:
		return nil, fmt.Errorf("plugins: expected a list, got %T", raw)
	}

	specs := make([]Spec, 0, len(items))
	for i, item := range items {
		spec, err := parseSpec(i, item)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseSpec(index int, item any) (Spec, error) {
	switch v := item.(type) {
	case string:
		name := strings.TrimSpace(v)
		if name == "" {
			return Spec{}, &SpecError{Index: index, Reason: "empty plugin name"}
		}
		return Spec{Name: name}, nil
	case map[string]any:
		var spec Spec
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &spec,
			WeaklyTypedInput: false,
		})
		if err != nil {
			return Spec{}, err
		}
		if err := dec.Decode(v); err != nil {
			return Spec{}, &SpecError{Index: index, Reason: err.Error()}
		}
		spec.Name = strings.TrimSpace(spec.Name)
		if spec.Name == "" {
			return Spec{}, &SpecError{Index: index, Reason: "missing plugin name"}
		}
		return spec, nil
	case Spec:
		return v, nil
	}
	return Spec{}, &SpecError{Index: index, Reason: fmt.Sprintf("unsupported entry type %T", item)}
}

// boundOptions returns the options a hook is bound to: the pair's options or
// an empty map.
func (s Spec) boundOptions() map[string]any {
	out := make(map[string]any, len(s.Options))
	for k, v := range s.Options {
		out[k] = v
	}
	return out
}
