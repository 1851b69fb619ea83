package plugins

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/google/go-cmp/cmp"

	"weave/internal/program"
)

func identity(name string) Factory {
	return func(map[string]any, *program.Program) (program.Transformer, error) {
		return program.TransformerFunc{Label: name, Fn: func(_ *program.TransformContext, f program.SourceFile) (program.SourceFile, error) {
			return f, nil
		}}, nil
	}
}

func hookNames(hooks []Hook) []string {
	out := make([]string, 0, len(hooks))
	for _, h := range hooks {
		out = append(out, h.Plugin)
	}
	return out
}

func TestLoadBuildsHooksInDeclarationOrder(t *testing.T) {
	r := NewMemResolver("/proj/weave_plugins").
		Add("/proj/weave_plugins", "p1", Module{Before: identity("p1")}).
		Add("/proj/weave_plugins", "p2", Module{Before: identity("p2"), After: identity("p2")}).
		Add("/proj/weave_plugins", "p3", Module{After: identity("p3")})

	hooks, err := NewLoader(r).Load([]Spec{NewSpec("p1"), NewSpec("p2"), NewSpec("p3")})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]string{"p1", "p2"}, hookNames(hooks.Before)); diff != "" {
		t.Fatalf("before (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"p2", "p3"}, hookNames(hooks.After)); diff != "" {
		t.Fatalf("after (-want +got):\n%s", diff)
	}
	for _, h := range hooks.Before {
		if h.Stage != program.StageBefore {
			t.Fatalf("hook %s has stage %s", h.Plugin, h.Stage)
		}
	}
}

func TestLoadBindsOptions(t *testing.T) {
	var seen map[string]any
	r := NewMemResolver("/root").Add("/root", "p1", Module{
		Before: func(options map[string]any, _ *program.Program) (program.Transformer, error) {
			seen = options
			return identity("p1")(options, nil)
		},
	}).Add("/root", "bare", Module{After: identity("bare")})

	hooks, err := NewLoader(r).Load([]Spec{
		{Name: "p1", Options: map[string]any{"level": int64(3)}},
		NewSpec("bare"),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(hooks.Before) != 1 || len(hooks.After) != 1 {
		t.Fatalf("unexpected hooks %+v", hooks)
	}
	if _, err := hooks.Before[0].Invoke(nil); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"level": int64(3)}, seen); diff != "" {
		t.Fatalf("options (-want +got):\n%s", diff)
	}
	bare := hooks.After[0].Options()
	if bare == nil || len(bare) != 0 {
		t.Fatalf("bare spec must bind an empty map, got %#v", bare)
	}
}

func TestLoadNotFound(t *testing.T) {
	r := NewMemResolver("/a", "/b").Add("/a", "present", Module{Before: identity("present")})

	hooks, err := NewLoader(r).Load([]Spec{NewSpec("present"), NewSpec("ghost")})
	var nf *PluginNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected PluginNotFoundError, got %v", err)
	}
	if err.Error() != `"ghost" plugin could not be found!` {
		t.Fatalf("message = %q", err.Error())
	}
	if diff := cmp.Diff([]string{"/a/ghost.star", "/b/ghost.star"}, nf.Searched); diff != "" {
		t.Fatalf("searched (-want +got):\n%s", diff)
	}
	if len(hooks.Before) != 0 || len(hooks.After) != 0 {
		t.Fatalf("partial hooks returned: %+v", hooks)
	}
}

func TestLoadResolvesAllNamesBeforeValidating(t *testing.T) {
	r := NewMemResolver("/r").
		Add("/r", "empty", Module{}).
		Add("/r", "ok", Module{Before: identity("ok")})

	_, err := NewLoader(r).Load([]Spec{NewSpec("ok"), NewSpec("empty"), NewSpec("missing")})
	var nf *PluginNotFoundError
	if !errors.As(err, &nf) || nf.Name != "missing" {
		t.Fatalf("expected not-found for %q to win over invalid module, got %v", "missing", err)
	}

	_, err = NewLoader(r).Load([]Spec{NewSpec("ok"), NewSpec("empty")})
	var invalid *InvalidPluginError
	if !errors.As(err, &invalid) || invalid.Name != "empty" {
		t.Fatalf("expected InvalidPluginError for empty, got %v", err)
	}
}

func TestLoadFirstRootWins(t *testing.T) {
	r := NewMemResolver("/near", "/far").
		Add("/near", "p", Module{Before: identity("near")}).
		Add("/far", "p", Module{Before: identity("far")})

	if _, err := NewLoader(r).Load([]Spec{NewSpec("p")}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]string{"/near/p.star"}, r.Loaded()); diff != "" {
		t.Fatalf("loaded (-want +got):\n%s", diff)
	}
}

func TestLoadPropagatesLoadErrors(t *testing.T) {
	r := NewMemResolver("/r").AddError("/r", "broken", fs.ErrPermission)
	_, err := NewLoader(r).Load([]Spec{NewSpec("broken")})
	var le *LoadError
	if !errors.As(err, &le) || le.Path != "/r/broken.star" {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestLoadRejectsEmptyName(t *testing.T) {
	_, err := NewLoader(NewMemResolver("/r")).Load([]Spec{{Name: "  "}})
	var se *SpecError
	if !errors.As(err, &se) {
		t.Fatalf("expected SpecError, got %v", err)
	}
}

func TestLoadIsDeterministic(t *testing.T) {
	r := NewMemResolver("/r")
	var specs []Spec
	for _, n := range []string{"e", "d", "c", "b", "a"} {
		r.Add("/r", n, Module{Before: identity(n), After: identity(n)})
		specs = append(specs, NewSpec(n))
	}
	first, err := NewLoader(r).Load(specs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := NewLoader(r).Load(specs)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if diff := cmp.Diff(hookNames(first.Before), hookNames(again.Before)); diff != "" {
			t.Fatalf("run %d differs:\n%s", i, diff)
		}
	}
}

func TestLoadEmpty(t *testing.T) {
	hooks, err := NewLoader(NewMemResolver()).Load(nil)
	if err != nil || len(hooks.Before) != 0 || len(hooks.After) != 0 {
		t.Fatalf("unexpected result %+v, %v", hooks, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		module  Module
		want    Capability
		wantErr bool
	}{
		{"before", Module{Before: identity("x")}, BeforeOnly, false},
		{"after", Module{After: identity("x")}, AfterOnly, false},
		{"both", Module{Before: identity("x"), After: identity("x")}, Both, false},
		{"none", Module{Name: "x"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.module)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Fatalf("Validate = %v, %v", got, err)
			}
		})
	}
}

func TestInvokeWrapsFactoryErrors(t *testing.T) {
	boom := errors.New("boom")
	r := NewMemResolver("/r").Add("/r", "bad", Module{
		After: func(map[string]any, *program.Program) (program.Transformer, error) { return nil, boom },
	}).Add("/r", "nil", Module{
		After: func(map[string]any, *program.Program) (program.Transformer, error) { return nil, nil },
	})
	hooks, err := NewLoader(r).Load([]Spec{NewSpec("bad"), NewSpec("nil")})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err = hooks.After[0].Invoke(nil)
	var he *HookError
	if !errors.As(err, &he) || he.Name != "bad" || !errors.Is(err, boom) {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err := hooks.After[1].Invoke(nil); err == nil {
		t.Fatalf("nil transformer must be rejected")
	}
}
