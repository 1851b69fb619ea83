package plugins

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSpecs(t *testing.T) {
	raw := []any{
		"first",
		map[string]any{"name": "second", "options": map[string]any{"level": int64(2), "tags": []any{"a"}}},
		map[string]any{"name": " third "},
	}
	got, err := ParseSpecs(raw)
	if err != nil {
		t.Fatalf("ParseSpecs: %v", err)
	}
	want := []Spec{
		{Name: "first"},
		{Name: "second", Options: map[string]any{"level": int64(2), "tags": []any{"a"}}},
		{Name: "third"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("specs (-want +got):\n%s", diff)
	}
	if len(got[2].boundOptions()) != 0 || got[2].boundOptions() == nil {
		t.Fatalf("missing options must bind to an empty map")
	}
}

func TestParseSpecsErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"empty name", []any{""}},
		{"missing name", []any{map[string]any{"options": map[string]any{}}}},
		{"numeric name", []any{map[string]any{"name": 3}}},
		{"bad entry", []any{42}},
		{"not a list", "plugin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSpecs(tt.raw); err == nil {
				t.Fatalf("expected error for %#v", tt.raw)
			}
		})
	}

	_, err := ParseSpecs([]any{"ok", ""})
	var se *SpecError
	if !errors.As(err, &se) || se.Index != 1 {
		t.Fatalf("expected SpecError at index 1, got %v", err)
	}
}

func TestParseSpecsNil(t *testing.T) {
	got, err := ParseSpecs(nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}
