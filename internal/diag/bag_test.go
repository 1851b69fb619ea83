package diag

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBagKeepsInsertionOrder(t *testing.T) {
	b := NewBag(2)
	b.Add(Diagnostic{Severity: SevWarning, Code: CheckWarning, Message: "second"})
	b.Add(Diagnostic{Severity: SevError, Code: CheckSyntax, Message: "first"})

	got := []string{}
	for _, d := range b.Items() {
		got = append(got, d.Message)
	}
	if diff := cmp.Diff([]string{"second", "first"}, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if b.Len() != 2 {
		t.Fatalf("Len = %d, want 2", b.Len())
	}
}

func TestBagItemsIsACopy(t *testing.T) {
	b := NewBag(0)
	b.Add(Diagnostic{Message: "a"})
	items := b.Items()
	items[0].Message = "mutated"
	if b.Items()[0].Message != "a" {
		t.Fatalf("bag was mutated through Items")
	}
}

func TestConcatPreservesPhaseOrder(t *testing.T) {
	pre := []Diagnostic{{Phase: PhasePreEmit, Message: "p1"}, {Phase: PhasePreEmit, Message: "p2"}}
	emit := []Diagnostic{{Phase: PhaseEmit, Message: "e1"}}

	got := Concat(pre, emit)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"p1", "p2", "e1"} {
		if got[i].Message != want {
			t.Fatalf("got[%d] = %q, want %q", i, got[i].Message, want)
		}
	}
	if len(Concat(nil)) != 0 {
		t.Fatalf("empty concat should be empty")
	}
}

func TestCodeString(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{CheckSyntax, "[CHK1001]: Invalid source"},
		{EmitTransform, "[EMT2001]: Transformer failed"},
		{Code(42), "[E0000]: Unknown error"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Fatalf("%d: got %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestNewLocationClampsNegative(t *testing.T) {
	loc := NewLocation("a.ts", 3, -1, 2, "let x")
	if loc.Line != 3 || loc.Column != 0 || loc.Length != 2 {
		t.Fatalf("unexpected location %+v", loc)
	}
	if loc.String() != "a.ts:3:1" {
		t.Fatalf("String() = %q", loc.String())
	}
}
