package buildcache

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/go-cmp/cmp"

	"weave/internal/diag"
)

func sampleEntry() *Entry {
	return &Entry{
		RunID:       "run-1",
		Path:        "/proj/src/a.ts",
		ContentHash: SumString("let a = 1"),
		Diagnostics: FromDiagnostics([]diag.Diagnostic{{
			Severity: diag.SevWarning,
			Code:     diag.CheckWarning,
			Message:  "suspicious",
			Location: diag.NewLocation("/proj/src/a.ts", 1, 4, 1, "let a = 1"),
			Notes:    []diag.Note{{Msg: "here"}},
		}}),
	}
}

func TestStores(t *testing.T) {
	disk, err := OpenDiskStore(memfs.New(), "/cache/weave")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	stores := map[string]Store{
		"memory": NewMemoryStore(4),
		"disk":   disk,
	}
	for name, st := range stores {
		t.Run(name, func(t *testing.T) {
			key := Combine(SumString("opts"), SumString("/proj/src/a.ts"))
			if _, ok, err := st.Get(key); err != nil || ok {
				t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
			}
			want := sampleEntry()
			if err := st.Put(key, want); err != nil {
				t.Fatalf("put: %v", err)
			}
			got, ok, err := st.Get(key)
			if err != nil || !ok {
				t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
			}
			want.Schema = SchemaVersion
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("entry mismatch (-want +got):\n%s", diff)
			}
			restored := ToDiagnostics(got.Diagnostics)
			if len(restored) != 1 || restored[0].Location.Column != 4 || restored[0].Code != diag.CheckWarning {
				t.Fatalf("unexpected restored diagnostics: %+v", restored)
			}
		})
	}
}

func TestDiskStoreDropAll(t *testing.T) {
	fsys := memfs.New()
	if err := util.WriteFile(fsys, "/ws/src/main.ts", []byte("export {};\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	st, err := OpenDiskStore(fsys, "/ws")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	key := SumString("k")
	if err := st.Put(key, sampleEntry()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := st.DropAll(); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, ok, err := st.Get(key); err != nil || ok {
		t.Fatalf("expected miss after DropAll, got ok=%v err=%v", ok, err)
	}
	if _, err := fsys.Stat("/ws/src/main.ts"); err != nil {
		t.Fatalf("DropAll removed a file outside the cache entries: %v", err)
	}
}

func TestCombineIsOrderSensitive(t *testing.T) {
	a, b := SumString("a"), SumString("b")
	if Combine(a, b) == Combine(b, a) {
		t.Fatalf("Combine must depend on argument order")
	}
	if Combine(a, b) != Combine(a, b) {
		t.Fatalf("Combine must be deterministic")
	}
}
