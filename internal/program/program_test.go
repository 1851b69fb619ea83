package program

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/go-cmp/cmp"

	"weave/internal/buildcache"
	"weave/internal/buildpipeline"
	"weave/internal/diag"
	"weave/internal/testkit"
)

func writeFiles(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()
	fsys := memfs.New()
	for name, body := range files {
		if err := util.WriteFile(fsys, name, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return fsys
}

func readFile(t *testing.T, fsys billy.Filesystem, name string) string {
	t.Helper()
	data, err := util.ReadFile(fsys, name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func fixedRunID() string { return "run-test" }

func newProgram(t *testing.T, fsys billy.Filesystem, opts Options, roots ...string) *Program {
	t.Helper()
	prog, err := NewBuilder(fsys, WithRunID(fixedRunID)).CreateProgram(context.Background(), CreateOptions{
		RootNames: roots,
		Options:   opts,
	})
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	return prog
}

func TestCreateProgramReportsSyntaxErrors(t *testing.T) {
	sources := map[string]string{
		"/proj/src/good.ts": "export const a: number = 1;\n",
		"/proj/src/bad.ts":  "const x = ;\n",
	}
	fsys := writeFiles(t, sources)
	prog := newProgram(t, fsys, Options{OutDir: "/proj/dist"}, "/proj/src/good.ts", "/proj/src/bad.ts")

	diags := prog.PreEmitDiagnostics()
	if len(diags) == 0 {
		t.Fatalf("expected diagnostics for bad.ts")
	}
	if err := testkit.CheckLocationInvariants(diags, sources); err != nil {
		t.Fatalf("location invariants: %v", err)
	}
	for _, d := range diags {
		if d.File() != "/proj/src/bad.ts" {
			t.Fatalf("diagnostic attributed to %q: %s", d.File(), d)
		}
		if d.Severity != diag.SevError || d.Phase != diag.PhasePreEmit || d.Code != diag.CheckSyntax {
			t.Fatalf("unexpected diagnostic %+v", d)
		}
		if d.Location.Line != 1 {
			t.Fatalf("line = %d, want 1", d.Location.Line)
		}
	}
	if prog.Mode() != ModeFresh || prog.RunID() != "run-test" {
		t.Fatalf("mode=%s run=%s", prog.Mode(), prog.RunID())
	}
	if diff := cmp.Diff([]string{"/proj/src/good.ts", "/proj/src/bad.ts"}, prog.RootNames()); diff != "" {
		t.Fatalf("root names (-want +got):\n%s", diff)
	}
}

func TestCreateProgramMissingFileIsDiagnostic(t *testing.T) {
	prog := newProgram(t, memfs.New(), Options{}, "/proj/missing.ts")
	diags := prog.PreEmitDiagnostics()
	if len(diags) != 1 || diags[0].Code != diag.CheckReadFailed {
		t.Fatalf("unexpected diagnostics: %+v", diags)
	}
}

func TestCreateProgramRejectsUnknownTarget(t *testing.T) {
	_, err := NewBuilder(memfs.New()).CreateProgram(context.Background(), CreateOptions{
		Options: Options{Target: "es1999"},
	})
	if err == nil || !strings.Contains(err.Error(), "es1999") {
		t.Fatalf("expected target error, got %v", err)
	}
}

func TestSnapshotIsReadOnly(t *testing.T) {
	fsys := writeFiles(t, map[string]string{"/p/a.ts": "export {};\n"})
	prog, err := NewBuilder(fsys).CreateProgram(context.Background(), CreateOptions{
		RootNames:         []string{"/p/a.ts"},
		Options:           Options{Paths: map[string][]string{"@x/*": {"x/*"}}},
		ProjectReferences: []ProjectReference{{Path: "/q"}},
	})
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}

	opts := prog.Options()
	opts.Paths["@x/*"][0] = "mutated"
	roots := prog.RootNames()
	roots[0] = "mutated"
	refs := prog.ProjectReferences()
	refs[0].Path = "mutated"

	if prog.Options().Paths["@x/*"][0] != "x/*" || prog.RootNames()[0] != "/p/a.ts" || prog.ProjectReferences()[0].Path != "/q" {
		t.Fatalf("program snapshot was mutated through accessors")
	}
}

type recorder struct {
	calls []string
}

func (r *recorder) transformer(name string, edit func(string) string) Transformer {
	return TransformerFunc{Label: name, Fn: func(ctx *TransformContext, f SourceFile) (SourceFile, error) {
		r.calls = append(r.calls, ctx.SourcePath[strings.LastIndex(ctx.SourcePath, "/")+1:]+":"+name)
		if edit != nil {
			f.Text = edit(f.Text)
		}
		return f, nil
	}}
}

func TestEmitRunsTransformersInOrder(t *testing.T) {
	fsys := writeFiles(t, map[string]string{
		"/proj/src/a.ts":     "export const a: number = 1;\n",
		"/proj/src/lib/b.ts": "export const b: string = \"b\";\n",
	})
	prog := newProgram(t, fsys, Options{OutDir: "/proj/dist"}, "/proj/src/a.ts", "/proj/src/lib/b.ts")

	var rec recorder
	var sawTS, sawJS bool
	ct := CustomTransformers{
		Before: []Transformer{
			rec.transformer("b1", func(s string) string { sawTS = sawTS || strings.Contains(s, ": number"); return s }),
			rec.transformer("b2", nil),
		},
		After: []Transformer{
			rec.transformer("a1", func(s string) string {
				if strings.Contains(s, ": number") || strings.Contains(s, ": string") {
					sawJS = false
				} else {
					sawJS = true
				}
				return s + "// after\n"
			}),
		},
	}
	var sink buildpipeline.RecordingSink
	res, err := prog.Emit(context.Background(), ct, &sink)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(res.Diagnostics) != 0 || res.EmitSkipped {
		t.Fatalf("unexpected result %+v", res)
	}

	want := []string{"a.ts:b1", "a.ts:b2", "a.ts:a1", "b.ts:b1", "b.ts:b2", "b.ts:a1"}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Fatalf("invocation order (-want +got):\n%s", diff)
	}
	if !sawTS || !sawJS {
		t.Fatalf("before should see TypeScript and after should see JavaScript (ts=%v js=%v)", sawTS, sawJS)
	}
	if diff := cmp.Diff([]string{"/proj/dist/a.js", "/proj/dist/lib/b.js"}, res.EmittedFiles); diff != "" {
		t.Fatalf("emitted files (-want +got):\n%s", diff)
	}
	out := readFile(t, fsys, "/proj/dist/a.js")
	if !strings.Contains(out, "= 1") || !strings.HasSuffix(out, "// after\n") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	done := 0
	for _, ev := range sink.Events() {
		if ev.Stage == buildpipeline.StageEmit && ev.Status == buildpipeline.StatusDone {
			done++
		}
	}
	if done != 2 {
		t.Fatalf("got %d done events, want 2", done)
	}
}

func TestEmitTransformerFailureBecomesDiagnostic(t *testing.T) {
	fsys := writeFiles(t, map[string]string{
		"/proj/a.ts": "export const a = 1;\n",
		"/proj/b.ts": "export const b = 2;\n",
	})
	prog := newProgram(t, fsys, Options{OutDir: "/out"}, "/proj/a.ts", "/proj/b.ts")

	failing := TransformerFunc{Label: "explode", Fn: func(ctx *TransformContext, f SourceFile) (SourceFile, error) {
		if strings.HasSuffix(ctx.SourcePath, "a.ts") {
			return f, errors.New("boom")
		}
		return f, nil
	}}
	res, err := prog.Emit(context.Background(), CustomTransformers{After: []Transformer{failing}}, nil)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(res.Diagnostics), res.Diagnostics)
	}
	d := res.Diagnostics[0]
	if d.Code != diag.EmitTransform || d.Phase != diag.PhaseEmit || d.File() != "/proj/a.ts" || d.Source != "explode" {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if !strings.Contains(d.Message, "boom") {
		t.Fatalf("message lost cause: %q", d.Message)
	}
	if diff := cmp.Diff([]string{"/out/b.js"}, res.EmittedFiles); diff != "" {
		t.Fatalf("emitted (-want +got):\n%s", diff)
	}
}

func TestEmitRecoversTransformerPanic(t *testing.T) {
	fsys := writeFiles(t, map[string]string{"/p/a.ts": "export {};\n"})
	prog := newProgram(t, fsys, Options{}, "/p/a.ts")
	bad := TransformerFunc{Label: "panics", Fn: func(*TransformContext, SourceFile) (SourceFile, error) {
		panic("nil map")
	}}
	res, err := prog.Emit(context.Background(), CustomTransformers{Before: []Transformer{bad}}, nil)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(res.Diagnostics) != 1 || !strings.Contains(res.Diagnostics[0].Message, "panic: nil map") {
		t.Fatalf("unexpected diagnostics %+v", res.Diagnostics)
	}
}

func TestEmitSkipsFilesThatFailedChecking(t *testing.T) {
	fsys := writeFiles(t, map[string]string{
		"/p/good.ts": "export const ok = true;\n",
		"/p/bad.ts":  "const x = ;\n",
	})
	prog := newProgram(t, fsys, Options{OutDir: "/p/dist"}, "/p/good.ts", "/p/bad.ts")
	res, err := prog.Emit(context.Background(), CustomTransformers{}, nil)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if diff := cmp.Diff([]string{"/p/dist/good.js"}, res.EmittedFiles); diff != "" {
		t.Fatalf("emitted (-want +got):\n%s", diff)
	}
	if len(res.Diagnostics) != 0 {
		t.Fatalf("pre-emit errors must not be repeated at emit: %+v", res.Diagnostics)
	}
}

func TestEmitRefusesToOverwriteInput(t *testing.T) {
	const src = "export const a = 1;\n"
	fsys := writeFiles(t, map[string]string{
		"/proj/src/a.js": src,
		"/proj/src/b.ts": "export const b = 2;\n",
	})
	prog := newProgram(t, fsys, Options{AllowJS: true}, "/proj/src/a.js", "/proj/src/b.ts")
	res, err := prog.Emit(context.Background(), CustomTransformers{}, nil)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(res.Diagnostics), res.Diagnostics)
	}
	d := res.Diagnostics[0]
	if d.Code != diag.EmitWrite || d.File() != "/proj/src/a.js" || !strings.Contains(d.Message, "overwrite input file") {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if diff := cmp.Diff([]string{"/proj/src/b.js"}, res.EmittedFiles); diff != "" {
		t.Fatalf("emitted (-want +got):\n%s", diff)
	}
	if got := readFile(t, fsys, "/proj/src/a.js"); got != src {
		t.Fatalf("input was rewritten:\n%s", got)
	}
}

func TestEmitRejectsAfterDeclarations(t *testing.T) {
	fsys := writeFiles(t, map[string]string{"/p/a.ts": "export {};\n"})
	prog := newProgram(t, fsys, Options{OutDir: "/p/dist"}, "/p/a.ts")
	noop := TransformerFunc{Fn: func(_ *TransformContext, f SourceFile) (SourceFile, error) { return f, nil }}
	_, err := prog.Emit(context.Background(), CustomTransformers{AfterDeclarations: []Transformer{noop}}, nil)
	if err == nil || !strings.Contains(err.Error(), "declaration files are not emitted") {
		t.Fatalf("expected afterDeclarations error, got %v", err)
	}
	if _, err := fsys.Stat("/p/dist/a.js"); err == nil {
		t.Fatalf("output written despite rejected transformers")
	}

	res, err := prog.Emit(context.Background(), CustomTransformers{AfterDeclarations: []Transformer{}}, nil)
	if err != nil || len(res.EmittedFiles) != 1 {
		t.Fatalf("empty afterDeclarations: res=%+v err=%v", res, err)
	}
}

func TestEmitNoEmit(t *testing.T) {
	fsys := writeFiles(t, map[string]string{"/p/a.ts": "export {};\n"})
	prog := newProgram(t, fsys, Options{NoEmit: true, OutDir: "/p/dist"}, "/p/a.ts")
	res, err := prog.Emit(context.Background(), CustomTransformers{}, nil)
	if err != nil || !res.EmitSkipped || len(res.EmittedFiles) != 0 {
		t.Fatalf("unexpected result %+v err=%v", res, err)
	}
	if _, err := fsys.Stat("/p/dist/a.js"); err == nil {
		t.Fatalf("noEmit still wrote output")
	}
}

func TestEmitSourceMap(t *testing.T) {
	fsys := writeFiles(t, map[string]string{"/p/src/a.ts": "export const a: number = 1;\n"})
	prog := newProgram(t, fsys, Options{OutDir: "/p/dist", SourceMap: true}, "/p/src/a.ts")
	res, err := prog.Emit(context.Background(), CustomTransformers{}, nil)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if diff := cmp.Diff([]string{"/p/dist/a.js.map", "/p/dist/a.js"}, res.EmittedFiles); diff != "" {
		t.Fatalf("emitted (-want +got):\n%s", diff)
	}
	if !strings.HasSuffix(readFile(t, fsys, "/p/dist/a.js"), "//# sourceMappingURL=a.js.map\n") {
		t.Fatalf("missing source map comment")
	}
	if !strings.Contains(readFile(t, fsys, "/p/dist/a.js.map"), "\"mappings\"") {
		t.Fatalf("map file is not a source map")
	}
}

func TestIncrementalReusesCheckResults(t *testing.T) {
	fsys := writeFiles(t, map[string]string{
		"/p/a.ts": "export const a = 1;\n",
		"/p/b.ts": "const broken = ;\n",
	})
	store := buildcache.NewMemoryStore(4)
	opts := Options{Incremental: true}
	build := func() *Program {
		prog, err := NewBuilder(fsys, WithStore(store)).CreateProgram(context.Background(), CreateOptions{
			RootNames: []string{"/p/a.ts", "/p/b.ts"},
			Options:   opts,
		})
		if err != nil {
			t.Fatalf("CreateProgram: %v", err)
		}
		return prog
	}

	first := build()
	if first.Mode() != ModeIncremental || first.ReusedFiles() != 0 {
		t.Fatalf("first build: mode=%s reused=%d", first.Mode(), first.ReusedFiles())
	}
	second := build()
	if second.ReusedFiles() != 2 {
		t.Fatalf("second build reused %d files, want 2", second.ReusedFiles())
	}
	if diff := cmp.Diff(first.PreEmitDiagnostics(), second.PreEmitDiagnostics()); diff != "" {
		t.Fatalf("cached diagnostics differ (-first +second):\n%s", diff)
	}

	if err := util.WriteFile(fsys, "/p/b.ts", []byte("const fixed = 1;\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	third := build()
	if third.ReusedFiles() != 1 || len(third.PreEmitDiagnostics()) != 0 {
		t.Fatalf("third build: reused=%d diags=%d", third.ReusedFiles(), len(third.PreEmitDiagnostics()))
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		roots []string
		src   string
		want  string
	}{
		{"common root", Options{OutDir: "/o"}, []string{"/p/src/a.ts", "/p/src/x/b.ts"}, "/p/src/x/b.ts", "/o/x/b.js"},
		{"explicit root", Options{OutDir: "/o", RootDir: "/p"}, []string{"/p/src/a.ts"}, "/p/src/a.ts", "/o/src/a.js"},
		{"module ext", Options{OutDir: "/o"}, []string{"/p/a.mts"}, "/p/a.mts", "/o/a.mjs"},
		{"no outDir", Options{}, []string{"/p/a.tsx"}, "/p/a.tsx", "/p/a.js"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Program{options: tt.opts, rootDir: tt.opts.RootDir}
			if p.rootDir == "" {
				p.rootDir = commonSourceDir(tt.roots)
			}
			if got := p.OutputPath(tt.src); got != tt.want {
				t.Fatalf("OutputPath(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}
