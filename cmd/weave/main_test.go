package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/go-cmp/cmp"

	"weave/internal/buildpipeline"
	"weave/internal/compiler"
	"weave/internal/config"
	"weave/internal/observ"
	"weave/internal/tsconfig"
)

func TestFindEntry(t *testing.T) {
	cases := []struct {
		name   string
		paths  []string
		entry  string
		want   string
		wantOK bool
	}{
		{"shallowest", []string{"/p/dist/a/main.js", "/p/dist/main.js"}, "main", "/p/dist/main.js", true},
		{"entry with extension", []string{"/p/dist/server.js"}, "server.ts", "/p/dist/server.js", true},
		{"module output", []string{"/p/dist/main.mjs", "/p/dist/main.js.map"}, "main", "/p/dist/main.mjs", true},
		{"tie broken by path", []string{"/p/dist/z/main.js", "/p/dist/b/main.cjs"}, "main", "/p/dist/b/main.cjs", true},
		{"prefix is not a match", []string{"/p/dist/mainly.js"}, "main", "", false},
		{"empty", nil, "main", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := findEntry(tc.paths, tc.entry)
			if got != tc.want || ok != tc.wantOK {
				t.Fatalf("findEntry = %q, %v; want %q, %v", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestReadUIMode(t *testing.T) {
	cases := map[string]switchMode{"": switchAuto, "AUTO": switchAuto, " on ": switchOn, "off": switchOff}
	for in, want := range cases {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatalf("expected error for invalid mode")
	}
	if !shouldUseTUI(switchOn) || shouldUseTUI(switchOff) {
		t.Fatalf("explicit modes must win over terminal detection")
	}
}

func TestResolveColor(t *testing.T) {
	on, err := resolveColor("on", os.Stderr)
	if err != nil || !on {
		t.Fatalf("on = %v, %v", on, err)
	}
	off, err := resolveColor("OFF", os.Stderr)
	if err != nil || off {
		t.Fatalf("off = %v, %v", off, err)
	}
	if _, err := resolveColor("rainbow", os.Stderr); err == nil {
		t.Fatalf("expected error for invalid color value")
	}
}

func TestWithin(t *testing.T) {
	cases := []struct {
		dir, path string
		want      bool
	}{
		{"/p", "/p", true},
		{"/p", "/p/dist", true},
		{"/p/dist", "/p", false},
		{"/p", "/pq", false},
		{"/", "/p", true},
	}
	for _, tc := range cases {
		if got := within(tc.dir, tc.path); got != tc.want {
			t.Fatalf("within(%q, %q) = %v", tc.dir, tc.path, got)
		}
	}
}

func TestFormatPathForOutput(t *testing.T) {
	if got := formatPathForOutput("/p", "/p/dist/main.js"); got != "dist/main.js" {
		t.Fatalf("got %q", got)
	}
	if got := formatPathForOutput("/p", "/q/main.js"); got != "/q/main.js" {
		t.Fatalf("outside root must stay absolute, got %q", got)
	}
}

func TestInitProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "app")

	created, err := initProject(dir)
	if err != nil {
		t.Fatalf("initProject: %v", err)
	}
	want := []string{"weave.toml", "tsconfig.json", "tsconfig.build.json", "src/main.ts"}
	if diff := cmp.Diff(want, created); diff != "" {
		t.Fatalf("created files (-want +got):\n%s", diff)
	}

	cfg, err := config.Load(osfs.New("/"), filepath.Join(dir, config.FileName))
	if err != nil {
		t.Fatalf("load weave.toml: %v", err)
	}
	if got := cfg.TsconfigPathFor(""); got != config.DefaultTsconfigPath {
		t.Fatalf("tsconfig_path = %q", got)
	}

	parsed, err := tsconfig.NewOSProvider().GetByConfigFilename(filepath.Join(dir, cfg.TsconfigPathFor("")))
	if err != nil {
		t.Fatalf("parse generated project configuration: %v", err)
	}
	if parsed.Options.OutDir != filepath.Join(dir, "dist") {
		t.Fatalf("outDir = %q", parsed.Options.OutDir)
	}
	if diff := cmp.Diff([]string{filepath.Join(dir, "src", "main.ts")}, parsed.FileNames); diff != "" {
		t.Fatalf("file names (-want +got):\n%s", diff)
	}

	if _, err := initProject(dir); err == nil || !strings.Contains(err.Error(), "already initialized") {
		t.Fatalf("second init error = %v", err)
	}
}

func TestInitProjectKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tsconfig.json"), []byte(`{"compilerOptions":{}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	created, err := initProject(dir)
	if err != nil {
		t.Fatalf("initProject: %v", err)
	}
	for _, f := range created {
		if f == "tsconfig.json" {
			t.Fatalf("existing tsconfig.json was overwritten")
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, "tsconfig.json"))
	if err != nil || string(data) != `{"compilerOptions":{}}` {
		t.Fatalf("tsconfig.json = %q, %v", data, err)
	}
}

func TestPrintStageTimings(t *testing.T) {
	var out compiler.Outcome
	out.Phases = observ.Report{TotalMS: 3, Phases: []observ.PhaseReport{{Name: "emit", DurationMS: 3, Note: "emitted=1"}}}
	out.Timings.Set(buildpipeline.StageRun, 2*time.Millisecond)

	var buf bytes.Buffer
	printStageTimings(&buf, out, true)
	got := buf.String()
	for _, want := range []string{"emit", "emitted=1", "total", "ran 2.0 ms"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output %q missing %q", got, want)
		}
	}

	buf.Reset()
	printStageTimings(&buf, out, false)
	if strings.Contains(buf.String(), "ran") {
		t.Fatalf("run timing printed without includeRun: %q", buf.String())
	}
}

func TestVersionReport(t *testing.T) {
	r := newVersionReport(true, false)
	if r.Tool != "weave" || r.Version == "" {
		t.Fatalf("report = %+v", r)
	}
	if r.GitCommit == "" || r.BuildDate != "" {
		t.Fatalf("only the hash was requested: %+v", r)
	}
	var buf bytes.Buffer
	r.writePretty(&buf)
	if !strings.Contains(buf.String(), "commit: ") || strings.Contains(buf.String(), "built:") {
		t.Fatalf("pretty output = %q", buf.String())
	}
}
