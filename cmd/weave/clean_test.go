package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"weave/internal/config"
)

func newCleanCommand(args ...string) (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{Use: "clean", RunE: runClean, SilenceUsage: true, SilenceErrors: true}
	addWorkspaceFlags(cmd)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	return cmd, &out
}

func TestCleanRefusesCacheDirContainingProject(t *testing.T) {
	dir := t.TempDir()
	writeProjectFiles(t, dir, map[string]string{
		config.FileName: "[compiler_options]\ncache_dir = \".\"\n",
		"tsconfig.json": `{"compilerOptions": {"outDir": "dist"}}`,
		"src/main.ts":   "export {};\n",
	})
	cmd, _ := newCleanCommand("--config", filepath.Join(dir, config.FileName))
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "refusing to clear cache") {
		t.Fatalf("clean error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "src", "main.ts")); err != nil {
		t.Fatalf("project source removed: %v", err)
	}
}

func TestCleanRemovesOutputAndCacheEntries(t *testing.T) {
	dir := t.TempDir()
	cache := filepath.Join(dir, ".cache")
	writeProjectFiles(t, dir, map[string]string{
		config.FileName:         "[compiler_options]\ncache_dir = \".cache\"\n",
		"tsconfig.json":         `{"compilerOptions": {"outDir": "dist"}}`,
		"src/main.ts":           "export {};\n",
		"dist/main.js":          "",
		".cache/files/entry.mp": "",
		".cache/keep.txt":       "",
	})
	cmd, out := newCleanCommand("--config", filepath.Join(dir, config.FileName))
	if err := cmd.Execute(); err != nil {
		t.Fatalf("clean: %v", err)
	}
	for _, gone := range []string{filepath.Join(dir, "dist"), filepath.Join(cache, "files")} {
		if _, err := os.Stat(gone); !os.IsNotExist(err) {
			t.Fatalf("%s still exists (err=%v)", gone, err)
		}
	}
	for _, kept := range []string{filepath.Join(dir, "src", "main.ts"), filepath.Join(cache, "keep.txt")} {
		if _, err := os.Stat(kept); err != nil {
			t.Fatalf("%s removed: %v", kept, err)
		}
	}
	if !strings.Contains(out.String(), "removed cache") {
		t.Fatalf("output = %q", out.String())
	}
}
