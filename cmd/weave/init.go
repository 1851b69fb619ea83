package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"weave/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a new weave project",
	Long: `Initialize a new weave project by writing weave.toml, a tsconfig.json with
a tsconfig.build.json extending it, and a src/main.ts entry file. If [path] is
omitted, initializes the current directory; a missing directory is created.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

const defaultTsconfig = `{
  // Shared compiler options; tsconfig.build.json narrows the file set.
  "compilerOptions": {
    "target": "es2021",
    "module": "commonjs",
    "rootDir": "src",
    "outDir": "dist",
    "baseUrl": ".",
    "paths": {
      "@app/*": ["src/*"]
    },
    "sourceMap": true,
    "incremental": true,
    "experimentalDecorators": true
  },
  "include": ["src"]
}
`

const defaultBuildTsconfig = `{
  "extends": "./tsconfig.json",
  "exclude": ["node_modules", "dist", "**/*.spec.ts"]
}
`

const defaultMainTS = `const greeting: string = "hello from weave";

console.log(greeting);
`

// initFile is one file written by init.
type initFile struct {
	rel     string
	content func() ([]byte, error)
}

func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	target := wd
	if len(args) > 0 && args[0] != "." {
		target = absFrom(wd, args[0])
	}

	created, err := initProject(target)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized weave project in %s\n", formatPathForOutput(wd, target))
	for _, f := range created {
		fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", f)
	}
	return nil
}

// initProject writes the project skeleton into target and returns the files
// it created, relative to target. It refuses to touch a directory that
// already has weave.toml; other existing files are kept.
func initProject(target string) ([]string, error) {
	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err := os.MkdirAll(target, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", target)
	}

	configPath := filepath.Join(target, config.FileName)
	if _, err := os.Stat(configPath); err == nil {
		return nil, fmt.Errorf("project already initialized: %s exists", configPath)
	}

	files := []initFile{
		{config.FileName, func() ([]byte, error) { return config.Encode(config.Default()) }},
		{"tsconfig.json", constant(defaultTsconfig)},
		{config.DefaultTsconfigPath, constant(defaultBuildTsconfig)},
		{filepath.Join(config.DefaultSourceRoot, config.DefaultEntryFile+".ts"), constant(defaultMainTS)},
	}
	var created []string
	for _, f := range files {
		path := filepath.Join(target, f.rel)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		data, err := f.content()
		if err != nil {
			return created, fmt.Errorf("failed to render %s: %w", f.rel, err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return created, fmt.Errorf("failed to create directory for %s: %w", f.rel, err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return created, fmt.Errorf("failed to write %s: %w", f.rel, err)
		}
		created = append(created, filepath.ToSlash(f.rel))
	}
	return created, nil
}

func constant(s string) func() ([]byte, error) {
	return func() ([]byte, error) { return []byte(s), nil }
}
