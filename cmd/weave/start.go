package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/spf13/cobra"

	"weave/internal/compiler"
	"weave/internal/tsconfig"
)

var startCmd = &cobra.Command{
	Use:   "start [flags] [app] [-- args...]",
	Short: "Build a project and run its entry file",
	Long:  "Build a project and, when the build produced no diagnostics, run the emitted entry file with --exec.",
	Args:  cobra.ArbitraryArgs,
	RunE:  startExecution,
}

func init() {
	addWorkspaceFlags(startCmd)
	addCompileFlags(startCmd)
	startCmd.Flags().String("exec", "node", "program used to run the emitted entry file")
}

var entryExtensions = map[string]bool{".js": true, ".mjs": true, ".cjs": true}

func startExecution(cmd *cobra.Command, args []string) error {
	execValue, err := cmd.Flags().GetString("exec")
	if err != nil {
		return fmt.Errorf("failed to get exec flag: %w", err)
	}
	if strings.TrimSpace(execValue) == "" {
		return fmt.Errorf("--exec must not be empty")
	}
	appArgs, childArgs := splitArgsAtDash(cmd, args)
	if len(appArgs) > 1 {
		return fmt.Errorf("expected at most one app name, got %d", len(appArgs))
	}

	var runErr error
	out, err := compileWorkspace(cmd, appArgs, func(ws *workspace) {
		runErr = runEntry(cmd.Context(), ws, execValue, childArgs)
	})
	if err != nil {
		return err
	}
	if out.Status != compiler.StatusSuccess {
		return errBuildFailed
	}
	return runErr
}

// splitArgsAtDash separates positional args from those after "--".
func splitArgsAtDash(cmd *cobra.Command, args []string) (before, after []string) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return args, nil
	}
	return args[:dash], args[dash:]
}

// runEntry locates the emitted entry file and runs it with execPath,
// forwarding the child's exit status.
func runEntry(ctx context.Context, ws *workspace, execPath string, args []string) error {
	dir, err := outputDir(ws)
	if err != nil {
		return err
	}
	candidates, err := emittedScripts(ws.fs, dir)
	if err != nil {
		return err
	}
	name := ws.cfg.EntryFileFor(ws.app)
	entry, ok := findEntry(candidates, name)
	if !ok {
		return fmt.Errorf("entry file %q not found under %s", name, formatPathForOutput(ws.cwd, dir))
	}

	if ctx == nil {
		ctx = context.Background()
	}
	child := exec.CommandContext(ctx, execPath, append([]string{entry}, args...)...)
	child.Stdin = os.Stdin
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr
	child.Dir = ws.root()
	if err := child.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &exitError{code: exitErr.ExitCode()}
		}
		return fmt.Errorf("failed to run %s: %w", execPath, err)
	}
	return nil
}

// outputDir is the directory emitted JavaScript lands in: outDir when set,
// otherwise the source root next to the sources.
func outputDir(ws *workspace) (string, error) {
	parsed, err := tsconfig.NewOSProvider().GetByConfigFilename(ws.tsconfig)
	if err != nil {
		return "", err
	}
	if parsed.Options.OutDir != "" {
		return parsed.Options.OutDir, nil
	}
	return absFrom(ws.root(), ws.cfg.SourceRootFor(ws.app)), nil
}

// emittedScripts lists the JavaScript files below dir, skipping node_modules.
func emittedScripts(fsys billy.Filesystem, dir string) ([]string, error) {
	var out []string
	err := util.Walk(fsys, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, os.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			if info.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if entryExtensions[strings.ToLower(filepath.Ext(path))] {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", dir, err)
	}
	return out, nil
}

// findEntry picks the script whose name without extension is entry. The
// shallowest match wins; ties are broken by path.
func findEntry(paths []string, entry string) (string, bool) {
	entry = strings.TrimSuffix(entry, filepath.Ext(entry))
	var matches []string
	for _, p := range paths {
		ext := filepath.Ext(p)
		if !entryExtensions[strings.ToLower(ext)] {
			continue
		}
		if strings.TrimSuffix(filepath.Base(p), ext) == entry {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	sort.Slice(matches, func(i, j int) bool {
		di := strings.Count(filepath.ToSlash(matches[i]), "/")
		dj := strings.Count(filepath.ToSlash(matches[j]), "/")
		if di != dj {
			return di < dj
		}
		return matches[i] < matches[j]
	})
	return matches[0], true
}
