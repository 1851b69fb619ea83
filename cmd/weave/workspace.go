package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"weave/internal/buildcache"
	"weave/internal/buildpipeline"
	"weave/internal/compiler"
	"weave/internal/config"
	"weave/internal/diagfmt"
	"weave/internal/plugins"
	"weave/internal/program"
	"weave/internal/tsconfig"
	"weave/internal/version"
)

// workspace is everything a command needs to know about the project it runs
// against.
type workspace struct {
	fs       billy.Filesystem
	cwd      string
	cfg      *config.Configuration
	app      string
	tsconfig string
	cacheDir string
}

// root is the directory of weave.toml, or the working directory without one.
func (w *workspace) root() string {
	if w.cfg != nil && w.cfg.Path != "" {
		return w.cfg.Root()
	}
	return w.cwd
}

// openWorkspace resolves the configuration, the project configuration path
// and the cache directory from the command flags.
func openWorkspace(cmd *cobra.Command, args []string) (*workspace, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	ws := &workspace{fs: osfs.New("/"), cwd: cwd}
	if len(args) > 0 {
		ws.app = args[0]
	}

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if configPath != "" {
		ws.cfg, err = config.Load(ws.fs, absFrom(cwd, configPath))
	} else {
		ws.cfg, err = config.Discover(ws.fs, cwd)
	}
	if err != nil {
		return nil, err
	}
	if ws.app != "" {
		if _, ok := ws.cfg.Projects[ws.app]; !ok {
			return nil, fmt.Errorf("unknown project %q", ws.app)
		}
	}

	tsPath, err := cmd.Flags().GetString("path")
	if err != nil {
		return nil, fmt.Errorf("failed to get path flag: %w", err)
	}
	if tsPath != "" {
		ws.tsconfig = absFrom(cwd, tsPath)
	} else {
		ws.tsconfig = absFrom(ws.root(), ws.cfg.TsconfigPathFor(ws.app))
	}

	cacheDir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return nil, fmt.Errorf("failed to get cache-dir flag: %w", err)
	}
	switch {
	case cacheDir != "":
		ws.cacheDir = absFrom(cwd, cacheDir)
	case ws.cfg.CacheDirFor(ws.app) != "":
		ws.cacheDir = absFrom(ws.root(), ws.cfg.CacheDirFor(ws.app))
	default:
		ws.cacheDir = buildcache.DefaultDir(ws.root())
	}
	return ws, nil
}

func absFrom(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

// addWorkspaceFlags registers the flags read by openWorkspace.
func addWorkspaceFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "path to "+config.FileName)
	cmd.Flags().StringP("path", "p", "", "path to the project configuration (overrides tsconfig_path)")
	cmd.Flags().String("cache-dir", "", "directory of the incremental build cache")
}

// compileSetup collects the knobs of one compile invocation.
type compileSetup struct {
	format   diagfmt.Format
	color    bool
	stderr   io.Writer
	stdout   io.Writer
	progress buildpipeline.ProgressSink
}

// newCompiler builds the orchestrator with on-disk collaborators.
func (w *workspace) newCompiler(setup compileSetup) (*compiler.Compiler, error) {
	store, err := buildcache.OpenDiskStore(w.fs, w.cacheDir)
	var builder *program.Builder
	if err != nil {
		// An unwritable cache still allows a full build.
		fmt.Fprintf(setup.stderr, "warning: %v; continuing without a build cache\n", err)
		builder = program.NewBuilder(w.fs, program.WithStore(buildcache.NewMemoryStore(0)))
	} else {
		builder = program.NewBuilder(w.fs, program.WithStore(store))
	}

	roots := plugins.DefaultRoots(w.root(), os.Getenv)
	resolver := plugins.NewFSResolver(w.fs, roots, plugins.WithOutput(setup.stderr))

	reporter := &diagfmt.Reporter{
		Err:    setup.stderr,
		Out:    setup.stdout,
		Host:   diagfmt.FormatHost{CurrentDirectory: w.cwd},
		Format: setup.format,
		Pretty: diagfmt.PrettyOpts{Color: setup.color, ShowNotes: true},
		JSON:   diagfmt.JSONOpts{IncludePositions: true, IncludeNotes: true},
		Sarif: diagfmt.SarifRunMeta{
			ToolName:       "weave",
			ToolVersion:    version.Version,
			InvocationArgs: os.Args[1:],
		},
	}

	opts := []compiler.Option{compiler.WithReporter(reporter)}
	if setup.progress != nil {
		opts = append(opts, compiler.WithProgress(setup.progress))
	}
	return compiler.New(tsconfig.NewOSProvider(), builder, plugins.NewLoader(resolver), opts...), nil
}
