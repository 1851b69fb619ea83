package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"weave/internal/buildcache"
	"weave/internal/tsconfig"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [flags] [app]",
	Short: "Remove emitted output and the build cache",
	Long:  "Remove the outDir of the project configuration and the incremental build cache.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func init() {
	addWorkspaceFlags(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	parsed, err := tsconfig.NewOSProvider().GetByConfigFilename(ws.tsconfig)
	if err != nil {
		return err
	}
	if outDir := parsed.Options.OutDir; outDir != "" {
		if within(outDir, ws.root()) {
			return fmt.Errorf("refusing to remove %q: it contains the project", outDir)
		}
		switch _, err := os.Stat(outDir); {
		case errors.Is(err, os.ErrNotExist):
			fmt.Fprintf(out, "output directory not found\n")
		case err != nil:
			return fmt.Errorf("failed to stat %q: %w", outDir, err)
		default:
			if err := os.RemoveAll(outDir); err != nil {
				return fmt.Errorf("failed to remove %q: %w", outDir, err)
			}
			fmt.Fprintf(out, "removed %s\n", formatPathForOutput(ws.cwd, outDir))
		}
	}

	if _, err := os.Stat(ws.cacheDir); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if within(ws.cacheDir, ws.root()) {
		return fmt.Errorf("refusing to clear cache %q: it contains the project", ws.cacheDir)
	}
	store, err := buildcache.OpenDiskStore(ws.fs, ws.cacheDir)
	if err != nil {
		return err
	}
	if err := store.DropAll(); err != nil {
		return err
	}
	fmt.Fprintf(out, "removed cache %s\n", formatPathForOutput(ws.cwd, store.Dir()))
	return nil
}
