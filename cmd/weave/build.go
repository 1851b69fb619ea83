package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"weave/internal/compiler"
	"weave/internal/diagfmt"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [app]",
	Short: "Check and emit a TypeScript project",
	Long:  "Build a project using weave.toml and the project configuration it points at. Diagnostics fail the build.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  buildExecution,
}

func init() {
	addWorkspaceFlags(buildCmd)
	addCompileFlags(buildCmd)
}

// addCompileFlags registers the output flags shared by build and start.
func addCompileFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "pretty", "diagnostics format (pretty|json|sarif)")
	cmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
}

func buildExecution(cmd *cobra.Command, args []string) error {
	out, err := compileWorkspace(cmd, args, nil)
	if err != nil {
		return err
	}
	if out.Status != compiler.StatusSuccess {
		return errBuildFailed
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if !quiet {
		success := color.New(color.FgGreen, color.Bold)
		fmt.Fprintf(cmd.OutOrStdout(), "%s emitted %d file(s)", success.Sprint("built"), len(out.Emitted))
		if out.ReusedFiles > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), ", %d reused", out.ReusedFiles)
		}
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}

// compileWorkspace runs one compilation for the command, with the progress
// UI when requested, and prints timings when --timings is set.
func compileWorkspace(cmd *cobra.Command, args []string, onSuccess func(ws *workspace)) (compiler.Outcome, error) {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return compiler.Outcome{}, err
	}
	defer cleanup()

	stderrColor, err := applyColor(cmd)
	if err != nil {
		return compiler.Outcome{}, err
	}
	formatValue, err := cmd.Flags().GetString("format")
	if err != nil {
		return compiler.Outcome{}, fmt.Errorf("failed to get format flag: %w", err)
	}
	format, ok := diagfmt.ParseFormat(formatValue)
	if !ok {
		return compiler.Outcome{}, fmt.Errorf("invalid --format value %q (expected pretty|json|sarif)", formatValue)
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return compiler.Outcome{}, fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return compiler.Outcome{}, err
	}
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return compiler.Outcome{}, fmt.Errorf("failed to get timings flag: %w", err)
	}

	ws, err := openWorkspace(cmd, args)
	if err != nil {
		return compiler.Outcome{}, err
	}
	setup := compileSetup{
		format: format,
		color:  stderrColor,
		stderr: cmd.ErrOrStderr(),
		stdout: cmd.OutOrStdout(),
	}
	var done func()
	if onSuccess != nil {
		done = func() { onSuccess(ws) }
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var out compiler.Outcome
	// Machine-readable diagnostics must not be interleaved with the UI.
	if format == diagfmt.FormatPretty && onSuccess == nil && shouldUseTUI(mode) {
		out, err = runCompileWithUI(ctx, "weave build", ws, setup, done)
	} else {
		var comp *compiler.Compiler
		comp, err = ws.newCompiler(setup)
		if err == nil {
			out, err = comp.Run(ctx, ws.cfg, ws.tsconfig, ws.app, done)
		}
	}
	if err != nil {
		return out, err
	}
	if timings {
		printStageTimings(cmd.ErrOrStderr(), out, onSuccess != nil)
	}
	return out, nil
}
