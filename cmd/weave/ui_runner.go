package main

import (
	"bytes"
	"context"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"weave/internal/buildpipeline"
	"weave/internal/compiler"
	"weave/internal/ui"
)

type compileOutcome struct {
	result compiler.Outcome
	err    error
}

func runCompileWithUI(ctx context.Context, title string, ws *workspace, setup compileSetup, onSuccess func()) (compiler.Outcome, error) {
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan compileOutcome, 1)

	// Diagnostics are held back until the UI has released the terminal.
	stdout, stderr := setup.stdout, setup.stderr
	var outBuf, errBuf bytes.Buffer
	setup.stdout, setup.stderr = &outBuf, &errBuf
	setup.progress = buildpipeline.ChannelSink{Ch: events}
	comp, err := ws.newCompiler(setup)
	if err != nil {
		return compiler.Outcome{}, err
	}

	go func() {
		res, err := comp.Run(ctx, ws.cfg, ws.tsconfig, ws.app, onSuccess)
		outcomeCh <- compileOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, nil, events, ui.WithBase(ws.root()))
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	flushBuffered(stderr, &errBuf)
	flushBuffered(stdout, &outBuf)
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}

func flushBuffered(w io.Writer, buf *bytes.Buffer) {
	if w == nil || buf.Len() == 0 {
		return
	}
	_, _ = buf.WriteTo(w)
}
