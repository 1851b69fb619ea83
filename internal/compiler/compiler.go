package compiler

import (
	"context"
	"fmt"
	"os"
	"time"

	"weave/internal/buildpipeline"
	"weave/internal/config"
	"weave/internal/diag"
	"weave/internal/diagfmt"
	"weave/internal/observ"
	"weave/internal/pathalias"
	"weave/internal/plugins"
	"weave/internal/program"
	"weave/internal/trace"
	"weave/internal/tsconfig"
)

// ConfigProvider loads a project configuration file.
type ConfigProvider interface {
	GetByConfigFilename(path string) (*tsconfig.Parsed, error)
}

// ProgramFactory builds a checked program.
type ProgramFactory interface {
	CreateProgram(ctx context.Context, req program.CreateOptions) (*program.Program, error)
}

// PluginLoader turns plugin specs into hooks.
type PluginLoader interface {
	Load(specs []plugins.Spec) (plugins.Hooks, error)
}

// DiagnosticReporter prints the diagnostics of a failed run.
type DiagnosticReporter interface {
	Report(diags []diag.Diagnostic) (int, error)
}

// Status is the verdict of a run.
type Status uint8

const (
	StatusSuccess Status = iota
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	}
	return "unknown"
}

// Outcome describes a finished run.
type Outcome struct {
	Status Status
	// Diagnostics holds pre-emit diagnostics followed by emit diagnostics.
	Diagnostics []diag.Diagnostic
	Emitted     []string
	EmitSkipped bool
	Mode        program.Mode
	ReusedFiles int
	Timings     buildpipeline.Timings
	Phases      observ.Report
}

// Compiler wires the collaborators of a run together.
type Compiler struct {
	configs   ConfigProvider
	programs  ProgramFactory
	loader    PluginLoader
	reporter  DiagnosticReporter
	progress  buildpipeline.ProgressSink
	pathAlias func(program.Options) program.Transformer
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithReporter sets where diagnostics of failed runs are printed.
func WithReporter(r DiagnosticReporter) Option {
	return func(c *Compiler) { c.reporter = r }
}

// WithProgress forwards pipeline events to sink.
func WithProgress(sink buildpipeline.ProgressSink) Option {
	return func(c *Compiler) { c.progress = sink }
}

// WithPathAliasFactory replaces the built-in path alias transformer.
func WithPathAliasFactory(fn func(program.Options) program.Transformer) Option {
	return func(c *Compiler) { c.pathAlias = fn }
}

// New returns a Compiler. Unless WithReporter is given, failed runs are
// printed to the process's stderr and stdout.
func New(configs ConfigProvider, programs ProgramFactory, loader PluginLoader, opts ...Option) *Compiler {
	c := &Compiler{
		configs:   configs,
		programs:  programs,
		loader:    loader,
		reporter:  &diagfmt.Reporter{Err: os.Stderr, Out: os.Stdout},
		pathAlias: pathalias.BeforeHookFactory,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run performs one compilation of configFilename for appName. When the run
// produced no diagnostics onSuccess, if set, is called exactly once.
// Otherwise the diagnostics are reported and StatusFailure is returned.
// Errors from collaborators are returned unchanged and stop the run before
// anything is emitted.
func (c *Compiler) Run(ctx context.Context, cfg *config.Configuration, configFilename, appName string, onSuccess func()) (out Outcome, err error) {
	ctx, span := trace.Start(trace.WithRun(ctx, appName, ""), trace.ScopeRun, "compile")
	defer span.End("")

	timer := observ.NewTimer()
	finish := func(stage buildpipeline.Stage, idx int, note string) {
		out.Timings.Set(stage, timer.End(idx, note))
	}
	defer func() { out.Phases = timer.Report() }()

	idx := timer.Begin("config")
	buildpipeline.EmitStage(c.progress, nil, buildpipeline.StageConfig, buildpipeline.StatusWorking, nil, 0)
	parsed, err := c.configs.GetByConfigFilename(configFilename)
	if err != nil {
		buildpipeline.EmitStage(c.progress, nil, buildpipeline.StageConfig, buildpipeline.StatusError, err, 0)
		return out, err
	}
	finish(buildpipeline.StageConfig, idx, fmt.Sprintf("files=%d", len(parsed.FileNames)))
	buildpipeline.EmitStage(c.progress, nil, buildpipeline.StageConfig, buildpipeline.StatusDone, nil, out.Timings.Duration(buildpipeline.StageConfig))
	buildpipeline.EmitStage(c.progress, parsed.FileNames, buildpipeline.StageCheck, buildpipeline.StatusQueued, nil, 0)

	idx = timer.Begin("check")
	prog, err := c.programs.CreateProgram(ctx, program.CreateOptions{
		RootNames:         parsed.FileNames,
		Options:           parsed.Options,
		ProjectReferences: parsed.ProjectReferences,
		Progress:          c.progress,
	})
	if err != nil {
		return out, err
	}
	ctx = trace.WithRun(ctx, "", prog.RunID())
	out.Mode = prog.Mode()
	out.ReusedFiles = prog.ReusedFiles()
	finish(buildpipeline.StageCheck, idx, fmt.Sprintf("mode=%s reused=%d refs=%d",
		prog.Mode(), prog.ReusedFiles(), len(prog.ProjectReferences())))

	idx = timer.Begin("plugins")
	transformers, err := c.transformers(ctx, cfg, appName, prog)
	if err != nil {
		buildpipeline.EmitStage(c.progress, nil, buildpipeline.StagePlugins, buildpipeline.StatusError, err, 0)
		return out, err
	}
	finish(buildpipeline.StagePlugins, idx, fmt.Sprintf("before=%d after=%d", len(transformers.Before), len(transformers.After)))
	buildpipeline.EmitStage(c.progress, nil, buildpipeline.StagePlugins, buildpipeline.StatusDone, nil, out.Timings.Duration(buildpipeline.StagePlugins))

	idx = timer.Begin("emit")
	res, err := prog.Emit(ctx, transformers, c.progress)
	if err != nil {
		return out, err
	}
	out.Emitted = res.EmittedFiles
	out.EmitSkipped = res.EmitSkipped
	finish(buildpipeline.StageEmit, idx, fmt.Sprintf("emitted=%d", len(res.EmittedFiles)))

	out.Diagnostics = diag.Concat(prog.PreEmitDiagnostics(), res.Diagnostics)
	span.WithExtra("diagnostics", fmt.Sprint(len(out.Diagnostics)))
	if len(out.Diagnostics) > 0 {
		out.Status = StatusFailure
		idx = timer.Begin("report")
		if c.reporter != nil {
			if _, err := c.reporter.Report(out.Diagnostics); err != nil {
				return out, err
			}
		}
		finish(buildpipeline.StageReport, idx, fmt.Sprintf("diagnostics=%d", len(out.Diagnostics)))
		buildpipeline.EmitStage(c.progress, nil, buildpipeline.StageReport, buildpipeline.StatusError, nil, out.Timings.Duration(buildpipeline.StageReport))
		return out, nil
	}

	out.Status = StatusSuccess
	if onSuccess != nil {
		started := time.Now()
		onSuccess()
		out.Timings.Set(buildpipeline.StageRun, time.Since(started))
	}
	return out, nil
}

// transformers loads the configured plugins, invokes their factories against
// prog and appends the path alias rewriter to the before list.
func (c *Compiler) transformers(ctx context.Context, cfg *config.Configuration, appName string, prog *program.Program) (program.CustomTransformers, error) {
	_, span := trace.Start(ctx, trace.ScopePhase, "plugins")
	defer span.End("")

	specs, err := plugins.ParseSpecs(cfg.Plugins(appName))
	if err != nil {
		return program.CustomTransformers{}, err
	}
	hooks, err := c.loader.Load(specs)
	if err != nil {
		return program.CustomTransformers{}, err
	}

	var out program.CustomTransformers
	for _, h := range hooks.Before {
		t, err := h.Invoke(prog)
		if err != nil {
			return program.CustomTransformers{}, err
		}
		out.Before = append(out.Before, t)
	}
	out.Before = append(out.Before, c.pathAlias(prog.Options()))
	for _, h := range hooks.After {
		t, err := h.Invoke(prog)
		if err != nil {
			return program.CustomTransformers{}, err
		}
		out.After = append(out.After, t)
	}
	out.AfterDeclarations = []program.Transformer{}
	span.WithExtra("plugins", fmt.Sprint(len(specs)))
	return out, nil
}
