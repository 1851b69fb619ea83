package program

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/go-git/go-billy/v5/util"

	"weave/internal/buildpipeline"
	"weave/internal/diag"
	"weave/internal/trace"
)

// EmitResult summarises one emission pass.
type EmitResult struct {
	EmitSkipped  bool
	Diagnostics  []diag.Diagnostic
	EmittedFiles []string
}

// Emit transforms, compiles and writes every root file in order. Files that
// failed checking are not emitted. A failing transformer, compile or write
// turns into an emit diagnostic for that file and emission continues with the
// next file. The returned error is only set when ctx is cancelled or when
// AfterDeclarations transformers are supplied.
func (p *Program) Emit(ctx context.Context, transformers CustomTransformers, sink buildpipeline.ProgressSink) (EmitResult, error) {
	if n := len(transformers.AfterDeclarations); n > 0 {
		return EmitResult{}, fmt.Errorf("%d afterDeclarations transformer(s) given, but declaration files are not emitted", n)
	}
	ctx, span := trace.Start(ctx, trace.ScopePhase, "emit")
	defer span.End("")

	if p.options.NoEmit || (p.options.NoEmitOnError && len(p.failed) > 0) {
		for _, f := range p.files {
			buildpipeline.EmitFile(sink, f.Path, buildpipeline.StageEmit, buildpipeline.StatusSkipped, nil, 0)
		}
		return EmitResult{EmitSkipped: true}, nil
	}

	var res EmitResult
	bag := diag.NewBag(0)
	for _, file := range p.files {
		if err := ctx.Err(); err != nil {
			res.Diagnostics = bag.Items()
			return res, err
		}
		if p.failed[file.Path] {
			buildpipeline.EmitFile(sink, file.Path, buildpipeline.StageEmit, buildpipeline.StatusSkipped, nil, 0)
			continue
		}
		buildpipeline.EmitFile(sink, file.Path, buildpipeline.StageEmit, buildpipeline.StatusWorking, nil, 0)
		started := time.Now()
		fileCtx, fileSpan := trace.Start(ctx, trace.ScopeFile, "emit:"+filepath.Base(file.Path))

		written, diags := p.emitFile(fileCtx, file, transformers)
		for _, d := range diags {
			bag.Add(d)
		}
		res.EmittedFiles = append(res.EmittedFiles, written...)

		status := buildpipeline.StatusDone
		if len(diags) > 0 {
			status = buildpipeline.StatusError
		}
		fileSpan.End(string(status))
		buildpipeline.EmitFile(sink, file.Path, buildpipeline.StageEmit, status, nil, time.Since(started))
	}
	res.Diagnostics = bag.Items()
	span.WithExtra("emitted", fmt.Sprint(len(res.EmittedFiles))).WithExtra("diagnostics", fmt.Sprint(bag.Len()))
	return res, nil
}

func (p *Program) emitFile(ctx context.Context, file SourceFile, transformers CustomTransformers) ([]string, []diag.Diagnostic) {
	outPath := p.OutputPath(file.Path)
	if _, isInput := p.byPath[outPath]; isInput {
		return nil, []diag.Diagnostic{emitDiag(diag.EmitWrite, file.Path, "",
			fmt.Sprintf("cannot write file %q because it would overwrite input file", outPath))}
	}
	tctx := &TransformContext{
		Context:    ctx,
		Program:    p,
		Stage:      StageBefore,
		SourcePath: file.Path,
		OutputPath: outPath,
	}

	cur, d := runTransformers(tctx, transformers.Before, file)
	if d != nil {
		return nil, []diag.Diagnostic{*d}
	}

	topts, err := p.options.transformOptions(file.Path, p.options.SourceMap)
	if err != nil {
		return nil, []diag.Diagnostic{emitDiag(diag.EmitCompile, file.Path, "", err.Error())}
	}
	compiled := api.Transform(cur.Text, topts)
	if len(compiled.Errors) > 0 {
		return nil, fromMessages(compiled.Errors, diag.SevError, diag.EmitCompile, diag.PhaseEmit)
	}

	tctx.Stage = StageAfter
	out, d := runTransformers(tctx, transformers.After, SourceFile{Path: outPath, Text: string(compiled.Code)})
	if d != nil {
		return nil, []diag.Diagnostic{*d}
	}

	text := out.Text
	var written []string
	if p.options.SourceMap && len(compiled.Map) > 0 {
		mapPath := outPath + ".map"
		if err := p.writeOutput(mapPath, compiled.Map); err != nil {
			return nil, []diag.Diagnostic{emitDiag(diag.EmitMapWrite, file.Path, "", err.Error())}
		}
		written = append(written, mapPath)
		text += "//# sourceMappingURL=" + filepath.Base(mapPath) + "\n"
	}
	if err := p.writeOutput(outPath, []byte(text)); err != nil {
		return written, []diag.Diagnostic{emitDiag(diag.EmitWrite, file.Path, "", err.Error())}
	}
	return append(written, outPath), nil
}

func (p *Program) writeOutput(path string, data []byte) error {
	if err := p.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %q: %w", filepath.Dir(path), err)
	}
	if err := util.WriteFile(p.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	return nil
}

// runTransformers applies list in order and stops at the first failure.
func runTransformers(tctx *TransformContext, list []Transformer, file SourceFile) (SourceFile, *diag.Diagnostic) {
	cur := file
	for _, t := range list {
		if t == nil {
			continue
		}
		_, span := trace.Start(tctx.Context, trace.ScopeTransform, string(tctx.Stage)+":"+t.Name())
		next, err := safeTransform(t, tctx, cur)
		span.End("")
		if err != nil {
			d := emitDiag(diag.EmitTransform, tctx.SourcePath, t.Name(),
				fmt.Sprintf("%s transformer %q failed: %v", tctx.Stage, t.Name(), err))
			return cur, &d
		}
		cur.Text = next.Text
	}
	return cur, nil
}

func safeTransform(t Transformer, tctx *TransformContext, file SourceFile) (out SourceFile, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.Transform(tctx, file)
}

func emitDiag(code diag.Code, file, source, msg string) diag.Diagnostic {
	return diag.Diagnostic{
		Severity: diag.SevError,
		Code:     code,
		Phase:    diag.PhaseEmit,
		Message:  msg,
		Location: &diag.Location{File: file},
		Source:   source,
	}
}
