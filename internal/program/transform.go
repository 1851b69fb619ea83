package program

import (
	"context"
)

// SourceFile is one unit of text flowing through the emit pipeline.
type SourceFile struct {
	Path string
	Text string
}

// Stage tells a transformer which part of emission invoked it.
type Stage string

const (
	// StageBefore runs on source text before compilation.
	StageBefore Stage = "before"
	// StageAfter runs on compiled output.
	StageAfter Stage = "after"
)

// TransformContext is handed to every transformer invocation.
type TransformContext struct {
	Context    context.Context
	Program    *Program
	Stage      Stage
	SourcePath string
	OutputPath string
}

// Transformer rewrites one file. Returning an error fails emission of that file.
type Transformer interface {
	Name() string
	Transform(ctx *TransformContext, file SourceFile) (SourceFile, error)
}

// TransformerFunc adapts a function to Transformer.
type TransformerFunc struct {
	Label string
	Fn    func(ctx *TransformContext, file SourceFile) (SourceFile, error)
}

func (f TransformerFunc) Name() string {
	if f.Label == "" {
		return "anonymous"
	}
	return f.Label
}

func (f TransformerFunc) Transform(ctx *TransformContext, file SourceFile) (SourceFile, error) {
	return f.Fn(ctx, file)
}

// CustomTransformers groups transformers by emission stage. Each list runs in order.
// No declaration files are emitted, so Emit rejects a non-empty AfterDeclarations.
type CustomTransformers struct {
	Before            []Transformer
	After             []Transformer
	AfterDeclarations []Transformer
}
