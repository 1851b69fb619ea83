package program

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"

	"weave/internal/buildcache"
	"weave/internal/buildpipeline"
	"weave/internal/diag"
	"weave/internal/trace"
)

// CreateOptions describes the program to build.
type CreateOptions struct {
	RootNames         []string
	Options           Options
	ProjectReferences []ProjectReference
	Progress          buildpipeline.ProgressSink
}

// Builder constructs programs, reusing cached check results when the project
// asks for incremental builds and a store is configured.
type Builder struct {
	fs       billy.Filesystem
	store    buildcache.Store
	newRunID func() string
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithStore enables incremental reconstruction backed by store.
func WithStore(store buildcache.Store) BuilderOption {
	return func(b *Builder) { b.store = store }
}

// WithRunID overrides run id generation.
func WithRunID(fn func() string) BuilderOption {
	return func(b *Builder) { b.newRunID = fn }
}

// NewBuilder returns a Builder reading sources from fsys.
func NewBuilder(fsys billy.Filesystem, opts ...BuilderOption) *Builder {
	b := &Builder{fs: fsys, newRunID: uuid.NewString}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CreateProgram reads and checks every root file in order.
func (b *Builder) CreateProgram(ctx context.Context, req CreateOptions) (*Program, error) {
	if err := req.Options.Validate(); err != nil {
		return nil, fmt.Errorf("compiler options: %w", err)
	}
	ctx, span := trace.Start(ctx, trace.ScopePhase, "check")
	defer span.End("")

	incremental := req.Options.Incremental && b.store != nil
	var optsKey buildcache.Digest
	if incremental {
		var err error
		optsKey, err = req.Options.digest()
		if err != nil {
			return nil, err
		}
	}

	p := &Program{
		fs:         b.fs,
		rootNames:  append([]string(nil), req.RootNames...),
		options:    req.Options.Clone(),
		references: append([]ProjectReference(nil), req.ProjectReferences...),
		byPath:     make(map[string]int, len(req.RootNames)),
		failed:     make(map[string]bool),
		runID:      b.newRunID(),
	}
	if incremental {
		p.mode = ModeIncremental
	}
	p.rootDir = req.Options.RootDir
	if p.rootDir == "" {
		p.rootDir = commonSourceDir(req.RootNames)
	}

	for _, name := range req.RootNames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buildpipeline.EmitFile(req.Progress, name, buildpipeline.StageCheck, buildpipeline.StatusWorking, nil, 0)
		started := time.Now()
		_, fileSpan := trace.Start(ctx, trace.ScopeFile, "check:"+filepath.Base(name))

		diags, reused := b.checkOne(ctx, p, name, optsKey, incremental)
		if reused {
			p.reused++
		}
		for _, d := range diags {
			if d.Severity >= diag.SevError {
				p.failed[name] = true
			}
		}
		p.preEmit = append(p.preEmit, diags...)

		status := buildpipeline.StatusDone
		if p.failed[name] {
			status = buildpipeline.StatusError
		}
		fileSpan.WithExtra("reused", fmt.Sprint(reused)).End(string(status))
		buildpipeline.EmitFile(req.Progress, name, buildpipeline.StageCheck, status, nil, time.Since(started))
	}
	span.WithExtra("files", fmt.Sprint(len(p.files))).WithExtra("reused", fmt.Sprint(p.reused))
	return p, nil
}

func (b *Builder) checkOne(ctx context.Context, p *Program, name string, optsKey buildcache.Digest, incremental bool) ([]diag.Diagnostic, bool) {
	data, err := util.ReadFile(b.fs, name)
	if err != nil {
		return []diag.Diagnostic{{
			Severity: diag.SevError,
			Code:     diag.CheckReadFailed,
			Phase:    diag.PhasePreEmit,
			Message:  fmt.Sprintf("file %q could not be read: %v", name, err),
			Location: &diag.Location{File: name},
		}}, false
	}
	file := SourceFile{Path: name, Text: string(data)}
	if _, dup := p.byPath[name]; !dup {
		p.byPath[name] = len(p.files)
		p.files = append(p.files, file)
	}

	if !incremental {
		return checkFile(p.options, file), false
	}

	content := buildcache.Sum(data)
	key := buildcache.Combine(optsKey, buildcache.SumString(name), content)
	entry, ok, err := b.store.Get(key)
	if err != nil {
		trace.Point(ctx, trace.ScopeFile, "cache:get", err.Error())
	}
	if ok && entry.ContentHash == content && entry.Path == name {
		return buildcache.ToDiagnostics(entry.Diagnostics), true
	}

	diags := checkFile(p.options, file)
	putErr := b.store.Put(key, &buildcache.Entry{
		RunID:       p.runID,
		Path:        name,
		ContentHash: content,
		Diagnostics: buildcache.FromDiagnostics(diags),
	})
	if putErr != nil {
		trace.Point(ctx, trace.ScopeFile, "cache:put", putErr.Error())
	}
	return diags, false
}
