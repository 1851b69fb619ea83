package plugins

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"weave/internal/program"
)

// loadStarlarkModule executes src and picks up its "before"/"after" exports.
func loadStarlarkModule(name, path string, src []byte, stdout io.Writer) (Module, error) {
	thread := newThread("load:"+name, stdout)
	predeclared := starlark.StringDict{
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
	}
	globals, err := starlark.ExecFile(thread, path, src, predeclared) //nolint:staticcheck // SA1019: ExecFileOptions needs explicit syntax options
	if err != nil {
		return Module{}, fmt.Errorf("starlark: %w", err)
	}

	m := Module{Name: name, Path: path}
	for _, stage := range []program.Stage{program.StageBefore, program.StageAfter} {
		v, ok := globals[string(stage)]
		if !ok || v == starlark.None {
			continue
		}
		fn, ok := v.(starlark.Callable)
		if !ok {
			return Module{}, fmt.Errorf("%q must be a function, got %s", stage, v.Type())
		}
		f := starlarkFactory(name, stage, fn, stdout)
		if stage == program.StageBefore {
			m.Before = f
		} else {
			m.After = f
		}
	}
	return m, nil
}

func newThread(name string, stdout io.Writer) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(t *starlark.Thread, msg string) {
			_, _ = fmt.Fprintf(stdout, "[%s] %s\n", t.Name, msg)
		},
	}
}

func starlarkFactory(name string, stage program.Stage, fn starlark.Callable, stdout io.Writer) Factory {
	return func(options map[string]any, prog *program.Program) (program.Transformer, error) {
		opts, err := GoToStarlark(options)
		if err != nil {
			return nil, fmt.Errorf("options: %w", err)
		}
		progVal, err := programValue(prog)
		if err != nil {
			return nil, err
		}
		thread := newThread(name+":"+string(stage), stdout)
		ret, err := starlark.Call(thread, fn, starlark.Tuple{opts, progVal}, nil)
		if err != nil {
			return nil, unwrapEval(err)
		}
		callable, ok := ret.(starlark.Callable)
		if !ok {
			return nil, fmt.Errorf("%s must return a function, got %s", stage, ret.Type())
		}
		return &starlarkTransformer{
			name:   name + ":" + string(stage),
			fn:     callable,
			stdout: stdout,
		}, nil
	}
}

type starlarkTransformer struct {
	name   string
	fn     starlark.Callable
	stdout io.Writer
}

func (t *starlarkTransformer) Name() string { return t.name }

func (t *starlarkTransformer) Transform(ctx *program.TransformContext, file program.SourceFile) (program.SourceFile, error) {
	fields := starlark.StringDict{
		"path": starlark.String(file.Path),
		"text": starlark.String(file.Text),
	}
	if ctx != nil {
		fields["stage"] = starlark.String(ctx.Stage)
		fields["source_path"] = starlark.String(ctx.SourcePath)
		fields["output_path"] = starlark.String(ctx.OutputPath)
	}
	thread := newThread(t.name, t.stdout)
	ret, err := starlark.Call(thread, t.fn, starlark.Tuple{starlarkstruct.FromStringDict(starlark.String("file"), fields)}, nil)
	if err != nil {
		return file, unwrapEval(err)
	}
	switch v := ret.(type) {
	case starlark.NoneType:
		return file, nil
	case starlark.String:
		file.Text = string(v)
		return file, nil
	}
	return file, fmt.Errorf("transform must return a string or None, got %s", ret.Type())
}

// unwrapEval keeps the Starlark backtrace in the message.
func unwrapEval(err error) error {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return errors.New(evalErr.Backtrace())
	}
	return err
}

// programValue exposes the read-only program to Starlark.
func programValue(prog *program.Program) (starlark.Value, error) {
	if prog == nil {
		return starlark.None, nil
	}
	var optsMap map[string]any
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: &optsMap})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(prog.Options()); err != nil {
		return nil, fmt.Errorf("program options: %w", err)
	}
	opts, err := GoToStarlark(optsMap)
	if err != nil {
		return nil, fmt.Errorf("program options: %w", err)
	}
	roots, err := GoToStarlark(prog.RootNames())
	if err != nil {
		return nil, err
	}
	sourceFile := starlark.NewBuiltin("source_file", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var path string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &path); err != nil {
			return nil, err
		}
		f, ok := prog.SourceFile(path)
		if !ok {
			return starlark.None, nil
		}
		return starlarkstruct.FromStringDict(starlark.String("file"), starlark.StringDict{
			"path": starlark.String(f.Path),
			"text": starlark.String(f.Text),
		}), nil
	})
	return starlarkstruct.FromStringDict(starlark.String("program"), starlark.StringDict{
		"root_names":  roots,
		"options":     opts,
		"run_id":      starlark.String(prog.RunID()),
		"source_file": sourceFile,
	}), nil
}

// GoToStarlark converts configuration values to Starlark. Map keys are
// inserted in sorted order so iteration inside plugins is deterministic.
func GoToStarlark(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case string:
		return starlark.String(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case uint64:
		return starlark.MakeUint64(val), nil
	case float64:
		return starlark.Float(val), nil
	case bool:
		return starlark.Bool(val), nil
	case time.Time:
		return starlark.String(val.Format(time.RFC3339)), nil
	case []string:
		list := make([]starlark.Value, len(val))
		for i, s := range val {
			list[i] = starlark.String(s)
		}
		return starlark.NewList(list), nil
	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := GoToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	case []map[string]any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := GoToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	case map[string][]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return GoToStarlark(m)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		dict := starlark.NewDict(len(val))
		for _, k := range keys {
			sv, err := GoToStarlark(val[k])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, fmt.Errorf("dict setkey %q: %w", k, err)
			}
		}
		return dict, nil
	}
	return nil, fmt.Errorf("unsupported type: %T", v)
}
