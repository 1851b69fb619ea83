package program

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/vmihailenco/msgpack/v5"

	"weave/internal/buildcache"
)

// Options is the subset of project compiler options the emitter understands.
// Field tags follow the tsconfig "compilerOptions" spelling.
type Options struct {
	RootDir                string              `json:"rootDir"`
	OutDir                 string              `json:"outDir"`
	BaseURL                string              `json:"baseUrl"`
	Paths                  map[string][]string `json:"paths"`
	Target                 string              `json:"target"`
	Module                 string              `json:"module"`
	JSX                    string              `json:"jsx"`
	SourceMap              bool                `json:"sourceMap"`
	Incremental            bool                `json:"incremental"`
	TSBuildInfoFile        string              `json:"tsBuildInfoFile"`
	NoEmit                 bool                `json:"noEmit"`
	NoEmitOnError          bool                `json:"noEmitOnError"`
	ExperimentalDecorators bool                `json:"experimentalDecorators"`
	AllowJS                bool                `json:"allowJs"`
	// PathsBasePath is the directory of the configuration file that declared
	// Paths. It is filled in by the configuration loader.
	PathsBasePath string `json:"pathsBasePath"`
}

// ProjectReference names another project this one depends on.
type ProjectReference struct {
	Path    string `json:"path"`
	Prepend bool   `json:"prepend"`
}

// Clone returns a deep copy.
func (o Options) Clone() Options {
	if o.Paths == nil {
		return o
	}
	paths := make(map[string][]string, len(o.Paths))
	for k, v := range o.Paths {
		paths[k] = append([]string(nil), v...)
	}
	o.Paths = paths
	return o
}

var targets = map[string]api.Target{
	"":       api.ESNext,
	"esnext": api.ESNext,
	"es5":    api.ES5,
	"es6":    api.ES2015,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
	"es2024": api.ES2024,
}

func (o Options) target() (api.Target, error) {
	t, ok := targets[strings.ToLower(o.Target)]
	if !ok {
		return api.DefaultTarget, fmt.Errorf("unsupported target %q", o.Target)
	}
	return t, nil
}

func (o Options) format() (api.Format, error) {
	switch strings.ToLower(o.Module) {
	case "", "commonjs", "node16", "node18", "nodenext":
		return api.FormatCommonJS, nil
	case "es6", "es2015", "es2020", "es2022", "esnext", "preserve":
		return api.FormatESModule, nil
	case "none":
		return api.FormatDefault, nil
	}
	return api.FormatDefault, fmt.Errorf("unsupported module kind %q", o.Module)
}

func (o Options) jsx() (mode api.JSX, dev bool, err error) {
	switch strings.ToLower(o.JSX) {
	case "", "react":
		return api.JSXTransform, false, nil
	case "preserve", "react-native":
		return api.JSXPreserve, false, nil
	case "react-jsx":
		return api.JSXAutomatic, false, nil
	case "react-jsxdev":
		return api.JSXAutomatic, true, nil
	}
	return api.JSXTransform, false, fmt.Errorf("unsupported jsx mode %q", o.JSX)
}

// Validate reports options the emitter cannot honour.
func (o Options) Validate() error {
	if _, err := o.target(); err != nil {
		return err
	}
	if _, err := o.format(); err != nil {
		return err
	}
	if _, _, err := o.jsx(); err != nil {
		return err
	}
	return nil
}

// loaderFor picks the esbuild loader from the file extension.
func loaderFor(path string) (api.Loader, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return api.LoaderTS, true
	case ".tsx":
		return api.LoaderTSX, true
	case ".js", ".mjs", ".cjs":
		return api.LoaderJS, true
	case ".jsx":
		return api.LoaderJSX, true
	}
	return api.LoaderNone, false
}

func (o Options) transformOptions(path string, sourceMap bool) (api.TransformOptions, error) {
	target, err := o.target()
	if err != nil {
		return api.TransformOptions{}, err
	}
	format, err := o.format()
	if err != nil {
		return api.TransformOptions{}, err
	}
	jsxMode, jsxDev, err := o.jsx()
	if err != nil {
		return api.TransformOptions{}, err
	}
	loader, ok := loaderFor(path)
	if !ok {
		return api.TransformOptions{}, fmt.Errorf("%s: unsupported file extension", path)
	}
	raw, err := o.tsconfigRaw()
	if err != nil {
		return api.TransformOptions{}, err
	}
	opts := api.TransformOptions{
		Loader:      loader,
		Sourcefile:  path,
		Target:      target,
		Format:      format,
		JSX:         jsxMode,
		JSXDev:      jsxDev,
		TsconfigRaw: raw,
		LogLevel:    api.LogLevelSilent,
	}
	if sourceMap {
		opts.Sourcemap = api.SourceMapExternal
	}
	return opts, nil
}

// tsconfigRaw forwards the options esbuild reads from tsconfig itself.
func (o Options) tsconfigRaw() (string, error) {
	type compilerOptions struct {
		ExperimentalDecorators bool `json:"experimentalDecorators,omitempty"`
	}
	payload := struct {
		CompilerOptions compilerOptions `json:"compilerOptions"`
	}{CompilerOptions: compilerOptions{ExperimentalDecorators: o.ExperimentalDecorators}}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// digest identifies the option set for cache keys. Map keys are sorted so the
// digest does not depend on map iteration order.
func (o Options) digest() (buildcache.Digest, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(o); err != nil {
		return buildcache.Digest{}, fmt.Errorf("encode options: %w", err)
	}
	return buildcache.Sum(buf.Bytes()), nil
}
