package tsconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"weave/internal/program"
)

// delim separates nested koanf keys. Option keys such as path patterns may
// contain dots, so the default "." is not usable.
const delim = "::"

// maxExtendsDepth bounds "extends" chains.
const maxExtendsDepth = 32

// Parsed is a fully resolved project configuration.
type Parsed struct {
	// ConfigPath is the absolute path of the file that was requested.
	ConfigPath        string
	Options           program.Options
	FileNames         []string
	ProjectReferences []program.ProjectReference
}

// Provider loads project configuration files.
type Provider struct {
	fs     billy.Filesystem
	direct bool
}

// NewProvider reads configuration and source trees through fsys.
func NewProvider(fsys billy.Filesystem) *Provider {
	return &Provider{fs: fsys}
}

// NewOSProvider reads from the host filesystem.
func NewOSProvider() *Provider {
	return &Provider{fs: osfs.New("/"), direct: true}
}

// defaults are loaded underneath every configuration.
func defaults() map[string]any {
	return map[string]any{
		"compilerOptions": map[string]any{
			"target": "es2021",
			"module": "commonjs",
		},
	}
}

// GetByConfigFilename loads path, follows its extends chain and expands the
// file list.
func (p *Provider) GetByConfigFilename(path string) (*Parsed, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	if _, err := p.fs.Stat(abs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("could not find project configuration %q", path)
		}
		return nil, fmt.Errorf("failed to stat %q: %w", path, err)
	}

	merged, err := p.loadChain(abs, nil)
	if err != nil {
		return nil, err
	}

	k := koanf.New(delim)
	if err := k.Load(confmap.Provider(defaults(), ""), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(confmap.Provider(merged, ""), nil); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var doc document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("%s: unable to decode configuration: %w", path, err)
	}

	names, err := p.fileNames(doc, filepath.Dir(abs), k.Exists("files"), k.Exists("include"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Parsed{
		ConfigPath:        abs,
		Options:           doc.CompilerOptions,
		FileNames:         names,
		ProjectReferences: doc.References,
	}, nil
}

// document is the decoded shape of a merged configuration.
type document struct {
	CompilerOptions program.Options            `json:"compilerOptions"`
	Files           []string                   `json:"files"`
	Include         []string                   `json:"include"`
	Exclude         []string                   `json:"exclude"`
	References      []program.ProjectReference `json:"references"`
}

// loadChain returns the raw map for path with every base merged under it.
// Paths are already absolute.
func (p *Provider) loadChain(path string, seen []string) (map[string]any, error) {
	for _, s := range seen {
		if s == path {
			return nil, fmt.Errorf("circular extends: %s", strings.Join(append(seen, path), " -> "))
		}
	}
	if len(seen) >= maxExtendsDepth {
		return nil, fmt.Errorf("extends chain deeper than %d at %s", maxExtendsDepth, path)
	}
	seen = append(seen, path)

	k := koanf.New(delim)
	if err := k.Load(p.source(path), parserFor(path)); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	own := k.Raw()
	dir := filepath.Dir(path)
	resolvePaths(own, dir)

	bases, err := extendsList(own["extends"])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	delete(own, "extends")

	merged := map[string]any{}
	for _, base := range bases {
		basePath, err := p.resolveExtends(base, dir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		baseMap, err := p.loadChain(basePath, seen)
		if err != nil {
			return nil, err
		}
		merge(merged, baseMap)
	}
	merge(merged, own)
	return merged, nil
}

func (p *Provider) source(path string) koanf.Provider {
	if p.direct {
		return file.Provider(path)
	}
	return &billyProvider{fs: p.fs, path: path}
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	}
	return newParser()
}

func extendsList(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{val}, nil
	case []any:
		out := make([]string, 0, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("extends[%d] must be a string", i)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("extends must be a string or list of strings")
}

// resolveExtends finds a base configuration: relative or absolute file paths
// directly, package names through node_modules walking up from dir.
func (p *Provider) resolveExtends(spec, dir string) (string, error) {
	candidates := func(base string) []string {
		if strings.HasSuffix(base, ".json") || strings.HasSuffix(base, ".yaml") || strings.HasSuffix(base, ".yml") {
			return []string{base}
		}
		return []string{base, base + ".json", filepath.Join(base, "tsconfig.json")}
	}
	var tried []string
	if filepath.IsAbs(spec) || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || spec == "." || spec == ".." {
		base := spec
		if !filepath.IsAbs(base) {
			base = filepath.Join(dir, filepath.FromSlash(spec))
		}
		for _, c := range candidates(base) {
			if p.isFile(c) {
				return c, nil
			}
			tried = append(tried, c)
		}
		return "", fmt.Errorf("extends %q not found (tried %s)", spec, strings.Join(tried, ", "))
	}
	for cur := dir; ; {
		base := filepath.Join(cur, "node_modules", filepath.FromSlash(spec))
		for _, c := range candidates(base) {
			if p.isFile(c) {
				return c, nil
			}
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	return "", fmt.Errorf("extends %q not found in any node_modules above %s", spec, dir)
}

func (p *Provider) isFile(path string) bool {
	info, err := p.fs.Stat(path)
	return err == nil && !info.IsDir()
}

var pathOptions = []string{"rootDir", "outDir", "baseUrl", "tsBuildInfoFile"}

// resolvePaths makes the path-valued settings of one file absolute.
func resolvePaths(m map[string]any, dir string) {
	if opts, ok := m["compilerOptions"].(map[string]any); ok {
		for _, key := range pathOptions {
			if s, ok := opts[key].(string); ok && s != "" {
				opts[key] = absJoin(dir, s)
			}
		}
		// "paths" without "baseUrl" resolve against the file declaring them.
		delete(opts, "pathsBasePath")
		if _, ok := opts["paths"]; ok {
			opts["pathsBasePath"] = dir
		}
	}
	for _, key := range []string{"files", "include", "exclude"} {
		list, ok := m[key].([]any)
		if !ok {
			continue
		}
		for i, item := range list {
			if s, ok := item.(string); ok {
				list[i] = absJoin(dir, s)
			}
		}
	}
	if refs, ok := m["references"].([]any); ok {
		for _, item := range refs {
			ref, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if s, ok := ref["path"].(string); ok && s != "" {
				ref["path"] = absJoin(dir, s)
			}
		}
	}
}

func absJoin(dir, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}

// merge lays src over dst: compilerOptions per key, everything else replaced.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if k == "compilerOptions" {
			srcOpts, ok := v.(map[string]any)
			if !ok {
				dst[k] = v
				continue
			}
			dstOpts, ok := dst[k].(map[string]any)
			if !ok {
				dstOpts = map[string]any{}
				dst[k] = dstOpts
			}
			for ok, ov := range srcOpts {
				dstOpts[ok] = ov
			}
			continue
		}
		dst[k] = v
	}
}

// billyProvider is a koanf.Provider reading one file from a billy filesystem.
type billyProvider struct {
	fs   billy.Filesystem
	path string
}

func (b *billyProvider) ReadBytes() ([]byte, error) {
	return util.ReadFile(b.fs, b.path)
}

func (b *billyProvider) Read() (map[string]any, error) {
	return nil, errors.New("billy provider does not support this method")
}
