package plugins

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Extension is appended to a plugin name to form its entry file.
const Extension = ".star"

// DirName is the per-directory plugin folder probed while walking up.
const DirName = "weave_plugins"

// PathEnv lists extra search roots, separated by os.PathListSeparator.
const PathEnv = "WEAVE_PLUGIN_PATH"

// Resolver abstracts where plugins live and how they are loaded.
type Resolver interface {
	// Roots returns the ordered search roots.
	Roots() []string
	// Exists reports whether a plugin entry file is present at path.
	Exists(path string) bool
	// Load reads and executes the module at path.
	Load(name, path string) (Module, error)
}

// DefaultRoots computes the search roots for a project rooted at startDir:
// <dir>/weave_plugins for startDir and each ancestor (nearest first), then
// every entry of $WEAVE_PLUGIN_PATH, then the user data directory.
func DefaultRoots(startDir string, getenv func(string) string) []string {
	if getenv == nil {
		getenv = os.Getenv
	}
	var roots []string
	dir := filepath.Clean(startDir)
	for {
		roots = append(roots, filepath.Join(dir, DirName))
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	for _, p := range filepath.SplitList(getenv(PathEnv)) {
		if strings.TrimSpace(p) != "" {
			roots = append(roots, filepath.Clean(p))
		}
	}
	return append(roots, filepath.Join(xdg.DataHome, "weave", "plugins"))
}

// FSResolver finds Starlark plugin modules on a billy filesystem.
type FSResolver struct {
	fs     billy.Filesystem
	roots  []string
	stdout io.Writer
}

// FSOption configures an FSResolver.
type FSOption func(*FSResolver)

// WithOutput sets where plugin print() output goes.
func WithOutput(w io.Writer) FSOption {
	return func(r *FSResolver) { r.stdout = w }
}

// NewFSResolver returns a resolver probing roots in order.
func NewFSResolver(fsys billy.Filesystem, roots []string, opts ...FSOption) *FSResolver {
	r := &FSResolver{fs: fsys, roots: append([]string(nil), roots...), stdout: io.Discard}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *FSResolver) Roots() []string {
	return append([]string(nil), r.roots...)
}

func (r *FSResolver) Exists(path string) bool {
	info, err := r.fs.Stat(path)
	return err == nil && !info.IsDir()
}

func (r *FSResolver) Load(name, path string) (Module, error) {
	src, err := util.ReadFile(r.fs, path)
	if err != nil {
		return Module{}, &LoadError{Name: name, Path: path, Err: fmt.Errorf("read: %w", err)}
	}
	m, err := loadStarlarkModule(name, path, src, r.stdout)
	if err != nil {
		return Module{}, &LoadError{Name: name, Path: path, Err: err}
	}
	return m, nil
}

// MemResolver serves Go-defined modules from memory.
type MemResolver struct {
	roots   []string
	modules map[string]Module
	errs    map[string]error
	loaded  []string
}

// NewMemResolver returns an empty in-memory resolver with the given roots.
func NewMemResolver(roots ...string) *MemResolver {
	return &MemResolver{
		roots:   roots,
		modules: make(map[string]Module),
		errs:    make(map[string]error),
	}
}

// Add registers m as the module at <root>/<name>.star.
func (r *MemResolver) Add(root, name string, m Module) *MemResolver {
	r.modules[CandidatePath(root, name)] = m
	return r
}

// AddError makes loading <root>/<name>.star fail with err.
func (r *MemResolver) AddError(root, name string, err error) *MemResolver {
	r.errs[CandidatePath(root, name)] = err
	return r
}

func (r *MemResolver) Roots() []string {
	return append([]string(nil), r.roots...)
}

func (r *MemResolver) Exists(path string) bool {
	if _, ok := r.modules[path]; ok {
		return true
	}
	_, ok := r.errs[path]
	return ok
}

func (r *MemResolver) Load(name, path string) (Module, error) {
	r.loaded = append(r.loaded, path)
	if err, ok := r.errs[path]; ok {
		return Module{}, &LoadError{Name: name, Path: path, Err: err}
	}
	m, ok := r.modules[path]
	if !ok {
		return Module{}, &LoadError{Name: name, Path: path, Err: os.ErrNotExist}
	}
	m.Name, m.Path = name, path
	return m, nil
}

// Loaded returns the paths passed to Load, in call order.
func (r *MemResolver) Loaded() []string {
	return append([]string(nil), r.loaded...)
}

// CandidatePath is the entry file probed for name under root.
func CandidatePath(root, name string) string {
	return filepath.Join(root, filepath.FromSlash(name)) + Extension
}
