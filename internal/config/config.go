// Package config loads the workspace configuration file (weave.toml).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// FileName is the workspace configuration file looked up by Find.
const FileName = "weave.toml"

const (
	DefaultTsconfigPath = "tsconfig.build.json"
	DefaultSourceRoot   = "src"
	DefaultEntryFile    = "main"
)

// CompilerOptions is the [compiler_options] table.
type CompilerOptions struct {
	TsconfigPath string `toml:"tsconfig_path,omitempty"`
	Plugins      []any  `toml:"plugins,omitempty"`
	CacheDir     string `toml:"cache_dir,omitempty"`
}

// Project is one [projects.<app>] table. Empty fields fall back to the root.
type Project struct {
	SourceRoot      string           `toml:"source_root,omitempty"`
	EntryFile       string           `toml:"entry_file,omitempty"`
	CompilerOptions *CompilerOptions `toml:"compiler_options,omitempty"`
}

// Configuration is a decoded weave.toml.
type Configuration struct {
	SourceRoot      string             `toml:"source_root,omitempty"`
	EntryFile       string             `toml:"entry_file,omitempty"`
	CompilerOptions CompilerOptions    `toml:"compiler_options"`
	Projects        map[string]Project `toml:"projects,omitempty"`

	// Path is the file the configuration was read from; empty for Default.
	Path string `toml:"-"`

	raw map[string]any
}

// Default is the configuration used when no weave.toml exists.
func Default() *Configuration {
	cfg := &Configuration{
		SourceRoot: DefaultSourceRoot,
		EntryFile:  DefaultEntryFile,
		CompilerOptions: CompilerOptions{
			TsconfigPath: DefaultTsconfigPath,
		},
	}
	cfg.raw = map[string]any{
		"source_root": cfg.SourceRoot,
		"entry_file":  cfg.EntryFile,
		"compiler_options": map[string]any{
			"tsconfig_path": cfg.CompilerOptions.TsconfigPath,
		},
	}
	return cfg
}

// Root returns the directory holding the configuration file, or "" for Default.
func (c *Configuration) Root() string {
	if c == nil || c.Path == "" {
		return ""
	}
	return filepath.Dir(c.Path)
}

// Find walks up from startDir to locate weave.toml.
func Find(fsys billy.Filesystem, startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := fsys.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover returns the nearest weave.toml above startDir, or Default when
// there is none.
func Discover(fsys billy.Filesystem, startDir string) (*Configuration, error) {
	path, ok, err := Find(fsys, startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(fsys, path)
}

// Load reads and decodes the file at path.
func Load(fsys billy.Filesystem, path string) (*Configuration, error) {
	data, err := util.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes weave.toml content. Unknown top-level keys are rejected;
// plugin option tables are free-form.
func Parse(data []byte) (*Configuration, error) {
	var cfg Configuration
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		var keys []string
		for _, k := range undecoded {
			if len(k) == 1 {
				keys = append(keys, k.String())
			}
		}
		if len(keys) > 0 {
			sort.Strings(keys)
			return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
	}
	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	cfg.raw = raw
	for name := range cfg.Projects {
		if strings.TrimSpace(name) == "" {
			return nil, errors.New("[projects] entry with empty name")
		}
	}
	return &cfg, nil
}

// Encode renders c as TOML.
func Encode(c *Configuration) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
