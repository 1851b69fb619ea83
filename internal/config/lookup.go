package config

import (
	"strings"
)

// ValueOrDefault looks key up (dot separated) in [projects.<appName>] first,
// then at the top level, and returns def when neither defines it.
func ValueOrDefault(cfg *Configuration, key, appName string, def any) any {
	if cfg == nil || key == "" {
		return def
	}
	parts := strings.Split(key, ".")
	if appName != "" {
		if v, ok := lookup(cfg.raw, append([]string{"projects", appName}, parts...)); ok {
			return v
		}
	}
	if v, ok := lookup(cfg.raw, parts); ok {
		return v
	}
	return def
}

func lookup(m map[string]any, path []string) (any, bool) {
	var cur any = m
	for _, p := range path {
		table, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = table[p]
		if !ok {
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// StringOrDefault is ValueOrDefault for string settings. Blank values count
// as absent.
func StringOrDefault(cfg *Configuration, key, appName, def string) string {
	if cfg == nil || key == "" {
		return def
	}
	parts := strings.Split(key, ".")
	if appName != "" {
		if s, ok := stringAt(cfg.raw, append([]string{"projects", appName}, parts...)); ok {
			return s
		}
	}
	if s, ok := stringAt(cfg.raw, parts); ok {
		return s
	}
	return def
}

func stringAt(m map[string]any, path []string) (string, bool) {
	v, ok := lookup(m, path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// TsconfigPathFor is the project configuration file for appName.
func (c *Configuration) TsconfigPathFor(appName string) string {
	return StringOrDefault(c, "compiler_options.tsconfig_path", appName, DefaultTsconfigPath)
}

// SourceRootFor is the source directory for appName.
func (c *Configuration) SourceRootFor(appName string) string {
	return StringOrDefault(c, "source_root", appName, DefaultSourceRoot)
}

// EntryFileFor is the entry module name (no extension) for appName.
func (c *Configuration) EntryFileFor(appName string) string {
	return StringOrDefault(c, "entry_file", appName, DefaultEntryFile)
}

// CacheDirFor is the configured build cache directory, or "".
func (c *Configuration) CacheDirFor(appName string) string {
	return StringOrDefault(c, "compiler_options.cache_dir", appName, "")
}

// Plugins returns the raw plugin list for appName.
func (c *Configuration) Plugins(appName string) any {
	return ValueOrDefault(c, "compiler_options.plugins", appName, []any{})
}
