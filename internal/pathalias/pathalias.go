// Package pathalias implements the built-in before-hook that rewrites module
// specifiers matching the project's "paths" aliases into relative imports.
package pathalias

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"weave/internal/program"
)

// Name is the transformer name reported in diagnostics and traces.
const Name = "path-alias"

var (
	// import x from "a"; import "a"; export * from "a"; export { a } from 'a'
	staticSpecifier = regexp.MustCompile(`(\b(?:import|export)\s+(?:[^'";]*?\s+from\s+)?)(['"])([^'"\n]+)(['"])`)
	// require("a"); import("a")
	callSpecifier = regexp.MustCompile(`(\b(?:require|import)\s*\(\s*)(['"])([^'"\n]+)(['"])(\s*\))`)
)

// resolvedExtensions are tried, in order, after the substituted path.
var resolvedExtensions = []string{".d.ts", ".ts", ".tsx", ".js", ".jsx", ".mts", ".cts"}

type alias struct {
	prefix, suffix string
	wildcard       bool
	targets        []string
}

type transformer struct {
	baseURL string
	aliases []alias
}

// BeforeHookFactory builds the path-alias transformer from compiler options.
// Without "paths" the transformer leaves every file unchanged. Targets resolve
// against BaseURL, then PathsBasePath, then RootDir.
func BeforeHookFactory(opts program.Options) program.Transformer {
	base := opts.BaseURL
	if base == "" {
		base = opts.PathsBasePath
	}
	if base == "" {
		base = opts.RootDir
	}
	t := &transformer{baseURL: base}
	for pattern, targets := range opts.Paths {
		a := alias{targets: append([]string(nil), targets...)}
		if i := strings.IndexByte(pattern, '*'); i >= 0 {
			a.prefix, a.suffix, a.wildcard = pattern[:i], pattern[i+1:], true
		} else {
			a.prefix = pattern
		}
		t.aliases = append(t.aliases, a)
	}
	// Longest prefix wins; ties are broken by pattern text for determinism.
	sort.Slice(t.aliases, func(i, j int) bool {
		if len(t.aliases[i].prefix) != len(t.aliases[j].prefix) {
			return len(t.aliases[i].prefix) > len(t.aliases[j].prefix)
		}
		return t.aliases[i].prefix+t.aliases[i].suffix < t.aliases[j].prefix+t.aliases[j].suffix
	})
	return t
}

func (t *transformer) Name() string { return Name }

func (t *transformer) Transform(ctx *program.TransformContext, file program.SourceFile) (program.SourceFile, error) {
	if len(t.aliases) == 0 || ctx == nil || ctx.Program == nil {
		return file, nil
	}
	exists := ctx.Program.FileExists
	from := filepath.Dir(ctx.SourcePath)
	rewrite := func(spec string) string {
		if target, ok := t.resolve(spec, exists); ok {
			return relativeSpecifier(from, target)
		}
		return spec
	}

	text := staticSpecifier.ReplaceAllStringFunc(file.Text, func(m string) string {
		sub := staticSpecifier.FindStringSubmatch(m)
		return sub[1] + sub[2] + rewrite(sub[3]) + sub[4]
	})
	text = callSpecifier.ReplaceAllStringFunc(text, func(m string) string {
		sub := callSpecifier.FindStringSubmatch(m)
		return sub[1] + sub[2] + rewrite(sub[3]) + sub[4] + sub[5]
	})
	file.Text = text
	return file, nil
}

// resolve maps spec through the first matching alias to an existing file and
// returns that file's path without extension.
func (t *transformer) resolve(spec string, exists func(string) bool) (string, bool) {
	if strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/") {
		return "", false
	}
	for _, a := range t.aliases {
		star, ok := a.match(spec)
		if !ok {
			continue
		}
		for _, target := range a.targets {
			candidate := strings.Replace(target, "*", star, 1)
			if !filepath.IsAbs(candidate) {
				candidate = filepath.Join(t.baseURL, filepath.FromSlash(candidate))
			}
			if found, ok := findTarget(candidate, exists); ok {
				return found, true
			}
		}
		return "", false
	}
	return "", false
}

func (a alias) match(spec string) (string, bool) {
	if !a.wildcard {
		return "", spec == a.prefix
	}
	if len(spec) < len(a.prefix)+len(a.suffix) ||
		!strings.HasPrefix(spec, a.prefix) || !strings.HasSuffix(spec, a.suffix) {
		return "", false
	}
	return spec[len(a.prefix) : len(spec)-len(a.suffix)], true
}

// findTarget finds the file candidate refers to and returns it without extension.
func findTarget(candidate string, exists func(string) bool) (string, bool) {
	for _, ext := range resolvedExtensions {
		if strings.HasSuffix(candidate, ext) && exists(candidate) {
			return strings.TrimSuffix(candidate, ext), true
		}
	}
	for _, ext := range resolvedExtensions {
		if exists(candidate + ext) {
			return candidate, true
		}
	}
	for _, ext := range resolvedExtensions {
		if exists(filepath.Join(candidate, "index"+ext)) {
			return filepath.Join(candidate, "index"), true
		}
	}
	return "", false
}

func relativeSpecifier(fromDir, target string) string {
	rel, err := filepath.Rel(fromDir, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	rel = filepath.ToSlash(rel)
	if rel != ".." && !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel
}
