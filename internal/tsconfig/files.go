package tsconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/util"
)

var (
	sourceExtensions = []string{".ts", ".tsx", ".mts", ".cts"}
	scriptExtensions = []string{".js", ".jsx", ".mjs", ".cjs"}
	defaultExcludes  = []string{"node_modules", "bower_components", "jspm_packages"}
)

// fileNames expands files/include/exclude into the ordered root file list:
// explicit files first, then include matches in lexical order.
func (p *Provider) fileNames(doc document, configDir string, hasFiles, hasInclude bool) ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, f := range doc.Files {
		if !p.isFile(f) {
			return nil, fmt.Errorf("file %q not found", f)
		}
		add(f)
	}

	if hasFiles && len(doc.Files) == 0 && !hasInclude {
		return nil, errors.New("the 'files' list is empty")
	}

	include := doc.Include
	if !hasInclude && !hasFiles {
		include = []string{filepath.Join(configDir, "**", "*")}
	}
	if len(include) == 0 {
		return names, nil
	}

	exclude := doc.Exclude
	if exclude == nil {
		for _, d := range defaultExcludes {
			exclude = append(exclude, filepath.Join(configDir, d))
		}
		if doc.CompilerOptions.OutDir != "" {
			exclude = append(exclude, doc.CompilerOptions.OutDir)
		}
	}

	includeRes := make([]*regexp.Regexp, 0, len(include))
	for _, pattern := range include {
		re, err := compileGlob(pattern)
		if err != nil {
			return nil, err
		}
		includeRes = append(includeRes, re)
	}
	excludeRes := make([]*regexp.Regexp, 0, len(exclude))
	for _, pattern := range exclude {
		re, err := compileGlob(pattern)
		if err != nil {
			return nil, err
		}
		excludeRes = append(excludeRes, re)
	}

	extensions := sourceExtensions
	if doc.CompilerOptions.AllowJS {
		extensions = append(append([]string(nil), sourceExtensions...), scriptExtensions...)
	}

	var matched []string
	for _, root := range walkRoots(include) {
		if _, err := p.fs.Stat(root); err != nil {
			continue
		}
		err := util.Walk(p.fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			slashed := filepath.ToSlash(path)
			if info.IsDir() {
				if path != root && matchAny(excludeRes, slashed) {
					return filepath.SkipDir
				}
				return nil
			}
			if !hasExtension(path, extensions) || strings.HasSuffix(path, ".d.ts") {
				return nil
			}
			if matchAny(includeRes, slashed) && !matchAny(excludeRes, slashed) {
				matched = append(matched, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	sort.Strings(matched)
	for _, m := range matched {
		add(m)
	}
	return names, nil
}

func hasExtension(path string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func matchAny(res []*regexp.Regexp, path string) bool {
	for _, re := range res {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// walkRoots returns the non-wildcard directory prefix of every pattern,
// dropping roots nested inside another root.
func walkRoots(patterns []string) []string {
	var roots []string
	for _, pattern := range patterns {
		roots = append(roots, literalPrefix(pattern))
	}
	sort.Strings(roots)
	var out []string
	for _, r := range roots {
		if len(out) > 0 {
			last := out[len(out)-1]
			if r == last || strings.HasPrefix(r, strings.TrimSuffix(last, string(filepath.Separator))+string(filepath.Separator)) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func literalPrefix(pattern string) string {
	parts := strings.Split(filepath.ToSlash(pattern), "/")
	var lit []string
	for _, part := range parts {
		if strings.ContainsAny(part, "*?") {
			break
		}
		lit = append(lit, part)
	}
	if len(lit) == len(parts) && len(lit) > 0 && filepath.Ext(lit[len(lit)-1]) != "" {
		lit = lit[:len(lit)-1]
	}
	prefix := strings.Join(lit, "/")
	if prefix == "" {
		return "/"
	}
	return filepath.FromSlash(prefix)
}

// compileGlob turns a tsconfig pattern into an anchored regexp over slash
// paths. "*" and "?" stay within one segment and "**" spans directories. A
// final segment without wildcards or extension names a directory and also
// matches everything below it.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	slashed := strings.TrimSuffix(filepath.ToSlash(pattern), "/")
	segments := strings.Split(slashed, "/")
	last := segments[len(segments)-1]
	isDir := !strings.ContainsAny(last, "*?") && filepath.Ext(last) == ""

	var b strings.Builder
	b.WriteString("^")
	for i, seg := range segments {
		switch {
		case seg == "**" && i == len(segments)-1:
			b.WriteString("/.*")
			continue
		case seg == "**":
			b.WriteString("(?:/[^/]+)*")
			continue
		case i > 0:
			b.WriteString("/")
		}
		for _, r := range seg {
			switch r {
			case '*':
				b.WriteString("[^/]*")
			case '?':
				b.WriteString("[^/]")
			default:
				b.WriteString(regexp.QuoteMeta(string(r)))
			}
		}
	}
	if isDir {
		b.WriteString("(?:/.*)?")
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}
