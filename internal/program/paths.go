package program

import (
	"path/filepath"
	"strings"
)

var outputExt = map[string]string{
	".ts":  ".js",
	".tsx": ".js",
	".js":  ".js",
	".jsx": ".js",
	".mts": ".mjs",
	".mjs": ".mjs",
	".cts": ".cjs",
	".cjs": ".cjs",
}

// OutputPath maps a source file to its emitted JavaScript path.
func (p *Program) OutputPath(src string) string {
	ext := filepath.Ext(src)
	newExt, ok := outputExt[strings.ToLower(ext)]
	if !ok {
		newExt = ".js"
	}
	if p.options.OutDir == "" {
		return strings.TrimSuffix(src, ext) + newExt
	}
	rel, err := filepath.Rel(p.rootDir, src)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = filepath.Base(src)
	}
	return filepath.Join(p.options.OutDir, strings.TrimSuffix(rel, ext)+newExt)
}

// commonSourceDir returns the deepest directory containing every file.
func commonSourceDir(files []string) string {
	if len(files) == 0 {
		return ""
	}
	common := strings.Split(filepath.Dir(files[0]), string(filepath.Separator))
	for _, f := range files[1:] {
		parts := strings.Split(filepath.Dir(f), string(filepath.Separator))
		n := 0
		for n < len(common) && n < len(parts) && common[n] == parts[n] {
			n++
		}
		common = common[:n]
	}
	dir := strings.Join(common, string(filepath.Separator))
	if dir == "" && filepath.IsAbs(files[0]) {
		return string(filepath.Separator)
	}
	return dir
}
