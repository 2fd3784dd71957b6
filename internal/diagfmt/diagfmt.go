// Package diagfmt renders lint results for the terminal and for tooling:
// a colored human-readable form and a stable JSON form.
package diagfmt

import (
	"os"
	"path/filepath"

	"galley/internal/diag"
)

// FileDiagnostics is one document's worth of output.
type FileDiagnostics struct {
	Path        string
	Lines       []string
	Diagnostics []diag.Diagnostic
	FromCache   bool
}

// TotalCount sums diagnostics across files.
func TotalCount(files []FileDiagnostics) int {
	n := 0
	for _, f := range files {
		n += len(f.Diagnostics)
	}
	return n
}

// formatPath renders path according to mode. Failures to resolve fall
// back to the path as given.
func formatPath(path string, mode PathMode) string {
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeRelative:
		return relativePath(path)
	default:
		rel := relativePath(path)
		if len(rel) <= len(path) {
			return rel
		}
		return path
	}
}

func relativePath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, abs)
	if err != nil {
		return path
	}
	return rel
}
