package lint

import (
	"fmt"
	"os"
	"path/filepath"

	"galley/internal/diag"
	"galley/internal/mask"
	"galley/internal/rules"
	"galley/internal/textutil"
)

// RunOptions configure one-shot analysis for the batch CLI.
type RunOptions struct {
	Rules          rules.Overrides
	MaxDiagnostics int
	// Disk, when set, serves unchanged files from the persisted cache
	// and stores fresh results back. Nil disables persistence.
	Disk *DiskCache
}

// FileResult is the outcome of one file in a batch run.
type FileResult struct {
	Path        string
	Diagnostics []diag.Diagnostic
	FromCache   bool
}

// HasErrors reports whether any diagnostic is an error, which drives the
// CLI exit code.
func (r FileResult) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity >= diag.SevError {
			return true
		}
	}
	return false
}

// AnalyzeText runs the complete rule set over one document in-process:
// whole document as a single region, masked once, no worker round-trip.
// This is the same engine the worker hosts, minus the transport.
func AnalyzeText(text string, overrides rules.Overrides, maxDiags int) []diag.Diagnostic {
	lines := textutil.SplitLines(textutil.NormalizeNewlines(text))
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	masked := mask.Lines(lines, mask.FenceNone)

	local, remote := rules.Configure(overrides)
	ds := rules.Run(local, masked, 0)
	ds = append(ds, rules.Run(remote, masked, 0)...)
	diag.Sort(ds)

	if maxDiags > 0 && len(ds) > maxDiags {
		ds = ds[:maxDiags]
	}
	return ds
}

// AnalyzeFile reads and analyzes one file, consulting the disk cache
// when enabled.
func AnalyzeFile(path string, opts RunOptions) (FileResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileResult{Path: path}, err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return FileResult{Path: path}, fmt.Errorf("read %s: %w", path, err)
	}

	hash := HashContent(content)
	if opts.Disk != nil {
		if ds, hit, err := opts.Disk.Get(abs, hash); err == nil && hit {
			return FileResult{Path: path, Diagnostics: ds, FromCache: true}, nil
		}
	}

	ds := AnalyzeText(string(content), opts.Rules, opts.MaxDiagnostics)
	if opts.Disk != nil {
		if err := opts.Disk.Put(abs, hash, ds); err != nil {
			return FileResult{Path: path, Diagnostics: ds}, fmt.Errorf("store cache entry: %w", err)
		}
	}
	return FileResult{Path: path, Diagnostics: ds}, nil
}
