package diagfmt

import (
	"encoding/json"
	"io"
)

// DiagnosticJSON is one diagnostic on the wire. Lines and columns are
// 0-based rune coordinates, the same as the engine reports internally.
type DiagnosticJSON struct {
	Rule      string `json:"rule"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// FileJSON is one document's worth of output.
type FileJSON struct {
	Path        string           `json:"path"`
	FromCache   bool             `json:"from_cache,omitempty"`
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
}

// Output is the root of the JSON form.
type Output struct {
	Files []FileJSON `json:"files"`
	Count int        `json:"count"`
}

// BuildOutput assembles the JSON structure without serializing it.
func BuildOutput(files []FileDiagnostics, opts JSONOpts) Output {
	out := Output{Files: make([]FileJSON, 0, len(files))}
	for _, f := range files {
		fj := FileJSON{
			Path:        formatPath(f.Path, opts.PathMode),
			FromCache:   f.FromCache,
			Diagnostics: make([]DiagnosticJSON, 0, len(f.Diagnostics)),
		}
		for _, d := range f.Diagnostics {
			if opts.Max > 0 && out.Count >= opts.Max {
				break
			}
			fj.Diagnostics = append(fj.Diagnostics, DiagnosticJSON{
				Rule:      d.Rule,
				Severity:  d.Severity.String(),
				Message:   d.Message,
				StartLine: d.StartLine,
				StartCol:  d.StartCol,
				EndLine:   d.EndLine,
				EndCol:    d.EndCol,
			})
			out.Count++
		}
		out.Files = append(out.Files, fj)
	}
	return out
}

// JSON serializes diagnostics as indented JSON.
func JSON(w io.Writer, files []FileDiagnostics, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildOutput(files, opts))
}
