package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"galley/internal/diag"
)

// Pretty prints diagnostics in a human-readable form, one file after
// another. For each diagnostic:
//
//	<path>:<line>:<col>: <severity> <rule>: <message>
//
// followed, when ShowSource is set, by the flagged line with a ^~~~
// marker underneath. Lines and columns are printed 1-based; the marker
// is aligned by display width so full-width runes do not skew it.
func Pretty(w io.Writer, files []FileDiagnostics, opts PrettyOpts) {
	pal := newPalette(opts.Color)
	for _, f := range files {
		path := formatPath(f.Path, opts.PathMode)
		for _, d := range f.Diagnostics {
			pal.printOne(w, path, f.Lines, d, opts)
		}
	}
}

type palette struct {
	path, bad, warn, info, marker *color.Color
}

// newPalette fixes the color decision per call instead of leaving it to
// the package-global TTY sniffing, so --color=always survives a pipe.
func newPalette(enabled bool) palette {
	p := palette{
		path:   color.New(color.Bold),
		bad:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan),
		marker: color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{p.path, p.bad, p.warn, p.info, p.marker} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) string {
	switch s {
	case diag.SevError:
		return p.bad.Sprint("error")
	case diag.SevWarning:
		return p.warn.Sprint("warning")
	default:
		return p.info.Sprint("info")
	}
}

func (p palette) printOne(w io.Writer, path string, lines []string, d diag.Diagnostic, opts PrettyOpts) {
	fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n",
		p.path.Sprint(path),
		d.StartLine+1, d.StartCol+1,
		p.severity(d.Severity),
		d.Rule, d.Message)
	if !opts.ShowSource || d.StartLine < 0 || d.StartLine >= len(lines) {
		return
	}
	for i := d.StartLine - opts.Context; i < d.StartLine; i++ {
		if i >= 0 {
			fmt.Fprintf(w, "  %s\n", lines[i])
		}
	}
	line := lines[d.StartLine]
	fmt.Fprintf(w, "  %s\n", line)
	fmt.Fprintf(w, "  %s\n", p.marker.Sprint(markerFor(line, d)))
}

// markerFor builds the indent plus ^~~~ underline for d on line. The
// indent repeats the display width of every rune before the start
// column; tabs are carried through so the marker stays aligned however
// the terminal expands them.
func markerFor(line string, d diag.Diagnostic) string {
	runes := []rune(line)
	start := min(d.StartCol, len(runes))
	if start < 0 {
		start = 0
	}
	end := d.EndCol
	if d.EndLine != d.StartLine || end > len(runes) {
		end = len(runes)
	}

	var b strings.Builder
	for _, r := range runes[:start] {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	width := 0
	for _, r := range runes[start:max(end, start)] {
		width += runewidth.RuneWidth(r)
	}
	b.WriteByte('^')
	if width > 1 {
		b.WriteString(strings.Repeat("~", width-1))
	}
	return b.String()
}
