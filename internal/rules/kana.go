package rules

import (
	"fmt"
	"regexp"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"galley/internal/diag"
	"galley/internal/textutil"
)

// halfWidthRE covers the Halfwidth Katakana block including its
// punctuation and sound marks.
var halfWidthRE = regexp.MustCompile(`[\x{FF61}-\x{FF9F}]+`)

func checkHalfWidthKana(r *Rule, lines []string, baseLine int) []diag.Diagnostic {
	var out []diag.Diagnostic
	for i, line := range lines {
		for _, m := range halfWidthRE.FindAllStringIndex(line, -1) {
			run := line[m[0]:m[1]]
			out = append(out, diag.Diagnostic{
				Rule:      r.ID,
				Severity:  r.Severity,
				Message:   fmt.Sprintf("half-width katakana %q, prefer %q", run, width.Fold.String(run)),
				StartLine: baseLine + i,
				StartCol:  textutil.RuneColumn(line, m[0]),
				EndLine:   baseLine + i,
				EndCol:    textutil.RuneColumn(line, m[1]),
			})
		}
	}
	return out
}

func checkNFC(r *Rule, lines []string, baseLine int) []diag.Diagnostic {
	var out []diag.Diagnostic
	for i, line := range lines {
		if norm.NFC.IsNormalString(line) {
			continue
		}
		n, _ := norm.NFC.SpanString(line, true)
		col := textutil.RuneColumn(line, n)
		out = append(out, diag.Diagnostic{
			Rule:      r.ID,
			Severity:  r.Severity,
			Message:   "text is not NFC-normalized from this position",
			StartLine: baseLine + i,
			StartCol:  col,
			EndLine:   baseLine + i,
			EndCol:    col + 1,
		})
	}
	return out
}
