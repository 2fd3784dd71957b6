package rules

import (
	"fmt"
	"regexp"

	"galley/internal/diag"
	"galley/internal/textutil"
)

// The marks ！？!? end an exclamation or question mid-line; house style
// wants spacing (ASCII or ideographic) or closing punctuation after them.
// The class after the mark lists everything that is allowed to follow.
var punctSpacingRE = regexp.MustCompile(`[！？!?][^ \t　！？!?。、，．,.・：:；;」』）〉》】〕＞｝>)\]}'"’”…‥—―\r]`)

func checkPunctSpacing(r *Rule, lines []string, baseLine int) []diag.Diagnostic {
	var out []diag.Diagnostic
	for i, line := range lines {
		for _, m := range punctSpacingRE.FindAllStringIndex(line, -1) {
			col := textutil.RuneColumn(line, m[0])
			mark := string([]rune(line[m[0]:m[1]])[0])
			out = append(out, diag.Diagnostic{
				Rule:      r.ID,
				Severity:  r.Severity,
				Message:   fmt.Sprintf("missing space after %q", mark),
				StartLine: baseLine + i,
				StartCol:  col,
				EndLine:   baseLine + i,
				EndCol:    col + 1,
			})
		}
	}
	return out
}

var repeatedPunctRE = regexp.MustCompile(`[。、]{2,}`)

func checkRepeatedPunct(r *Rule, lines []string, baseLine int) []diag.Diagnostic {
	var out []diag.Diagnostic
	for i, line := range lines {
		for _, m := range repeatedPunctRE.FindAllStringIndex(line, -1) {
			out = append(out, diag.Diagnostic{
				Rule:      r.ID,
				Severity:  r.Severity,
				Message:   fmt.Sprintf("repeated punctuation %q", line[m[0]:m[1]]),
				StartLine: baseLine + i,
				StartCol:  textutil.RuneColumn(line, m[0]),
				EndLine:   baseLine + i,
				EndCol:    textutil.RuneColumn(line, m[1]),
			})
		}
	}
	return out
}
