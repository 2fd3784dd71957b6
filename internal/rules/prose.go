package rules

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"galley/internal/diag"
	"galley/internal/textutil"
)

// sentence is a rune-column interval [start, end) within one line,
// running up to and including a terminal mark.
type sentence struct {
	start int
	end   int
}

func isPad(r rune) bool {
	return r == ' ' || r == '\t' || r == '　'
}

func isTerminator(r rune) bool {
	switch r {
	case '。', '！', '？', '!', '?', '.':
		return true
	}
	return false
}

func splitSentences(line string) []sentence {
	var out []sentence
	start := -1
	lastSolid := -1
	col := 0
	for _, r := range line {
		if !isPad(r) {
			if start < 0 {
				start = col
			}
			lastSolid = col
		}
		if isTerminator(r) && start >= 0 {
			out = append(out, sentence{start: start, end: col + 1})
			start, lastSolid = -1, -1
		}
		col++
	}
	if start >= 0 {
		out = append(out, sentence{start: start, end: lastSolid + 1})
	}
	return out
}

func checkLongSentence(r *Rule, lines []string, baseLine int) []diag.Diagnostic {
	var out []diag.Diagnostic
	for i, line := range lines {
		for _, s := range splitSentences(line) {
			if n := s.end - s.start; n > r.MaxLength {
				out = append(out, diag.Diagnostic{
					Rule:      r.ID,
					Severity:  r.Severity,
					Message:   fmt.Sprintf("sentence runs %d characters, limit is %d", n, r.MaxLength),
					StartLine: baseLine + i,
					StartCol:  s.start,
					EndLine:   baseLine + i,
					EndCol:    s.end,
				})
			}
		}
	}
	return out
}

func checkMaxCommas(r *Rule, lines []string, baseLine int) []diag.Diagnostic {
	var out []diag.Diagnostic
	for i, line := range lines {
		runes := []rune(line)
		for _, s := range splitSentences(line) {
			commas := 0
			for _, c := range runes[s.start:s.end] {
				if c == '、' || c == '，' || c == ',' {
					commas++
				}
			}
			if commas > r.MaxCount {
				out = append(out, diag.Diagnostic{
					Rule:      r.ID,
					Severity:  r.Severity,
					Message:   fmt.Sprintf("sentence carries %d commas, limit is %d", commas, r.MaxCount),
					StartLine: baseLine + i,
					StartCol:  s.start,
					EndLine:   baseLine + i,
					EndCol:    s.end,
				})
			}
		}
	}
	return out
}

var ellipsisRE = regexp.MustCompile(`\.{3,}|・{2,}|…+`)

func checkEllipsisStyle(r *Rule, lines []string, baseLine int) []diag.Diagnostic {
	var out []diag.Diagnostic
	for i, line := range lines {
		for _, m := range ellipsisRE.FindAllStringIndex(line, -1) {
			run := line[m[0]:m[1]]
			var msg string
			switch {
			case run[0] == '.':
				msg = "use … instead of repeated dots"
			case strings.HasPrefix(run, "・"):
				msg = "use … instead of middle dots"
			default:
				if utf8.RuneCountInString(run)%2 == 0 {
					continue
				}
				msg = "… should come in pairs (……)"
			}
			out = append(out, diag.Diagnostic{
				Rule:      r.ID,
				Severity:  r.Severity,
				Message:   msg,
				StartLine: baseLine + i,
				StartCol:  textutil.RuneColumn(line, m[0]),
				EndLine:   baseLine + i,
				EndCol:    textutil.RuneColumn(line, m[1]),
			})
		}
	}
	return out
}

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

func checkRepeatedWord(r *Rule, lines []string, baseLine int) []diag.Diagnostic {
	var out []diag.Diagnostic
	for i, line := range lines {
		matches := wordRE.FindAllStringIndex(line, -1)
		for j := 1; j < len(matches); j++ {
			prev, cur := matches[j-1], matches[j]
			if !strings.EqualFold(line[prev[0]:prev[1]], line[cur[0]:cur[1]]) {
				continue
			}
			if strings.TrimLeft(line[prev[1]:cur[0]], " \t　") != "" {
				continue
			}
			out = append(out, diag.Diagnostic{
				Rule:      r.ID,
				Severity:  r.Severity,
				Message:   fmt.Sprintf("%q repeats", line[cur[0]:cur[1]]),
				StartLine: baseLine + i,
				StartCol:  textutil.RuneColumn(line, cur[0]),
				EndLine:   baseLine + i,
				EndCol:    textutil.RuneColumn(line, cur[1]),
			})
		}
	}
	return out
}

var todoRE = regexp.MustCompile(`TODO|FIXME|HACK|ＴＯＤＯ`)

func checkTodoMarker(r *Rule, lines []string, baseLine int) []diag.Diagnostic {
	var out []diag.Diagnostic
	for i, line := range lines {
		for _, m := range todoRE.FindAllStringIndex(line, -1) {
			out = append(out, diag.Diagnostic{
				Rule:      r.ID,
				Severity:  r.Severity,
				Message:   fmt.Sprintf("leftover draft marker %q", line[m[0]:m[1]]),
				StartLine: baseLine + i,
				StartCol:  textutil.RuneColumn(line, m[0]),
				EndLine:   baseLine + i,
				EndCol:    textutil.RuneColumn(line, m[1]),
			})
		}
	}
	return out
}
