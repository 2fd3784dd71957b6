// Package mask blanks code blocks out of a text slice before analysis.
// The masked slice keeps the exact line count of the input, so diagnostics
// computed on it map back to document coordinates without adjustment.
//
// Two block forms are recognised: fenced blocks opened and closed by a
// marker line of three or more backticks or tildes (leading spaces and
// tabs tolerated, trailing info string ignored), and indented blocks of
// two or more consecutive tab- or four-space-indented lines that follow a
// blank line or start the slice. A fence opened by one marker kind is
// closed only by the same kind.
//
// Because regions are masked independently, callers masking a sub-slice
// pass the fence state at its first line, obtained from StateBefore.
package mask

import (
	"strings"

	"galley/internal/textutil"
)

// FenceState says which marker kind, if any, is open at a given line.
type FenceState uint8

const (
	FenceNone FenceState = iota
	FenceBacktick
	FenceTilde
)

func (s FenceState) String() string {
	switch s {
	case FenceNone:
		return "none"
	case FenceBacktick:
		return "backtick"
	case FenceTilde:
		return "tilde"
	}
	return "unknown"
}

// fenceMarker classifies a line as a fence marker by its first non-blank
// run: three or more backticks or tildes after optional indentation.
func fenceMarker(line string) FenceState {
	rest := strings.TrimLeft(line, " \t")
	if n := runLen(rest, '`'); n >= 3 {
		return FenceBacktick
	}
	if n := runLen(rest, '~'); n >= 3 {
		return FenceTilde
	}
	return FenceNone
}

func runLen(s string, ch byte) int {
	n := 0
	for n < len(s) && s[n] == ch {
		n++
	}
	return n
}

// indented reports whether a non-blank line belongs to an indented code
// run. Only a leading tab or four ASCII spaces qualify; ideographic-space
// indentation is prose.
func indented(line string) bool {
	if textutil.IsBlank(line) {
		return false
	}
	return strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "    ")
}

// StateBefore replays fence marker toggling over lines[0:startLine] and
// returns the state in effect at startLine. It is a pure toggle replay
// with no lookahead, so every slice start agrees with the replay no matter
// how the document continues below it.
func StateBefore(lines []string, startLine int) FenceState {
	state := FenceNone
	if startLine > len(lines) {
		startLine = len(lines)
	}
	for i := 0; i < startLine; i++ {
		m := fenceMarker(lines[i])
		if m == FenceNone {
			continue
		}
		switch {
		case state == FenceNone:
			state = m
		case state == m:
			state = FenceNone
		}
	}
	return state
}

// Lines masks one slice. Marker lines and everything between a matching
// pair are blanked, as are qualifying indented runs outside fences. A
// fence opened inside the slice that never closes is not guessed: the
// slice is restored verbatim from that marker line onward. A slice that
// begins mid-fence (initial != FenceNone) and never closes stays masked
// to its end, since its opener lies above the slice.
func Lines(lines []string, initial FenceState) []string {
	masked := make([]bool, len(lines))
	inFence := make([]bool, len(lines))

	state := initial
	openerIdx := -1
	for i, line := range lines {
		m := fenceMarker(line)
		if state == FenceNone {
			if m != FenceNone {
				state = m
				openerIdx = i
				masked[i] = true
				inFence[i] = true
			}
			continue
		}
		masked[i] = true
		inFence[i] = true
		if m == state {
			state = FenceNone
			openerIdx = -1
		}
	}

	maskIndentRuns(lines, masked, inFence)

	if state != FenceNone && openerIdx >= 0 {
		for i := openerIdx; i < len(lines); i++ {
			masked[i] = false
		}
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		if !masked[i] {
			out[i] = line
		}
	}
	return out
}

// Text is Lines for whole strings, preserving the line count.
func Text(text string, initial FenceState) string {
	return textutil.JoinLines(Lines(textutil.SplitLines(text), initial))
}

// maskIndentRuns blanks runs of two or more indented lines that start the
// slice or follow a blank line, skipping anything already inside a fence.
func maskIndentRuns(lines []string, masked, inFence []bool) {
	i := 0
	for i < len(lines) {
		if inFence[i] || !indented(lines[i]) {
			i++
			continue
		}
		start := i
		for i < len(lines) && !inFence[i] && indented(lines[i]) {
			i++
		}
		if i-start < 2 {
			continue
		}
		if start > 0 && !textutil.IsBlank(lines[start-1]) {
			continue
		}
		for j := start; j < i; j++ {
			masked[j] = true
		}
	}
}
