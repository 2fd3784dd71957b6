package textutil

import (
	"strings"
	"unicode/utf8"
)

// NormalizeNewlines rewrites \r\n to \n so every downstream pass can treat
// \n as the only line terminator. Lone \r bytes are left alone.
func NormalizeNewlines(text string) string {
	if !strings.Contains(text, "\r\n") {
		return text
	}
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// SplitLines splits text on \n. A trailing newline yields a final empty
// line, so JoinLines(SplitLines(text)) == text for normalized input.
func SplitLines(text string) []string {
	return strings.Split(text, "\n")
}

// JoinLines is the inverse of SplitLines.
func JoinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

// IsBlank reports whether the line contains nothing but whitespace.
// The ideographic space U+3000 counts as whitespace here: a line holding
// only full-width padding still separates paragraphs.
func IsBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// RuneColumn converts a byte offset within line into a rune column.
// byteOffset must lie on a rune boundary, as regexp match indices do.
// Offsets past the end clamp to the rune count.
func RuneColumn(line string, byteOffset int) int {
	if byteOffset <= 0 {
		return 0
	}
	if byteOffset >= len(line) {
		return utf8.RuneCountInString(line)
	}
	return utf8.RuneCountInString(line[:byteOffset])
}

// ByteOffset converts a rune column within line back into a byte offset.
// Columns past the last rune clamp to len(line).
func ByteOffset(line string, runeCol int) int {
	if runeCol <= 0 {
		return 0
	}
	for i := range line {
		if runeCol == 0 {
			return i
		}
		runeCol--
	}
	return len(line)
}

// Indentation returns the leading whitespace of line. The full-width space
// is deliberately excluded: prose indented with U+3000 is body text, not a
// code block.
func Indentation(line string) string {
	for i, r := range line {
		if r != ' ' && r != '\t' {
			return line[:i]
		}
	}
	return line
}
