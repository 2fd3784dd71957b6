package lsp

import "testing"

func TestApplyChangesFullReplacement(t *testing.T) {
	got := applyChanges("old", []textDocumentContentChangeEvent{{Text: "new"}})
	if got != "new" {
		t.Errorf("applyChanges() = %q, want %q", got, "new")
	}
}

func TestApplyChangesIncremental(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		rng     lspRange
		insert  string
		want    string
	}{
		{
			name:   "mid line",
			text:   "foo bar\n",
			rng:    lspRange{Start: position{0, 4}, End: position{0, 7}},
			insert: "baz",
			want:   "foo baz\n",
		},
		{
			name:   "second line",
			text:   "a\nb\nc",
			rng:    lspRange{Start: position{1, 0}, End: position{1, 1}},
			insert: "X",
			want:   "a\nX\nc",
		},
		{
			name:   "insert at end",
			text:   "ab",
			rng:    lspRange{Start: position{0, 2}, End: position{0, 2}},
			insert: "c",
			want:   "abc",
		},
		{
			// 猫 is one UTF-16 unit; character offsets count units, not bytes.
			name:   "wide rune before edit",
			text:   "猫x",
			rng:    lspRange{Start: position{0, 1}, End: position{0, 2}},
			insert: "y",
			want:   "猫y",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := tt.rng
			got := applyChanges(tt.text, []textDocumentContentChangeEvent{{Range: &rng, Text: tt.insert}})
			if got != tt.want {
				t.Errorf("applyChanges() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOffsetForPositionClamps(t *testing.T) {
	if got := offsetForPosition("ab", position{5, 0}); got != 2 {
		t.Errorf("line past end = %d, want len(text)", got)
	}
	if got := offsetForPosition("ab", position{-1, -1}); got != 0 {
		t.Errorf("negative position = %d, want 0", got)
	}
}
