package linediff

import (
	"testing"

	"galley/internal/region"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name   string
		prev   []string
		next   []string
		want   region.Region
		wantOK bool
	}{
		{
			name:   "single line replaced",
			prev:   []string{"a", "b", "c"},
			next:   []string{"a", "X", "c"},
			want:   region.Region{Start: 1, End: 1},
			wantOK: true,
		},
		{
			name:   "identical",
			prev:   []string{"a", "b", "c"},
			next:   []string{"a", "b", "c"},
			wantOK: false,
		},
		{
			name:   "both empty",
			prev:   nil,
			next:   nil,
			wantOK: false,
		},
		{
			name:   "insertion in the middle",
			prev:   []string{"a", "c"},
			next:   []string{"a", "b", "c"},
			want:   region.Region{Start: 1, End: 1},
			wantOK: true,
		},
		{
			name:   "deletion clamps to the seam",
			prev:   []string{"a", "b", "c"},
			next:   []string{"a", "c"},
			want:   region.Region{Start: 1, End: 1},
			wantOK: true,
		},
		{
			name:   "append at end",
			prev:   []string{"a"},
			next:   []string{"a", "b"},
			want:   region.Region{Start: 1, End: 1},
			wantOK: true,
		},
		{
			name:   "prepend at start",
			prev:   []string{"b"},
			next:   []string{"a", "b"},
			want:   region.Region{Start: 0, End: 0},
			wantOK: true,
		},
		{
			name:   "everything changed",
			prev:   []string{"a", "b"},
			next:   []string{"x", "y", "z"},
			want:   region.Region{Start: 0, End: 2},
			wantOK: true,
		},
		{
			name:   "first analysis of new text",
			prev:   nil,
			next:   []string{"hello"},
			want:   region.Region{Start: 0, End: 0},
			wantOK: true,
		},
		{
			name:   "multi cursor edit becomes one envelope",
			prev:   []string{"a", "b", "c", "d", "e"},
			next:   []string{"a", "B", "c", "D", "e"},
			want:   region.Region{Start: 1, End: 3},
			wantOK: true,
		},
		{
			name:   "tail deletion clamps into the new document",
			prev:   []string{"x", "x", "x"},
			next:   []string{"x", "x"},
			want:   region.Region{Start: 1, End: 1},
			wantOK: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Diff(tt.prev, tt.next)
			if ok != tt.wantOK {
				t.Fatalf("Diff() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Diff() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiffRegionInvariant(t *testing.T) {
	// Whatever the edit shape, a reported region must satisfy start <= end
	// and stay within the next snapshot when it is non-empty.
	cases := [][2][]string{
		{{"a", "b", "c", "d"}, {"a", "d"}},
		{{"a", "b"}, {"b"}},
		{{"a", "b"}, {"a"}},
		{{"x"}, {"x", "x"}},
		{{"x", "x"}, {"x"}},
	}
	for _, c := range cases {
		got, ok := Diff(c[0], c[1])
		if !ok {
			continue
		}
		if got.Start > got.End {
			t.Errorf("Diff(%v, %v) = %v, start > end", c[0], c[1], got)
		}
		if len(c[1]) > 0 && got.End > len(c[1])-1 {
			t.Errorf("Diff(%v, %v) = %v, end outside next", c[0], c[1], got)
		}
	}
}
