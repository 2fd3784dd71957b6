// Package region selects the line ranges of a document that need
// re-analysis after an edit. Regions are inclusive 0-based line intervals;
// every list produced here is sorted and pairwise non-adjacent.
package region

import (
	"fmt"
	"sort"

	"galley/internal/diag"
	"galley/internal/textutil"
)

type Region struct {
	Start int
	End   int
}

func New(start, end int) Region {
	if end < start {
		start, end = end, start
	}
	return Region{Start: start, End: end}
}

func (r Region) String() string {
	return fmt.Sprintf("[%d..%d]", r.Start, r.End)
}

// Lines returns the number of lines the region covers.
func (r Region) Lines() int {
	return r.End - r.Start + 1
}

func (r Region) Contains(line int) bool {
	return line >= r.Start && line <= r.End
}

// IntersectsLines reports whether the region overlaps the inclusive line
// span [startLine, endLine].
func (r Region) IntersectsLines(startLine, endLine int) bool {
	return startLine <= r.End && endLine >= r.Start
}

// Merge sorts candidates by start line and folds every overlapping or
// adjacent pair (end+1 reaching the next start) into one region.
// The input slice is not modified.
func Merge(regions []Region) []Region {
	if len(regions) == 0 {
		return nil
	}
	sorted := make([]Region, len(regions))
	copy(sorted, regions)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	out := make([]Region, 0, len(sorted))
	cur := sorted[0]
	for _, r := range sorted[1:] {
		if cur.End+1 >= r.Start {
			if r.End > cur.End {
				cur.End = r.End
			}
			continue
		}
		out = append(out, cur)
		cur = r
	}
	return append(out, cur)
}

// Selector widens raw edit ranges to safe re-analysis regions.
type Selector struct {
	// ContextLines pads each paragraph-expanded region on both sides.
	ContextLines int
}

// Select builds the merged region list for one analysis cycle: the changed
// range (if any) plus one region per stale diagnostic, all paragraph
// expanded. An empty result means nothing needs re-analysis.
func (s Selector) Select(lines []string, changed *Region, stale []diag.Diagnostic) []Region {
	if len(lines) == 0 {
		return nil
	}
	candidates := make([]Region, 0, len(stale)+1)
	if changed != nil {
		candidates = append(candidates, s.ExpandToParagraph(lines, *changed))
	}
	candidates = append(candidates, s.FromDiagnostics(lines, stale)...)
	return Merge(candidates)
}

// ExpandToParagraph walks the region start up and the region end down to the
// nearest blank line or document edge, then pads by ContextLines, clamped.
func (s Selector) ExpandToParagraph(lines []string, r Region) Region {
	r = clamp(r, len(lines))
	for r.Start > 0 && !textutil.IsBlank(lines[r.Start-1]) {
		r.Start--
	}
	for r.End < len(lines)-1 && !textutil.IsBlank(lines[r.End+1]) {
		r.End++
	}
	r.Start -= s.ContextLines
	r.End += s.ContextLines
	return clamp(r, len(lines))
}

// FromDiagnostics derives one paragraph-expanded region per diagnostic, so
// an issue that was fixed by the edit is re-checked in full paragraph
// context and can be cleared. Stale positions may point past the end of a
// document that shrank; they clamp to the last line.
func (s Selector) FromDiagnostics(lines []string, diags []diag.Diagnostic) []Region {
	if len(lines) == 0 || len(diags) == 0 {
		return nil
	}
	out := make([]Region, 0, len(diags))
	for _, d := range diags {
		out = append(out, s.ExpandToParagraph(lines, New(d.StartLine, d.EndLine)))
	}
	return out
}

func clamp(r Region, lineCount int) Region {
	last := lineCount - 1
	if r.Start < 0 {
		r.Start = 0
	}
	if r.Start > last {
		r.Start = last
	}
	if r.End > last {
		r.End = last
	}
	if r.End < r.Start {
		r.End = r.Start
	}
	return r
}
