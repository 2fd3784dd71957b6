// Package linediff computes the single contiguous changed line range
// between two snapshots of a document. It is deliberately the cheap
// prefix/suffix approximation: one edit burst produces one hunk, and a
// multi-cursor edit collapses to the envelope from the first to the last
// touched line.
package linediff

import "galley/internal/region"

// Diff trims the common prefix, then the common suffix of both sides, each
// suffix pointer bounded by the prefix. The returned region is in next-side
// coordinates. ok is false when the snapshots are line-for-line equal.
func Diff(prev, next []string) (r region.Region, ok bool) {
	if len(next) == 0 {
		return region.Region{}, false
	}

	p := 0
	for p < len(prev) && p < len(next) && prev[p] == next[p] {
		p++
	}

	prevEnd := len(prev) - 1
	nextEnd := len(next) - 1
	for prevEnd >= p && nextEnd >= p && prev[prevEnd] == next[nextEnd] {
		prevEnd--
		nextEnd--
	}

	if p > prevEnd && p > nextEnd {
		return region.Region{}, false
	}

	// A pure deletion leaves nextEnd just before the prefix; the changed
	// range in the new document is then the seam line itself, clamped into
	// the new document when the deletion removed its tail.
	start, end := p, nextEnd
	if end < start {
		end = start
	}
	if last := len(next) - 1; end > last {
		end = last
		if start > end {
			start = end
		}
	}
	return region.Region{Start: start, End: end}, true
}
