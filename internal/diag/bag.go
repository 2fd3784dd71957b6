package diag

import "sort"

// Sort orders diagnostics by (start, end, severity, rule) in place.
// Every consumer that persists or publishes a slice goes through here so
// equal inputs always produce byte-equal output.
func Sort(items []Diagnostic) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Before(items[j])
	})
}

// Bag collects diagnostics up to a fixed limit.
type Bag struct {
	items []Diagnostic
	max   int
}

func NewBag(max int) *Bag {
	if max <= 0 {
		max = 1
	}
	return &Bag{
		items: make([]Diagnostic, 0, max),
		max:   max,
	}
}

// Add appends d unless the limit is reached. Returns false when dropped.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() int {
	return b.max
}

func (b *Bag) Len() int {
	return len(b.items)
}

// HasErrors reports whether any collected diagnostic is an error.
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// Items returns the backing slice; callers must not modify it.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

func (b *Bag) Sort() {
	Sort(b.items)
}

// Dedup drops exact duplicates, keeping first occurrence order.
// Two rules can legitimately flag the same span, so the key includes the
// rule id and message.
func (b *Bag) Dedup() {
	seen := make(map[Diagnostic]bool, len(b.items))
	kept := b.items[:0]
	for _, d := range b.items {
		if seen[d] {
			continue
		}
		seen[d] = true
		kept = append(kept, d)
	}
	b.items = kept
}
