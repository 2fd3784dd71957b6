package lint

import (
	"sort"
	"sync"

	"galley/internal/diag"
	"galley/internal/region"
)

// Entry is the last published analysis of one document: the snapshot the
// diagnostics were computed against and the full merged set. Both slices
// are shared with the cache and must be treated as read-only.
type Entry struct {
	Lines       []string
	Diagnostics []diag.Diagnostic
}

// Cache holds per-document entries. An entry is only ever replaced
// wholesale at the end of a successful cycle, so readers always see a
// snapshot and its diagnostics from the same cycle.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

func (c *Cache) Get(doc string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[doc]
	return e, ok
}

func (c *Cache) Put(doc string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[doc] = e
}

func (c *Cache) Evict(doc string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, doc)
}

// Docs lists the cached document ids in stable order.
func (c *Cache) Docs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	docs := make([]string, 0, len(c.entries))
	for doc := range c.entries {
		docs = append(docs, doc)
	}
	sort.Strings(docs)
	return docs
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Merge folds one cycle's fresh diagnostics into the previous set. Old
// diagnostics whose line span touches an analyzed region are dropped,
// since the region's re-analysis either reproduced or retired them; the
// rest survive untouched. The result is in document order.
func Merge(old, fresh []diag.Diagnostic, regions []region.Region) []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(old)+len(fresh))
	for _, d := range old {
		if !touchesAny(d, regions) {
			out = append(out, d)
		}
	}
	out = append(out, fresh...)
	diag.Sort(out)
	return out
}

func touchesAny(d diag.Diagnostic, regions []region.Region) bool {
	for _, r := range regions {
		if r.IntersectsLines(d.StartLine, d.EndLine) {
			return true
		}
	}
	return false
}
