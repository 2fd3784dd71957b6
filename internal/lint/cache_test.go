package lint

import (
	"reflect"
	"testing"

	"galley/internal/diag"
	"galley/internal/region"
)

func TestCacheReplaceWholesale(t *testing.T) {
	c := NewCache()
	if _, ok := c.Get("a.txt"); ok {
		t.Fatal("empty cache should miss")
	}
	first := Entry{Lines: []string{"one"}, Diagnostics: []diag.Diagnostic{diag.NewError("r", "m", 0, 0, 0, 1)}}
	c.Put("a.txt", first)
	second := Entry{Lines: []string{"one", "two"}}
	c.Put("a.txt", second)

	got, ok := c.Get("a.txt")
	if !ok {
		t.Fatal("entry missing after Put")
	}
	if !reflect.DeepEqual(got, second) {
		t.Errorf("Get() = %+v, want the replacing entry", got)
	}

	c.Evict("a.txt")
	if _, ok := c.Get("a.txt"); ok {
		t.Error("entry should be gone after Evict")
	}
}

func TestCacheDocs(t *testing.T) {
	c := NewCache()
	c.Put("b.md", Entry{})
	c.Put("a.md", Entry{})
	if got := c.Docs(); !reflect.DeepEqual(got, []string{"a.md", "b.md"}) {
		t.Errorf("Docs() = %v, want sorted ids", got)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestMergePreservesUntouchedDiagnostics(t *testing.T) {
	old := []diag.Diagnostic{
		diag.NewError("a", "kept before", 1, 0, 1, 2),
		diag.NewError("b", "dropped", 10, 0, 10, 2),
		diag.NewError("c", "kept after", 20, 0, 20, 2),
	}
	fresh := []diag.Diagnostic{
		diag.NewError("d", "replacement", 11, 0, 11, 2),
	}
	regions := []region.Region{region.New(9, 12)}

	got := Merge(old, fresh, regions)
	want := []diag.Diagnostic{old[0], fresh[0], old[2]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge() = %+v, want %+v", got, want)
	}
}

func TestMergeDropsMultiLineSpanTouchingRegion(t *testing.T) {
	// A diagnostic spanning lines 4-6 intersects a region starting at 6.
	old := []diag.Diagnostic{diag.NewError("a", "spanning", 4, 0, 6, 0)}
	got := Merge(old, nil, []region.Region{region.New(6, 8)})
	if len(got) != 0 {
		t.Errorf("Merge() kept %+v, want the spanning diagnostic dropped", got)
	}
}

func TestMergeSortsResult(t *testing.T) {
	old := []diag.Diagnostic{diag.NewError("a", "late", 30, 0, 30, 1)}
	fresh := []diag.Diagnostic{
		diag.NewError("b", "second", 5, 3, 5, 4),
		diag.NewError("c", "first", 5, 1, 5, 2),
	}
	got := Merge(old, fresh, []region.Region{region.New(0, 10)})
	if len(got) != 3 {
		t.Fatalf("Merge() returned %d diagnostics, want 3", len(got))
	}
	if got[0].Rule != "c" || got[1].Rule != "b" || got[2].Rule != "a" {
		t.Errorf("Merge() order = %s,%s,%s, want c,b,a", got[0].Rule, got[1].Rule, got[2].Rule)
	}
}

func TestMergeNoRegionsKeepsEverything(t *testing.T) {
	old := []diag.Diagnostic{diag.NewError("a", "m", 0, 0, 0, 1)}
	got := Merge(old, nil, nil)
	if !reflect.DeepEqual(got, old) {
		t.Errorf("Merge() = %+v, want old set unchanged", got)
	}
}
