package diag

import (
	"reflect"
	"testing"
)

func TestSeverityString(t *testing.T) {
	tests := []struct {
		sev  Severity
		want string
	}{
		{SevInfo, "INFO"},
		{SevWarning, "WARNING"},
		{SevError, "ERROR"},
		{Severity(42), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.sev.String(); got != tt.want {
			t.Errorf("Severity(%d).String() = %q, want %q", tt.sev, got, tt.want)
		}
	}
}

func TestSeverityLSPCode(t *testing.T) {
	tests := []struct {
		sev  Severity
		want int
	}{
		{SevError, 1},
		{SevWarning, 2},
		{SevInfo, 3},
	}
	for _, tt := range tests {
		if got := tt.sev.LSPCode(); got != tt.want {
			t.Errorf("%v.LSPCode() = %d, want %d", tt.sev, got, tt.want)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"error", SevError},
		{"warning", SevWarning},
		{"warn", SevWarning},
		{"info", SevInfo},
		{"nonsense", SevWarning},
	}
	for _, tt := range tests {
		if got := ParseSeverity(tt.in); got != tt.want {
			t.Errorf("ParseSeverity(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSortOrdersByPosition(t *testing.T) {
	items := []Diagnostic{
		New("b-rule", SevInfo, "later line", 5, 0, 5, 3),
		New("a-rule", SevError, "same spot error", 2, 4, 2, 6),
		New("z-rule", SevInfo, "earlier col", 2, 1, 2, 2),
		New("a-rule", SevInfo, "same spot info", 2, 4, 2, 6),
	}
	Sort(items)

	want := []Diagnostic{
		New("z-rule", SevInfo, "earlier col", 2, 1, 2, 2),
		New("a-rule", SevError, "same spot error", 2, 4, 2, 6),
		New("a-rule", SevInfo, "same spot info", 2, 4, 2, 6),
		New("b-rule", SevInfo, "later line", 5, 0, 5, 3),
	}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("Sort() = %+v, want %+v", items, want)
	}
}

func TestSortIsDeterministic(t *testing.T) {
	a := []Diagnostic{
		New("r1", SevWarning, "m1", 0, 0, 0, 1),
		New("r2", SevWarning, "m2", 0, 0, 0, 1),
	}
	b := []Diagnostic{a[1], a[0]}
	Sort(a)
	Sort(b)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Sort not deterministic: %+v vs %+v", a, b)
	}
}

func TestBagLimit(t *testing.T) {
	b := NewBag(2)
	if !b.Add(New("r", SevInfo, "one", 0, 0, 0, 1)) {
		t.Fatal("first Add() = false, want true")
	}
	if !b.Add(New("r", SevInfo, "two", 1, 0, 1, 1)) {
		t.Fatal("second Add() = false, want true")
	}
	if b.Add(New("r", SevInfo, "three", 2, 0, 2, 1)) {
		t.Error("Add() past cap = true, want false")
	}
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}
	if b.Cap() != 2 {
		t.Errorf("Cap() = %d, want 2", b.Cap())
	}
}

func TestBagHasErrors(t *testing.T) {
	b := NewBag(10)
	b.Add(New("r", SevInfo, "fine", 0, 0, 0, 1))
	if b.HasErrors() {
		t.Error("HasErrors() = true before any error")
	}
	b.Add(New("r", SevError, "broken", 1, 0, 1, 1))
	if !b.HasErrors() {
		t.Error("HasErrors() = false after adding an error")
	}
}

func TestBagDedup(t *testing.T) {
	b := NewBag(10)
	d := New("r", SevWarning, "dup", 3, 1, 3, 4)
	b.Add(d)
	b.Add(New("other", SevWarning, "dup", 3, 1, 3, 4))
	b.Add(d)
	b.Dedup()
	if b.Len() != 2 {
		t.Fatalf("Dedup() kept %d items, want 2", b.Len())
	}
	if got := b.Items()[0]; got != d {
		t.Errorf("Dedup() first item = %+v, want %+v", got, d)
	}
}

func TestPosString(t *testing.T) {
	d := New("r", SevInfo, "m", 0, 0, 0, 2)
	if got := d.PosString(); got != "1:1" {
		t.Errorf("PosString() = %q, want %q", got, "1:1")
	}
}
