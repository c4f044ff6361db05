/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package label

import (
	"sync"
	"testing"
)

func TestInternReturnsSameHandleForRepeatedLabel(t *testing.T) {
	tbl := NewTable()
	h1 := tbl.Intern("Lcom/example/Foo;.bar()V")
	h2 := tbl.Intern("Lcom/example/Foo;.bar()V")
	if h1 != h2 {
		t.Fatalf("want same handle for repeated intern, got %d and %d", h1, h2)
	}
	h3 := tbl.Intern("Lcom/example/Foo;.baz()V")
	if h3 == h1 {
		t.Fatalf("want distinct handle for a distinct label")
	}
}

func TestLookupFindsInternedLabelOnly(t *testing.T) {
	tbl := NewTable()
	h := tbl.Intern("a")
	if got, ok := tbl.Lookup("a"); !ok || got != h {
		t.Fatalf("want (%d, true), got (%d, %v)", h, got, ok)
	}
	if _, ok := tbl.Lookup("never-interned"); ok {
		t.Fatalf("want false for a label never interned")
	}
}

func TestNameRoundTripsInternedLabel(t *testing.T) {
	tbl := NewTable()
	h := tbl.Intern("Lcom/example/Foo;.bar()V")
	if got := tbl.Name(h); got != "Lcom/example/Foo;.bar()V" {
		t.Fatalf("want round-tripped label, got %q", got)
	}
}

func TestLenCountsDistinctLabels(t *testing.T) {
	tbl := NewTable()
	tbl.Intern("a")
	tbl.Intern("b")
	tbl.Intern("a")
	if got := tbl.Len(); got != 2 {
		t.Fatalf("want 2 distinct labels, got %d", got)
	}
}

func TestInternIsConcurrencySafe(t *testing.T) {
	tbl := NewTable()
	var wg sync.WaitGroup
	labels := []string{"a", "b", "c", "d"}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tbl.Intern(labels[i%len(labels)])
		}(i)
	}
	wg.Wait()
	if got := tbl.Len(); got != len(labels) {
		t.Fatalf("want %d distinct labels after concurrent interning, got %d", len(labels), got)
	}
}
