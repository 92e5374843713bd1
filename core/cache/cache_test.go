package cache

import (
	"testing"

	"github.com/torahstudy/limud/core/torah"
)

func TestMapCacheGetPut(t *testing.T) {
	c := NewMapCache[int, string]()

	if _, ok := c.Get(1); ok {
		t.Error("Get on empty cache returned ok=true")
	}

	c.Put(1, "bereishit")
	got, ok := c.Get(1)
	if !ok || got != "bereishit" {
		t.Errorf("Get(1) = %q, %v", got, ok)
	}

	// Overwrite
	c.Put(1, "updated")
	got, _ = c.Get(1)
	if got != "updated" {
		t.Errorf("Get after overwrite = %q", got)
	}
}

func TestMapCacheRemoveClear(t *testing.T) {
	c := NewMapCache[int, int]()
	c.Put(1, 10)
	c.Put(2, 20)

	c.Remove(1)
	if _, ok := c.Get(1); ok {
		t.Error("Get after Remove returned ok=true")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", c.Len())
	}
}

func TestMapCacheStats(t *testing.T) {
	c := NewMapCache[int, int]()
	c.Put(1, 10)

	c.Get(1) // hit
	c.Get(2) // miss
	c.Get(1) // hit

	s := c.Stats()
	if s.Hits != 2 {
		t.Errorf("Hits = %d, want 2", s.Hits)
	}
	if s.Misses != 1 {
		t.Errorf("Misses = %d, want 1", s.Misses)
	}
	if s.Size != 1 {
		t.Errorf("Size = %d, want 1", s.Size)
	}
}

func TestMapCacheKeys(t *testing.T) {
	c := NewMapCache[int, int]()
	c.Put(3, 30)
	c.Put(5, 50)

	keys := c.Keys()
	if len(keys) != 2 {
		t.Fatalf("Keys = %v", keys)
	}
	seen := map[int]bool{}
	for _, k := range keys {
		seen[k] = true
	}
	if !seen[3] || !seen[5] {
		t.Errorf("Keys = %v, want {3,5}", keys)
	}
}

func TestSeferCache(t *testing.T) {
	c := NewSeferCache()
	sefer := &torah.Sefer{SeferID: torah.Vayikra, SeferName: "ויקרא"}

	if c.Has(torah.Vayikra) {
		t.Error("Has on empty cache returned true")
	}

	c.Put(torah.Vayikra, sefer)

	// Has must not count as a hit or miss.
	before := c.Stats()
	if !c.Has(torah.Vayikra) {
		t.Error("Has returned false for resident sefer")
	}
	after := c.Stats()
	if before.Hits != after.Hits || before.Misses != after.Misses {
		t.Error("Has changed hit/miss counters")
	}

	got, ok := c.Get(torah.Vayikra)
	if !ok || got.SeferName != "ויקרא" {
		t.Errorf("Get = %+v, %v", got, ok)
	}

	c.Remove(torah.Vayikra)
	if c.Len() != 0 {
		t.Errorf("Len after Remove = %d", c.Len())
	}
}
