package util

import (
	"testing"
	"time"
)

func TestLRUSetGet(t *testing.T) {
	c, err := NewLRU[string, int](2, 0)
	if err != nil {
		t.Fatalf("NewLRU: %v", err)
	}
	c.Set("a", 1)
	c.Set("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) should report absence")
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := NewLRU[string, int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a becomes most recent
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should have survived")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestLRUUpdateDoesNotGrow(t *testing.T) {
	c, _ := NewLRU[string, int](2, 0)
	c.Set("a", 1)
	c.Set("a", 2)
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("Get(a) = %d, want 2", v)
	}
}

func TestLRUTTLExpiry(t *testing.T) {
	c, _ := NewLRU[string, int](10, 10*time.Millisecond)
	c.Set("a", 1)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("fresh entry missing")
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Error("expired entry still served")
	}
}

func TestLRURejectsNonPositiveCapacity(t *testing.T) {
	if _, err := NewLRU[string, int](0, 0); err == nil {
		t.Error("expected error for zero capacity")
	}
}
