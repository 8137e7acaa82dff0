package ai

import "testing"

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := newLRUCache(2)
	c.set("a", 1)
	c.set("b", 2)
	c.set("c", 3) // evicts "a"

	if _, ok := c.get("a"); ok {
		t.Fatal("expected \"a\" to be evicted")
	}
	if v, ok := c.get("b"); !ok || v.(int) != 2 {
		t.Fatalf("expected \"b\" present with value 2, got %v %v", v, ok)
	}
}

func TestLRUCacheMoveToFrontOnHit(t *testing.T) {
	c := newLRUCache(2)
	c.set("a", 1)
	c.set("b", 2)
	c.get("a")     // touch "a" so it is no longer the oldest
	c.set("c", 3) // should evict "b", not "a"

	if _, ok := c.get("b"); ok {
		t.Fatal("expected \"b\" to be evicted after \"a\" was touched")
	}
	if _, ok := c.get("a"); !ok {
		t.Fatal("expected \"a\" to survive since it was touched")
	}
}

func TestLRUCacheClear(t *testing.T) {
	c := newLRUCache(10)
	c.set("a", 1)
	c.clear()
	if _, ok := c.get("a"); ok {
		t.Fatal("expected cache to be empty after clear")
	}
}
