package database

import (
	"testing"
	"time"
)

func TestQueryCache(t *testing.T) {
	c := newQueryCache(30 * time.Second)
	key := cacheKey("SELECT * FROM users WHERE id = ?", []interface{}{int64(1)})

	if _, ok := c.get(key); ok {
		t.Fatal("hit on an empty cache")
	}

	c.set(key, "value")
	v, ok := c.get(key)
	if !ok || v != "value" {
		t.Errorf("get() = %v, %v; want value, true", v, ok)
	}

	// different args must not collide
	otherKey := cacheKey("SELECT * FROM users WHERE id = ?", []interface{}{int64(2)})
	if _, ok := c.get(otherKey); ok {
		t.Error("args are not part of the key")
	}

	c.flush()
	if _, ok := c.get(key); ok {
		t.Error("hit after flush")
	}
	if c.len() != 0 {
		t.Errorf("len() = %d after flush", c.len())
	}
}

func TestQueryCache_expiry(t *testing.T) {
	c := newQueryCache(10 * time.Millisecond)
	c.set("k", 42)

	if v, ok := c.get("k"); !ok || v != 42 {
		t.Fatalf("get() = %v, %v; want 42, true", v, ok)
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.get("k"); ok {
		t.Error("entry outlived its TTL")
	}
}
