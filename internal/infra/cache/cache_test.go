package cache_test

import (
	"testing"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/infra/cache"
	"github.com/boddenberg/billstats-bfa/internal/port"
)

var _ port.Cache[string] = (*cache.InMemory[string])(nil)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_DeletePrefix(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("stats:user-1:week:2024-03-13", "a")
	c.Set("stats:user-1:month:2024-03-13", "b")
	c.Set("stats:user-2:month:2024-03-13", "c")

	if n := c.DeletePrefix("stats:user-1:"); n != 2 {
		t.Fatalf("expected 2 keys removed, got %d", n)
	}
	if _, ok := c.Get("stats:user-2:month:2024-03-13"); !ok {
		t.Error("expected other user's entry to survive")
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry left, got %d", c.Len())
	}
}

func TestCache_SetIfGenerationDropsValueReadBeforeInvalidation(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	gen := c.Generation("stats:user-1:")
	c.DeletePrefix("stats:user-1:")

	if c.SetIfGeneration("stats:user-1:", gen, "stats:user-1:month:2024-03-13", "stale") {
		t.Fatal("expected stale value to be refused")
	}
	if _, ok := c.Get("stats:user-1:month:2024-03-13"); ok {
		t.Fatal("expected no entry after refused set")
	}

	gen = c.Generation("stats:user-1:")
	if !c.SetIfGeneration("stats:user-1:", gen, "stats:user-1:month:2024-03-13", "fresh") {
		t.Fatal("expected current generation to be stored")
	}
	if v, _ := c.Get("stats:user-1:month:2024-03-13"); v != "fresh" {
		t.Errorf("expected 'fresh', got '%s'", v)
	}
	if c.Generation("stats:user-2:") != 0 {
		t.Error("expected other prefixes to keep generation 0")
	}
}
