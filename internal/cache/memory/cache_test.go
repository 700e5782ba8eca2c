package memory

import (
	"context"
	"testing"
	"time"
)

func TestCache_SetAndGet(t *testing.T) {
	cache := New[string](5 * time.Second)
	defer cache.Stop()

	cache.Set("profile:u1", "snapshot")

	got, ok := cache.Get("profile:u1")
	if !ok {
		t.Error("Get() should return ok=true for existing key")
	}
	if got != "snapshot" {
		t.Errorf("Get() = %v, want %v", got, "snapshot")
	}
}

func TestCache_GetNonExistent(t *testing.T) {
	cache := New[*int](time.Minute)
	defer cache.Stop()

	got, ok := cache.Get("non-existent")
	if ok {
		t.Error("Get() should return ok=false for non-existent key")
	}
	if got != nil {
		t.Errorf("Get() = %v, want nil", got)
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	cache := New[string](time.Hour)
	defer cache.Stop()

	cache.SetWithTTL("expiring-key", "expiring-value", 50*time.Millisecond)

	if _, ok := cache.Get("expiring-key"); !ok {
		t.Error("Key should exist before TTL expiration")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get("expiring-key"); ok {
		t.Error("Key should be expired after TTL")
	}
}

func TestCache_Delete(t *testing.T) {
	cache := New[string](time.Hour)
	defer cache.Stop()

	cache.Set("delete-key", "delete-value")
	if _, ok := cache.Get("delete-key"); !ok {
		t.Error("Key should exist before delete")
	}

	cache.Delete("delete-key")

	if _, ok := cache.Get("delete-key"); ok {
		t.Error("Key should not exist after delete")
	}
}

func TestCache_Overwrite(t *testing.T) {
	cache := New[int](time.Hour)
	defer cache.Stop()

	cache.Set("k", 1)
	cache.Set("k", 2)

	if got, _ := cache.Get("k"); got != 2 {
		t.Errorf("Get() = %v, want 2 after overwrite", got)
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}
}

func TestCache_CleanupRemovesExpired(t *testing.T) {
	cache := NewWithContext[string](context.Background(), 10*time.Millisecond, 20*time.Millisecond)
	defer cache.Stop()

	cache.Set("a", "1")
	cache.Set("b", "2")

	time.Sleep(100 * time.Millisecond)

	if n := cache.Len(); n != 0 {
		t.Errorf("Len() = %d after cleanup, want 0", n)
	}
}

func TestCache_Stop(t *testing.T) {
	cache := New[string](time.Minute)

	cache.Stop()

	cache.Stop()
}

func TestCache_NewWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cache := NewWithContext[string](ctx, time.Hour, 0)

	cache.Set("ctx-key", "ctx-value")
	if got, ok := cache.Get("ctx-key"); !ok || got != "ctx-value" {
		t.Error("Cache should work before context cancel")
	}

	cancel()

	time.Sleep(10 * time.Millisecond)

	cache.Set("another", "value")
	if _, ok := cache.Get("another"); !ok {
		t.Error("Cache should still work after context cancel")
	}
}

func TestCache_Concurrent(t *testing.T) {
	cache := New[int](time.Hour)
	defer cache.Stop()

	done := make(chan bool)

	go func() {
		for i := 0; i < 1000; i++ {
			cache.Set("concurrent-key", i)
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 1000; i++ {
			cache.Get("concurrent-key")
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			cache.Delete("concurrent-key")
			time.Sleep(time.Microsecond)
		}
		done <- true
	}()

	<-done
	<-done
	<-done
}

func TestCache_MaxEntries(t *testing.T) {
	c := New[int](time.Minute).WithMaxEntries(2)
	defer c.Stop()

	c.SetWithTTL("a", 1, time.Minute)
	c.SetWithTTL("b", 2, 2*time.Minute)
	c.SetWithTTL("c", 3, 3*time.Minute)

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("entry closest to expiry should be evicted")
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("Get(c) = %v, %v", v, ok)
	}

	// перезапись существующего ключа ничего не вытесняет
	c.Set("b", 20)
	if _, ok := c.Get("c"); !ok {
		t.Error("overwrite should not evict other entries")
	}
}

func TestCache_MaxEntriesDropsExpiredFirst(t *testing.T) {
	c := New[string](time.Minute).WithMaxEntries(2)
	defer c.Stop()

	c.SetWithTTL("stale", "x", time.Millisecond)
	c.SetWithTTL("fresh", "y", time.Hour)
	time.Sleep(5 * time.Millisecond)

	c.Set("new", "z")

	if _, ok := c.Get("fresh"); !ok {
		t.Error("live entry should survive while an expired one can be dropped")
	}
	if _, ok := c.Get("new"); !ok {
		t.Error("new entry should be stored")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}
