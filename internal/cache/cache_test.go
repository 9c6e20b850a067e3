package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opensource-health/heron/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		err := cache.Set(ctx, "key1", []byte("value1"), time.Minute)
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, err := cache.Get(ctx, "nonexistent")
		if !errors.Is(err, ErrCacheMiss) {
			t.Errorf("expected ErrCacheMiss, got: %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, "key2", []byte("value2"), time.Minute)

		err := cache.Delete(ctx, "key2")
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		if _, err := cache.Get(ctx, "key2"); !errors.Is(err, ErrCacheMiss) {
			t.Error("expected miss after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		_ = cache.Set(ctx, "expiring", []byte("temp"), 10*time.Millisecond)

		// Should be available immediately
		if _, err := cache.Get(ctx, "expiring"); err != nil {
			t.Errorf("expected value before expiration, got %v", err)
		}

		// Wait for expiration
		time.Sleep(20 * time.Millisecond)

		if _, err := cache.Get(ctx, "expiring"); !errors.Is(err, ErrCacheMiss) {
			t.Error("expected miss after expiration")
		}
	})

	t.Run("LRUEviction", func(t *testing.T) {
		smallCache := NewLRUCache(3)

		_ = smallCache.Set(ctx, "a", []byte("1"), time.Minute)
		_ = smallCache.Set(ctx, "b", []byte("2"), time.Minute)
		_ = smallCache.Set(ctx, "c", []byte("3"), time.Minute)

		// Access 'a' to make it recently used
		_, _ = smallCache.Get(ctx, "a")

		// Add 'd' - should evict 'b' (oldest accessed)
		_ = smallCache.Set(ctx, "d", []byte("4"), time.Minute)

		if _, err := smallCache.Get(ctx, "b"); !errors.Is(err, ErrCacheMiss) {
			t.Error("expected 'b' to be evicted")
		}
		if _, err := smallCache.Get(ctx, "a"); err != nil {
			t.Error("expected 'a' to still exist")
		}
	})

	t.Run("RequiresKey", func(t *testing.T) {
		if err := cache.Set(ctx, "", []byte("value"), time.Minute); err == nil {
			t.Error("expected error for empty key")
		}
		if _, err := cache.Get(ctx, ""); err == nil {
			t.Error("expected error for empty key")
		}
	})

	t.Run("Stats", func(t *testing.T) {
		statsCache := NewLRUCache(50)
		_ = statsCache.Set(ctx, "k1", []byte("v1"), time.Minute)
		_ = statsCache.Set(ctx, "k2", []byte("v2"), time.Minute)

		size, capacity := statsCache.Stats()
		if size != 2 {
			t.Errorf("expected size 2, got %d", size)
		}
		if capacity != 50 {
			t.Errorf("expected capacity 50, got %d", capacity)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := cache.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("Close", func(t *testing.T) {
		testCache := NewLRUCache(10)
		_ = testCache.Set(ctx, "k", []byte("v"), time.Minute)

		if err := testCache.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}

		// Cache should be empty after close
		if _, err := testCache.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
			t.Error("expected cache to be cleared after close")
		}
	})
}

// fakeRemote is an in-memory L2 that can be switched into failure.
type fakeRemote struct {
	mu     sync.Mutex
	data   map[string][]byte
	down   bool
	gets   int
	closed bool
}

var errRemoteDown = errors.New("connection refused")

func newFakeRemote() *fakeRemote {
	return &fakeRemote{data: make(map[string][]byte)}
}

func (f *fakeRemote) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.down {
		return nil, errRemoteDown
	}
	v, ok := f.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (f *fakeRemote) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errRemoteDown
	}
	f.data[key] = value
	return nil
}

func (f *fakeRemote) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errRemoteDown
	}
	delete(f.data, key)
	return nil
}

func (f *fakeRemote) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errRemoteDown
	}
	return nil
}

func (f *fakeRemote) Close() error {
	f.closed = true
	return nil
}

func TestTwoPhaseCache(t *testing.T) {
	ctx := context.Background()

	t.Run("WritesThroughAndPromotes", func(t *testing.T) {
		remote := newFakeRemote()
		c := newTwoPhaseCache(NewLRUCache(10), remote, time.Minute)

		if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if string(remote.data["k"]) != "v" {
			t.Error("expected value written to L2")
		}

		// Drop from L1 so the read has to go to L2.
		_ = c.local.Delete(ctx, "k")
		val, err := c.Get(ctx, "k")
		if err != nil || string(val) != "v" {
			t.Fatalf("expected L2 hit, got %q, %v", val, err)
		}

		gets := remote.gets
		if _, err := c.Get(ctx, "k"); err != nil {
			t.Fatalf("expected L1 hit, got %v", err)
		}
		if remote.gets != gets {
			t.Error("expected L1 to serve the second read")
		}
	})

	t.Run("MissesDoNotTripBreaker", func(t *testing.T) {
		c := newTwoPhaseCache(NewLRUCache(10), newFakeRemote(), time.Minute)

		for i := 0; i < 10; i++ {
			if _, err := c.Get(ctx, "absent"); !errors.Is(err, ErrCacheMiss) {
				t.Fatalf("expected miss, got %v", err)
			}
		}
		if c.BreakerState() != gobreaker.StateClosed {
			t.Errorf("expected closed breaker, got %s", c.BreakerState())
		}
	})

	t.Run("DegradesToL1WhenRemoteDown", func(t *testing.T) {
		remote := newFakeRemote()
		remote.down = true
		c := newTwoPhaseCache(NewLRUCache(10), remote, time.Minute)

		for i := 0; i < 5; i++ {
			if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
				t.Fatalf("Set should not fail on L2 outage: %v", err)
			}
		}
		if c.BreakerState() != gobreaker.StateOpen {
			t.Errorf("expected open breaker, got %s", c.BreakerState())
		}

		val, err := c.Get(ctx, "k")
		if err != nil || string(val) != "v" {
			t.Errorf("expected L1 hit, got %q, %v", val, err)
		}

		gets := remote.gets
		if _, err := c.Get(ctx, "other"); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("expected miss, got %v", err)
		}
		if remote.gets != gets {
			t.Error("expected open breaker to skip L2")
		}

		if err := c.Ping(ctx); err == nil {
			t.Error("expected Ping to report L2 failure")
		}
	})

	t.Run("Close", func(t *testing.T) {
		remote := newFakeRemote()
		c := newTwoPhaseCache(NewLRUCache(10), remote, 0)
		if c.l1TTL != 5*time.Minute {
			t.Errorf("expected default L1 TTL, got %v", c.l1TTL)
		}
		_ = c.Close()
		if !remote.closed {
			t.Error("expected remote to be closed")
		}
	})
}

func TestKey(t *testing.T) {
	a := Key("symptoms", "2025.1", "cough,fever")
	b := Key("symptoms", "2025.1", "cough,fever")
	c := Key("symptoms", "2025.2", "cough,fever")

	if a != b {
		t.Error("expected stable keys")
	}
	if a == c {
		t.Error("expected version to change the key")
	}
	if Key("a", "b", "c") == Key("a", "bc") {
		t.Error("expected part boundaries to matter")
	}
}

func TestNewCache(t *testing.T) {
	t.Run("MemoryType", func(t *testing.T) {
		cfg := domain.CacheConfig{
			Type:         "memory",
			LocalMaxSize: 100,
		}

		cache, err := New(cfg)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer cache.Close()

		_, ok := cache.(*LRUCache)
		if !ok {
			t.Error("expected LRUCache for memory type")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		cfg := domain.CacheConfig{
			Type: "memcached",
		}

		_, err := New(cfg)
		if err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}
