// ABOUTME: Tests for the response cache and its in-memory KV backend.
// ABOUTME: Validates round-trips, TTL expiry, normalization, sentinel guards, and backend outage behavior.

package respcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKV_RoundTrip(t *testing.T) {
	kv := NewMemoryKV(100)
	defer kv.Close()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", "v", 5*time.Minute))

	got, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestMemoryKV_Expiry(t *testing.T) {
	kv := NewMemoryKV(100)
	defer kv.Close()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", "v", 10*time.Millisecond))

	_, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	_, ok, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "entry should be a miss after TTL")
}

func TestMemoryKV_Eviction(t *testing.T) {
	kv := NewMemoryKV(3)
	defer kv.Close()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "first", "1", time.Minute))
	require.NoError(t, kv.Set(ctx, "second", "2", time.Minute))
	require.NoError(t, kv.Set(ctx, "third", "3", time.Minute))
	require.NoError(t, kv.Set(ctx, "fourth", "4", time.Minute))

	_, ok, _ := kv.Get(ctx, "first")
	assert.False(t, ok, "oldest key should be evicted at capacity")

	_, ok, _ = kv.Get(ctx, "fourth")
	assert.True(t, ok)
}

func TestMemoryKV_SetUpdatesInPlace(t *testing.T) {
	kv := NewMemoryKV(3)
	defer kv.Close()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", "old", time.Minute))
	require.NoError(t, kv.Set(ctx, "k", "new", time.Minute))

	got, ok, _ := kv.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestMemoryKV_Cleanup(t *testing.T) {
	kv := NewMemoryKV(100)
	defer kv.Close()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "a", "1", 5*time.Millisecond))
	require.NoError(t, kv.Set(ctx, "b", "2", 5*time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	kv.runCleanup()

	kv.mu.RLock()
	mapLen := len(kv.entries)
	kv.mu.RUnlock()
	assert.Equal(t, 0, mapLen, "cleanup should remove expired entries from map")
}

func TestMemoryKV_Concurrent(t *testing.T) {
	kv := NewMemoryKV(1000)
	defer kv.Close()
	ctx := context.Background()

	const numGoroutines = 50
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			key := "key-" + string(rune('A'+id%26))
			for j := 0; j < 100; j++ {
				_ = kv.Set(ctx, key, "v", time.Minute)
				_, _, _ = kv.Get(ctx, key)
			}
		}(i)
	}

	wg.Wait()

	require.NoError(t, kv.Set(ctx, "final", "v", time.Minute))
	_, ok, _ := kv.Get(ctx, "final")
	assert.True(t, ok)
}

func TestMemoryKV_Close(t *testing.T) {
	kv := NewMemoryKV(10)
	kv.Close()
	kv.Close() // multiple closes must not panic
}

func TestKey_Normalization(t *testing.T) {
	assert.Equal(t, Key("Create BOTCSearch"), Key("  create botcsearch  "),
		"casing and whitespace must not change the key")
	assert.NotEqual(t, Key("create botcsearch"), Key("create othersearch"))
}

func TestCache_RoundTrip(t *testing.T) {
	kv := NewMemoryKV(100)
	defer kv.Close()
	cache := New(kv, 5*time.Minute, nil)
	ctx := context.Background()

	cache.Put(ctx, "Create BOTCSearch using /docs", "agent created", []byte(`{"status":true}`))

	payload, hit := cache.Get(ctx, "create botcsearch using /docs")
	require.True(t, hit)
	assert.JSONEq(t, `{"status":true}`, string(payload))
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	kv := NewMemoryKV(100)
	defer kv.Close()
	cache := New(kv, 10*time.Millisecond, nil)
	ctx := context.Background()

	cache.Put(ctx, "req", "answer", []byte(`{}`))

	_, hit := cache.Get(ctx, "req")
	require.True(t, hit)

	time.Sleep(20 * time.Millisecond)

	_, hit = cache.Get(ctx, "req")
	assert.False(t, hit)
}

func TestCache_SentinelsNotCached(t *testing.T) {
	kv := NewMemoryKV(100)
	defer kv.Close()
	cache := New(kv, 5*time.Minute, nil)
	ctx := context.Background()

	cache.Put(ctx, "req1", "TERMINATE", []byte(`{}`))
	cache.Put(ctx, "req2", "UPDATE CONTEXT", []byte(`{}`))
	cache.Put(ctx, "req3", "", []byte(`{}`))
	cache.Put(ctx, "req4", "   ", []byte(`{}`))

	for _, req := range []string{"req1", "req2", "req3", "req4"} {
		_, hit := cache.Get(ctx, req)
		assert.False(t, hit, "sentinel/empty response must not poison the cache: %s", req)
	}
}

func TestCacheable(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{"a real answer", true},
		{"TERMINATE", false},
		{"UPDATE CONTEXT", false},
		{"  TERMINATE  ", false},
		{"", false},
		{"   ", false},
		{"TERMINATE now please", true}, // only exact sentinel matches are blocked
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Cacheable(tt.content), "content=%q", tt.content)
	}
}

// failingKV simulates a backend outage.
type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("backend down")
}

func (failingKV) Set(context.Context, string, string, time.Duration) error {
	return errors.New("backend down")
}

func TestCache_BackendOutageDegradesToMiss(t *testing.T) {
	cache := New(failingKV{}, 5*time.Minute, nil)
	ctx := context.Background()

	// Put must swallow the failure
	cache.Put(ctx, "req", "answer", []byte(`{}`))

	// Get must be an unconditional miss, never an error
	_, hit := cache.Get(ctx, "req")
	assert.False(t, hit)
}
