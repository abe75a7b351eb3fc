// ABOUTME: Key-value backend contract for the response cache plus an in-memory implementation.
// ABOUTME: MemoryKV is TTL-based and size-limited with O(1) oldest-entry eviction.

package respcache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// KV is the external key-value store the response cache sits on.
// Implementations must be safe for concurrent use.
type KV interface {
	// Get returns the value for key and whether it was present and unexpired.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key with the given time-to-live.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// kvEntry stores the value, expiry, and list element for a cached key.
type kvEntry struct {
	value   string
	expires time.Time
	element *list.Element
}

// MemoryKV is a thread-safe, TTL-based, size-limited in-process KV store.
// Uses a doubly-linked list to maintain insertion order for O(1) eviction.
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string]*kvEntry
	order   *list.List // keys in insertion order (oldest at front)
	maxSize int
	done    chan struct{}
	closed  bool
}

// NewMemoryKV creates an in-memory KV store holding at most maxSize entries.
// A background goroutine periodically removes expired entries.
func NewMemoryKV(maxSize int) *MemoryKV {
	kv := &MemoryKV{
		entries: make(map[string]*kvEntry),
		order:   list.New(),
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go kv.cleanup()
	return kv
}

// Get returns the unexpired value for key, if any.
func (kv *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	entry, ok := kv.entries[key]
	if !ok || time.Now().After(entry.expires) {
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set stores value under key. If the store is at capacity, the oldest
// entry is evicted to make room.
func (kv *MemoryKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	expires := time.Now().Add(ttl)

	// If key already exists, update in place and move to back
	if entry, exists := kv.entries[key]; exists {
		entry.value = value
		entry.expires = expires
		kv.order.MoveToBack(entry.element)
		return nil
	}

	if len(kv.entries) >= kv.maxSize {
		kv.evictOldest()
	}

	elem := kv.order.PushBack(key)
	kv.entries[key] = &kvEntry{
		value:   value,
		expires: expires,
		element: elem,
	}
	return nil
}

// evictOldest removes the oldest entry. Must be called with mu held.
func (kv *MemoryKV) evictOldest() {
	front := kv.order.Front()
	if front == nil {
		return
	}

	key, _ := front.Value.(string)
	kv.order.Remove(front)
	delete(kv.entries, key)
}

// cleanup runs in a background goroutine, periodically removing expired entries.
func (kv *MemoryKV) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			kv.runCleanup()
		case <-kv.done:
			return
		}
	}
}

// runCleanup removes all expired entries.
func (kv *MemoryKV) runCleanup() {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	now := time.Now()
	for key, entry := range kv.entries {
		if now.After(entry.expires) {
			kv.order.Remove(entry.element)
			delete(kv.entries, key)
		}
	}
}

// Close stops the background cleanup goroutine. Safe to call multiple times.
func (kv *MemoryKV) Close() {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if !kv.closed {
		close(kv.done)
		kv.closed = true
	}
}
