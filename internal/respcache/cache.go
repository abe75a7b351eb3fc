// ABOUTME: Content-addressed response cache to short-circuit repeated natural-language requests.
// ABOUTME: Degrades to a miss on any backend failure; the cache is an optimization, never a dependency.

package respcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"
)

// sentinels are control strings that must never be cached as responses.
// A reply equal to any of these is an internal protocol marker, not an answer.
var sentinels = []string{
	"TERMINATE",
	"UPDATE CONTEXT",
}

// Cache maps normalized natural-language requests to previously computed
// response payloads, with a fixed TTL.
type Cache struct {
	kv     KV
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a response cache over the given KV backend.
// Pass nil logger for the default.
func New(kv KV, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		kv:     kv,
		ttl:    ttl,
		logger: logger.With("component", "respcache"),
	}
}

// Key derives the cache key for a request: trim, case-fold, then hash,
// so trivially different inputs (casing, whitespace) still hit.
func Key(request string) string {
	normalized := strings.ToLower(strings.TrimSpace(request))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached response payload for a request, if present.
// A backend failure degrades to a miss and is never surfaced to the caller.
func (c *Cache) Get(ctx context.Context, request string) ([]byte, bool) {
	value, ok, err := c.kv.Get(ctx, Key(request))
	if err != nil {
		c.logger.Warn("cache backend get failed, treating as miss", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return []byte(value), true
}

// Put stores a response payload for a request. Best-effort: failures are
// logged and swallowed. Responses whose content is not cacheable (empty or
// a control sentinel) are skipped so they cannot poison the cache.
func (c *Cache) Put(ctx context.Context, request, content string, payload []byte) {
	if !Cacheable(content) {
		c.logger.Debug("skipping uncacheable response", "content_len", len(content))
		return
	}

	if err := c.kv.Set(ctx, Key(request), string(payload), c.ttl); err != nil {
		c.logger.Warn("cache backend set failed", "error", err)
	}
}

// Cacheable reports whether a response content is safe to cache.
// Empty responses and control sentinels are not.
func Cacheable(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return false
	}
	for _, s := range sentinels {
		if trimmed == s {
			return false
		}
	}
	return true
}
