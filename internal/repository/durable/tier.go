// Package durable persists conversation sessions across restarts with lazy
// time-based expiry.
package durable

import (
	"context"
	"encoding/json"
	"time"

	"ai-video-companion/internal/pkg/logger"
	"ai-video-companion/pkg/store"
)

// DefaultSessionTTL is how long a stored conversation stays valid.
const DefaultSessionTTL = 12 * time.Hour

const logModule = "DurableTier"

// Backend stores serialized entries by key. Read reports found=false for a
// missing key without an error.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Write(ctx context.Context, key string, data []byte) error
	Remove(ctx context.Context, key string) error
}

// entry is the persisted layout of one session.
type entry struct {
	StoredAt int64              `json:"storedAt"` // epoch millis
	Messages store.Conversation `json:"messages"`
}

// Tier wraps a Backend with TTL semantics. Expired or corrupt entries are
// evicted when they are read; nothing sweeps in the background. Storage
// failures never reach the caller.
type Tier struct {
	backend Backend
	ttl     time.Duration
	logger  logger.ILogger
}

func NewTier(backend Backend, ttl time.Duration, log logger.ILogger) *Tier {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Tier{backend: backend, ttl: ttl, logger: log}
}

func (t *Tier) TTL() time.Duration {
	return t.ttl
}

// Backend exposes the raw store, mainly so callers can check eviction.
func (t *Tier) Backend() Backend {
	return t.backend
}

// Put overwrites the entry for key. A failed write is logged and dropped.
func (t *Tier) Put(ctx context.Context, key store.VideoKey, value store.Conversation, now time.Time) {
	data, err := json.Marshal(entry{StoredAt: now.UnixMilli(), Messages: value})
	if err != nil {
		t.logger.Warn(logModule, "Failed to encode session entry", map[string]interface{}{"key": key, "error": err.Error()})
		return
	}
	if err := t.backend.Write(ctx, string(key), data); err != nil {
		t.logger.Warn(logModule, "Failed to write session entry", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

// Get returns the stored conversation when it is younger than the TTL.
func (t *Tier) Get(ctx context.Context, key store.VideoKey, now time.Time) (store.Conversation, bool) {
	data, found, err := t.backend.Read(ctx, string(key))
	if err != nil {
		t.logger.Warn(logModule, "Failed to read session entry", map[string]interface{}{"key": key, "error": err.Error()})
		return nil, false
	}
	if !found {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		t.logger.Warn(logModule, "Evicting corrupt session entry", map[string]interface{}{"key": key, "error": err.Error()})
		t.Delete(ctx, key)
		return nil, false
	}

	age := now.Sub(time.UnixMilli(e.StoredAt))
	if age > t.ttl {
		t.logger.Debug(logModule, "Evicting expired session entry", map[string]interface{}{"key": key, "age": age.String()})
		t.Delete(ctx, key)
		return nil, false
	}

	if e.Messages == nil {
		e.Messages = store.Conversation{}
	}
	return e.Messages, true
}

// Delete removes the entry. Removing a missing key is not an error.
func (t *Tier) Delete(ctx context.Context, key store.VideoKey) {
	if err := t.backend.Remove(ctx, string(key)); err != nil {
		t.logger.Warn(logModule, "Failed to remove session entry", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
