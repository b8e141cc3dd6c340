package durable

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// MemoryBackend keeps entries in process. Expiry belongs to the Tier, so
// the cache itself never expires or janitors items.
type MemoryBackend struct {
	cache *cache.Cache
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{cache: cache.New(cache.NoExpiration, 0)}
}

func (b *MemoryBackend) Read(_ context.Context, key string) ([]byte, bool, error) {
	if x, found := b.cache.Get(key); found {
		return x.([]byte), true, nil
	}
	return nil, false, nil
}

func (b *MemoryBackend) Write(_ context.Context, key string, data []byte) error {
	b.cache.Set(key, append([]byte(nil), data...), cache.NoExpiration)
	return nil
}

func (b *MemoryBackend) Remove(_ context.Context, key string) error {
	b.cache.Delete(key)
	return nil
}
