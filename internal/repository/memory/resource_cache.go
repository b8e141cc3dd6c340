package memory

import (
	"context"
	"sync"
	"time"

	"ai-video-companion/internal/repository/durable"
	"ai-video-companion/pkg/store"
	"ai-video-companion/pkg/videokey"

	"github.com/patrickmn/go-cache"
)

// ResourceCache holds the latest known analysis, highlight batch and
// conversation for each video, keyed by the raw locator. Conversations are
// also written through to the durable tier under the derived VideoKey.
type ResourceCache struct {
	// mu makes read-modify-write sequences (merge, append) atomic.
	mu         sync.Mutex
	analyses   *cache.Cache
	highlights *cache.Cache
	sessions   *cache.Cache
	durable    *durable.Tier
	now        func() time.Time
}

type Option func(*ResourceCache)

// WithClock replaces time.Now for durable-tier timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *ResourceCache) {
		c.now = now
	}
}

func NewResourceCache(tier *durable.Tier, opts ...Option) *ResourceCache {
	// Entries live for the whole application session; only explicit
	// deletion removes them.
	c := &ResourceCache{
		analyses:   cache.New(cache.NoExpiration, 0),
		highlights: cache.New(cache.NoExpiration, 0),
		sessions:   cache.New(cache.NoExpiration, 0),
		durable:    tier,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAnalysis returns a copy of the cached analysis. Values are copied on
// the way in and out, so callers never share memory with the cache.
func (c *ResourceCache) GetAnalysis(locator string) (*store.AnalysisResult, bool) {
	if x, found := c.analyses.Get(locator); found {
		return x.(*store.AnalysisResult).Clone(), true
	}
	return nil, false
}

// SaveAnalysis replaces the analysis entry.
func (c *ResourceCache) SaveAnalysis(locator string, value *store.AnalysisResult) {
	if value == nil {
		return
	}
	c.analyses.Set(locator, value.Clone(), cache.NoExpiration)
}

// MergeAnalysis layers patch over the current entry and stores the result
// as a new value.
func (c *ResourceCache) MergeAnalysis(locator string, patch store.AnalysisPatch) *store.AnalysisResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, _ := c.GetAnalysis(locator)
	next := patch.Apply(prev)
	c.analyses.Set(locator, next, cache.NoExpiration)
	return next.Clone()
}

func (c *ResourceCache) GetHighlight(locator string) (*store.HighlightBatch, bool) {
	if x, found := c.highlights.Get(locator); found {
		return x.(*store.HighlightBatch).Clone(), true
	}
	return nil, false
}

// SaveHighlight replaces the previous batch for the locator.
func (c *ResourceCache) SaveHighlight(locator string, value *store.HighlightBatch) {
	if value == nil {
		return
	}
	c.highlights.Set(locator, value.Clone(), cache.NoExpiration)
}

// GetSession returns the in-memory conversation, falling back to the durable
// tier and priming memory with what it finds. An unknown locator yields an
// empty conversation.
func (c *ResourceCache) GetSession(ctx context.Context, locator string) store.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getSessionLocked(ctx, locator)
}

func (c *ResourceCache) getSessionLocked(ctx context.Context, locator string) store.Conversation {
	if x, found := c.sessions.Get(locator); found {
		return cloneConversation(x.(store.Conversation))
	}

	if value, found := c.durable.Get(ctx, videokey.Derive(locator), c.now()); found {
		c.sessions.Set(locator, cloneConversation(value), cache.NoExpiration)
		return cloneConversation(value)
	}
	return store.Conversation{}
}

// SaveSession replaces the conversation in memory and, best effort, in the
// durable tier.
func (c *ResourceCache) SaveSession(ctx context.Context, locator string, value store.Conversation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saveSessionLocked(ctx, locator, value)
}

func (c *ResourceCache) saveSessionLocked(ctx context.Context, locator string, value store.Conversation) {
	value = cloneConversation(value)
	c.sessions.Set(locator, value, cache.NoExpiration)
	c.durable.Put(ctx, videokey.Derive(locator), value, c.now())
}

// AppendMessage adds msg to the end of the conversation and returns the
// updated transcript.
func (c *ResourceCache) AppendMessage(ctx context.Context, locator string, msg store.Message) store.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := append(c.getSessionLocked(ctx, locator), msg)
	c.saveSessionLocked(ctx, locator, next)
	return cloneConversation(next)
}

// Clear drops every artifact of the locator from memory and the durable
// tier. Clearing an unknown locator is a no-op.
func (c *ResourceCache) Clear(ctx context.Context, locator string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.analyses.Delete(locator)
	c.highlights.Delete(locator)
	c.sessions.Delete(locator)
	c.durable.Delete(ctx, videokey.Derive(locator))
}

func cloneConversation(in store.Conversation) store.Conversation {
	out := make(store.Conversation, len(in))
	copy(out, in)
	return out
}
