package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-video-companion/internal/pkg/logger"
	"ai-video-companion/internal/repository/durable"
	"ai-video-companion/internal/repository/memory"
	"ai-video-companion/pkg/producer"
	"ai-video-companion/pkg/store"
	"ai-video-companion/pkg/video/state"
)

var errBackend = errors.New("backend unavailable")

// fakeProducer blocks on a gate when one is set, so tests can navigate
// while a call is in flight.
type fakeProducer struct {
	mu    sync.Mutex
	calls map[string]int

	started chan string
	gate    chan struct{}

	analysis   *store.AnalysisResult
	analyzeErr error

	highlights   *store.HighlightBatch
	highlightErr error
	lastParams   producer.HighlightParams

	setupErr error

	answer *producer.Answer
	askErr error
}

func newFakeProducer() *fakeProducer {
	return &fakeProducer{calls: make(map[string]int)}
}

func (f *fakeProducer) enter(op string) {
	f.mu.Lock()
	f.calls[op]++
	started, gate := f.started, f.gate
	f.mu.Unlock()

	if started != nil {
		started <- op
	}
	if gate != nil {
		<-gate
	}
}

func (f *fakeProducer) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeProducer) Analyze(ctx context.Context, locator string) (*store.AnalysisResult, error) {
	f.enter("analyze")
	return f.analysis, f.analyzeErr
}

func (f *fakeProducer) GenerateHighlights(ctx context.Context, params producer.HighlightParams) (*store.HighlightBatch, error) {
	f.mu.Lock()
	f.lastParams = params
	f.mu.Unlock()
	f.enter("highlight")
	return f.highlights, f.highlightErr
}

func (f *fakeProducer) SetupConversation(ctx context.Context, locator string) error {
	f.enter("setup")
	return f.setupErr
}

func (f *fakeProducer) AskQuestion(ctx context.Context, locator, question string) (*producer.Answer, error) {
	f.enter("ask")
	return f.answer, f.askErr
}

type fakeAuthority struct {
	mu sync.Mutex

	history    *producer.ConversationHistory
	historyErr error
	lookup     *producer.AnalysisLookup
	lookupErr  error
	lookupKeys []store.VideoKey
	videos     []store.VideoSummary
	deleteErr  error
	deleted    []string
}

func (f *fakeAuthority) FetchConversationHistory(ctx context.Context, locator string) (*producer.ConversationHistory, error) {
	return f.history, f.historyErr
}

func (f *fakeAuthority) FetchAnalysisByKey(ctx context.Context, key store.VideoKey) (*producer.AnalysisLookup, error) {
	f.mu.Lock()
	f.lookupKeys = append(f.lookupKeys, key)
	f.mu.Unlock()
	return f.lookup, f.lookupErr
}

func (f *fakeAuthority) ListVideos(ctx context.Context) ([]store.VideoSummary, error) {
	return f.videos, nil
}

func (f *fakeAuthority) DeleteVideo(ctx context.Context, fileName string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, fileName)
	return nil
}

type harness struct {
	producer  *fakeProducer
	authority *fakeAuthority
	tier      *durable.Tier
	cache     *memory.ResourceCache
	state     *state.Manager
	tasks     ITaskService
	videos    IVideoService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithBackend(t, durable.NewMemoryBackend())
}

func newHarnessWithBackend(t *testing.T, backend durable.Backend) *harness {
	t.Helper()
	log := logger.NewNopLogger()
	tier := durable.NewTier(backend, durable.DefaultSessionTTL, log)
	cache := memory.NewResourceCache(tier)
	stateManager := state.NewManager(log)
	p := newFakeProducer()
	a := &fakeAuthority{}

	return &harness{
		producer:  p,
		authority: a,
		tier:      tier,
		cache:     cache,
		state:     stateManager,
		tasks:     NewTaskService(p, cache, stateManager, log),
		videos:    NewVideoService(a, cache, stateManager, log),
	}
}

// block makes the next producer calls wait until release is called.
func (h *harness) block() (started chan string, release func()) {
	started = make(chan string, 1)
	gate := make(chan struct{})
	h.producer.mu.Lock()
	h.producer.started = started
	h.producer.gate = gate
	h.producer.mu.Unlock()

	var once sync.Once
	return started, func() { once.Do(func() { close(gate) }) }
}

func waitStarted(t *testing.T, started chan string) string {
	t.Helper()
	select {
	case op := <-started:
		return op
	case <-time.After(2 * time.Second):
		t.Fatal("producer call did not start")
		return ""
	}
}

// hookedBackend runs onRemove before every Remove reaches the wrapped backend.
type hookedBackend struct {
	durable.Backend
	onRemove func()
}

func (b *hookedBackend) Remove(ctx context.Context, key string) error {
	if b.onRemove != nil {
		b.onRemove()
	}
	return b.Backend.Remove(ctx, key)
}
