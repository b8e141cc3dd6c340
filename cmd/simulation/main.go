package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ai-video-companion/internal/pkg/logger"
	"ai-video-companion/internal/repository/durable"
	"ai-video-companion/internal/repository/memory"
	"ai-video-companion/internal/service"
	"ai-video-companion/pkg/producer"
	"ai-video-companion/pkg/store"
	"ai-video-companion/pkg/video/state"

	"github.com/fatih/color"
)

const (
	videoA = "https://storage.example.com/uploads/demo/lecture.mp4"
	videoB = "https://storage.example.com/uploads/demo/match.mp4"
)

// scriptedProducer answers every call after a fixed delay.
type scriptedProducer struct {
	delay time.Duration
}

func (p scriptedProducer) Analyze(ctx context.Context, locator string) (*store.AnalysisResult, error) {
	time.Sleep(p.delay)
	return &store.AnalysisResult{
		OriginalDurationSec: 1800,
		FullText:            "transcript of " + locator,
		RecommendedFocus:    []string{"key arguments"},
		SummaryTitle:        "Scripted analysis",
	}, nil
}

func (p scriptedProducer) GenerateHighlights(ctx context.Context, params producer.HighlightParams) (*store.HighlightBatch, error) {
	time.Sleep(p.delay)
	items := make([]store.HighlightItem, 0, params.Count)
	for i := 0; i < params.Count; i++ {
		items = append(items, store.HighlightItem{
			HighlightURL: fmt.Sprintf("%s#clip-%d", params.Locator, i+1),
			Duration:     float64(params.DurationSeconds),
		})
	}
	return &store.HighlightBatch{Results: items}, nil
}

func (p scriptedProducer) SetupConversation(ctx context.Context, locator string) error {
	time.Sleep(p.delay / 2)
	return nil
}

func (p scriptedProducer) AskQuestion(ctx context.Context, locator, question string) (*producer.Answer, error) {
	time.Sleep(p.delay)
	return &producer.Answer{Text: "Scripted answer to: " + question, AnsweredAt: time.Now()}, nil
}

type emptyAuthority struct{}

func (emptyAuthority) FetchConversationHistory(ctx context.Context, locator string) (*producer.ConversationHistory, error) {
	return &producer.ConversationHistory{}, nil
}

func (emptyAuthority) FetchAnalysisByKey(ctx context.Context, key store.VideoKey) (*producer.AnalysisLookup, error) {
	return &producer.AnalysisLookup{}, nil
}

func (emptyAuthority) ListVideos(ctx context.Context) ([]store.VideoSummary, error) {
	return nil, nil
}

func (emptyAuthority) DeleteVideo(ctx context.Context, fileName string) error {
	return nil
}

var (
	title   = color.New(color.FgCyan, color.Bold)
	event   = color.New(color.FgYellow)
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
)

func main() {
	ctx := context.Background()
	log := logger.NewNopLogger()

	tier := durable.NewTier(durable.NewMemoryBackend(), durable.DefaultSessionTTL, log)
	cache := memory.NewResourceCache(tier)
	manager := state.NewManager(log)
	manager.OnChange(func(c state.Change) {
		switch c.Type {
		case state.ChangeStatus:
			event.Printf("  ↳ %-10s %-9s %s\n", c.Task, c.Status, c.Locator)
		case state.ChangeSelected:
			event.Printf("  ↳ selected  %s\n", c.Locator)
		case state.ChangeReady:
			event.Printf("  ↳ ready=%v  %s\n", c.Ready, c.Locator)
		case state.ChangeComposing:
			event.Printf("  ↳ composing=%v\n", c.Composing)
		}
	})

	p := scriptedProducer{delay: 300 * time.Millisecond}
	videos := service.NewVideoService(emptyAuthority{}, cache, manager, log)
	tasks := service.NewTaskService(p, cache, manager, log)

	title.Println("=== Video companion simulation ===")

	title.Println("\n1. Navigate away while an analysis is running")
	videos.Select(videoA, &store.VideoMeta{Title: "Lecture"})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := tasks.Analyze(ctx, videoA); err != nil {
			failure.Printf("analyze failed: %v\n", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)
	videos.Select(videoB, nil)
	wg.Wait()

	if cached, ok := videos.Analysis(videoA); ok {
		success.Printf("A's analysis was cached for later: %q\n", cached.FullText)
	}
	success.Printf("B's analyze status stayed %s\n", manager.Status(store.TaskAnalyze))

	title.Println("\n2. Highlights with an invalid duration never reach the producer")
	if _, err := tasks.GenerateHighlights(ctx, &service.HighlightRequest{Locator: videoB, Focus: "goals", DurationSeconds: 0, Count: 1}); err != nil {
		failure.Printf("rejected: %v\n", err)
	}

	title.Println("\n3. Asking before setup is refused")
	if _, err := tasks.AskQuestion(ctx, videoB, "who scored?"); err != nil {
		failure.Printf("rejected: %v\n", err)
	}

	title.Println("\n4. Setup then ask")
	if ready, _ := tasks.SetupConversation(ctx, videoB); ready {
		reply, err := tasks.AskQuestion(ctx, videoB, "who scored?")
		if err != nil {
			failure.Printf("ask failed: %v\n", err)
		} else if reply != nil {
			success.Printf("assistant: %s\n", reply.Content)
		}
	}
	success.Printf("transcript length for B: %d\n", len(videos.Session(ctx, videoB)))

	title.Println("\n5. Delete B twice")
	videos.Delete(ctx, videoB)
	videos.Delete(ctx, videoB)
	success.Printf("session after delete: %d messages, active=%q\n", len(videos.Session(ctx, videoB)), manager.Active())
}
