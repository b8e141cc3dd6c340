package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-video-companion/pkg/producer"
	"ai-video-companion/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	videoA = "https://bucket.example.com/uploads/user1/a.mp4"
	videoB = "https://bucket.example.com/uploads/user1/b.mp4"
)

func TestAnalyzeSuccessMergesIntoCache(t *testing.T) {
	h := newHarness(t)
	h.videos.Select(videoA, nil)
	h.cache.SaveAnalysis(videoA, &store.AnalysisResult{SummaryTitle: "kept"})
	h.producer.analysis = &store.AnalysisResult{FullText: "fresh", RecommendedFocus: []string{"goals"}}

	got, err := h.tasks.Analyze(context.Background(), videoA)
	require.NoError(t, err)

	assert.Equal(t, "fresh", got.FullText)
	assert.Equal(t, "kept", got.SummaryTitle)
	assert.Equal(t, store.StatusDone, h.state.Status(store.TaskAnalyze))
}

func TestAnalyzeFailureLeavesCacheUntouched(t *testing.T) {
	h := newHarness(t)
	h.videos.Select(videoA, nil)
	h.cache.SaveAnalysis(videoA, &store.AnalysisResult{FullText: "old"})
	h.producer.analyzeErr = errBackend

	_, err := h.tasks.Analyze(context.Background(), videoA)

	var perr *ProducerError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, videoA, perr.Locator)
	assert.Equal(t, store.StatusError, h.state.Status(store.TaskAnalyze))

	cached, _ := h.cache.GetAnalysis(videoA)
	assert.Equal(t, "old", cached.FullText)
}

func TestAnalyzeStaleResponseIsNotSurfaced(t *testing.T) {
	h := newHarness(t)
	h.videos.Select(videoA, nil)
	h.producer.analysis = &store.AnalysisResult{FullText: "result for A"}
	started, release := h.block()
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := h.tasks.Analyze(context.Background(), videoA)
		done <- err
	}()

	waitStarted(t, started)
	assert.Equal(t, store.StatusRunning, h.state.Status(store.TaskAnalyze))

	h.videos.Select(videoB, nil)
	release()
	require.NoError(t, <-done)

	assert.Equal(t, videoB, h.state.Active())
	assert.Equal(t, store.StatusIdle, h.state.Status(store.TaskAnalyze))

	cached, ok := h.cache.GetAnalysis(videoA)
	require.True(t, ok, "result must still be cached for the video that requested it")
	assert.Equal(t, "result for A", cached.FullText)
	_, ok = h.cache.GetAnalysis(videoB)
	assert.False(t, ok)
}

func TestGenerateHighlightsValidation(t *testing.T) {
	tests := []struct {
		name      string
		req       *HighlightRequest
		wantField string
	}{
		{
			name:      "empty focus without recommendation",
			req:       &HighlightRequest{Locator: videoA, Focus: "", DurationSeconds: 30, Count: 1, Segments: []store.Segment{}, Mode: "text"},
			wantField: "focus",
		},
		{
			name:      "blank focus",
			req:       &HighlightRequest{Locator: videoA, Focus: "   ", DurationSeconds: 30, Count: 1},
			wantField: "focus",
		},
		{
			name:      "zero duration",
			req:       &HighlightRequest{Locator: videoA, Focus: "goals", DurationSeconds: 0, Count: 1},
			wantField: "durationseconds",
		},
		{
			name:      "negative duration",
			req:       &HighlightRequest{Locator: videoA, Focus: "goals", DurationSeconds: -5, Count: 1},
			wantField: "durationseconds",
		},
		{
			name:      "zero count",
			req:       &HighlightRequest{Locator: videoA, Focus: "goals", DurationSeconds: 30, Count: 0},
			wantField: "count",
		},
		{
			name:      "unknown mode",
			req:       &HighlightRequest{Locator: videoA, Focus: "goals", DurationSeconds: 30, Count: 1, Mode: "audio"},
			wantField: "mode",
		},
		{
			name:      "missing locator",
			req:       &HighlightRequest{Focus: "goals", DurationSeconds: 30, Count: 1},
			wantField: "locator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.videos.Select(videoA, nil)

			_, err := h.tasks.GenerateHighlights(context.Background(), tt.req)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Zero(t, h.producer.count("highlight"), "validation must run before any producer call")
			assert.Equal(t, store.StatusIdle, h.state.Status(store.TaskHighlight))
		})
	}
}

func TestGenerateHighlightsFallsBackToRecommendedFocus(t *testing.T) {
	h := newHarness(t)
	h.videos.Select(videoA, &store.VideoMeta{
		Focus:       []string{" sports ", "news"},
		Segments:    []store.Segment{{Start: 0, Text: "kickoff"}},
		DurationSec: 600,
	})
	h.producer.highlights = &store.HighlightBatch{Results: []store.HighlightItem{{HighlightURL: "h1"}}}

	batch, err := h.tasks.GenerateHighlights(context.Background(), &HighlightRequest{
		Locator: videoA, DurationSeconds: 30, Count: 2,
	})
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)

	params := h.producer.lastParams
	assert.Equal(t, "sports", params.Focus)
	assert.Equal(t, store.HighlightModeText, params.Mode)
	assert.Equal(t, "kickoff", params.FullText)
	assert.Equal(t, 600.0, params.TotalDuration)
	assert.Equal(t, store.StatusDone, h.state.Status(store.TaskHighlight))

	cached, ok := h.cache.GetHighlight(videoA)
	require.True(t, ok)
	assert.Equal(t, batch, cached)
	assert.NotSame(t, batch, cached)
}

func TestGenerateHighlightsFailure(t *testing.T) {
	h := newHarness(t)
	h.videos.Select(videoA, nil)
	h.producer.highlightErr = errBackend

	_, err := h.tasks.GenerateHighlights(context.Background(), &HighlightRequest{
		Locator: videoA, Focus: "goals", DurationSeconds: 30, Count: 1,
	})

	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, store.StatusError, h.state.Status(store.TaskHighlight))
	_, ok := h.cache.GetHighlight(videoA)
	assert.False(t, ok)
}

func TestSetupConversation(t *testing.T) {
	h := newHarness(t)
	h.videos.Select(videoA, nil)

	ready, err := h.tasks.SetupConversation(context.Background(), videoA)
	require.NoError(t, err)
	assert.True(t, ready)
	assert.True(t, h.state.IsReady(videoA))
	assert.Equal(t, store.StatusDone, h.state.Status(store.TaskRagSetup))
}

func TestSetupConversationFailureRevertsToIdle(t *testing.T) {
	h := newHarness(t)
	h.videos.Select(videoA, nil)
	h.producer.setupErr = errBackend

	ready, err := h.tasks.SetupConversation(context.Background(), videoA)
	require.NoError(t, err)
	assert.False(t, ready)
	assert.Equal(t, store.StatusIdle, h.state.Status(store.TaskRagSetup))
	assert.False(t, h.state.IsReady(videoA))
}

func TestSetupConversationRequiresLocator(t *testing.T) {
	h := newHarness(t)

	_, err := h.tasks.SetupConversation(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, h.producer.count("setup"))
}

func TestAskQuestionRejectedWhenNotReady(t *testing.T) {
	h := newHarness(t)
	h.videos.Select(videoA, nil)

	_, err := h.tasks.AskQuestion(context.Background(), videoA, "hello")

	assert.ErrorIs(t, err, ErrNotReady)
	assert.Empty(t, h.cache.GetSession(context.Background(), videoA))
	assert.Zero(t, h.producer.count("ask"))
}

func TestAskQuestionRejectsBlankQuestion(t *testing.T) {
	h := newHarness(t)
	h.videos.Select(videoA, nil)
	_, err := h.tasks.SetupConversation(context.Background(), videoA)
	require.NoError(t, err)

	_, err = h.tasks.AskQuestion(context.Background(), videoA, "  \t ")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, h.cache.GetSession(context.Background(), videoA))
}

func TestAskQuestionAppendsBothMessages(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.videos.Select(videoA, nil)
	_, err := h.tasks.SetupConversation(ctx, videoA)
	require.NoError(t, err)

	answeredAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	h.producer.answer = &producer.Answer{Text: "it is about graphs", AnsweredAt: answeredAt}

	reply, err := h.tasks.AskQuestion(ctx, videoA, "what is it about?")
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, answeredAt, reply.SentAt)

	session := h.cache.GetSession(ctx, videoA)
	require.Len(t, session, 2)
	assert.Equal(t, store.RoleUser, session[0].Role)
	assert.Equal(t, "what is it about?", session[0].Content)
	assert.Equal(t, store.RoleAssistant, session[1].Role)
	assert.False(t, h.state.Snapshot().Composing)
}

func TestAskQuestionDropsAnswerAfterNavigation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.videos.Select(videoA, nil)
	_, err := h.tasks.SetupConversation(ctx, videoA)
	require.NoError(t, err)
	h.producer.answer = &producer.Answer{Text: "late answer"}

	started, release := h.block()
	defer release()

	type result struct {
		reply *store.Message
		err   error
	}
	done := make(chan result, 1)
	go func() {
		reply, err := h.tasks.AskQuestion(ctx, videoA, "question")
		done <- result{reply, err}
	}()

	waitStarted(t, started)
	assert.True(t, h.state.Snapshot().Composing)

	h.videos.Select(videoB, nil)
	release()
	res := <-done

	require.NoError(t, res.err)
	assert.Nil(t, res.reply)

	sessionA := h.cache.GetSession(ctx, videoA)
	require.Len(t, sessionA, 1, "only the optimistic question stays")
	assert.Equal(t, store.RoleUser, sessionA[0].Role)
	assert.Empty(t, h.cache.GetSession(ctx, videoB))
}

func TestAskQuestionProducerFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.videos.Select(videoA, nil)
	_, err := h.tasks.SetupConversation(ctx, videoA)
	require.NoError(t, err)
	h.producer.askErr = errBackend

	_, err = h.tasks.AskQuestion(ctx, videoA, "question")

	var perr *ProducerError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "ask", perr.Op)
	assert.Len(t, h.cache.GetSession(ctx, videoA), 1)
	assert.False(t, h.state.Snapshot().Composing)
}
