// Package producer defines the remote collaborators the video core talks to.
package producer

import (
	"context"
	"time"

	"ai-video-companion/pkg/store"
)

// HighlightParams is the payload of a highlight generation request.
type HighlightParams struct {
	Locator         string
	Focus           string
	DurationSeconds int
	Count           int
	Segments        []store.Segment
	FullText        string
	Mode            string
	TotalDuration   float64
}

// Answer is the reply to a conversational question.
type Answer struct {
	Text       string
	AnsweredAt time.Time
}

// ConversationHistory is the server-of-record transcript for a video.
type ConversationHistory struct {
	Found    bool
	Messages store.Conversation
}

// AnalysisLookup is the server-of-record analysis for a VideoKey.
type AnalysisLookup struct {
	Found    bool
	Analysis *store.AnalysisResult
}

// Producer runs the operations that create video artifacts.
type Producer interface {
	Analyze(ctx context.Context, locator string) (*store.AnalysisResult, error)
	GenerateHighlights(ctx context.Context, params HighlightParams) (*store.HighlightBatch, error)
	// SetupConversation is idempotent.
	SetupConversation(ctx context.Context, locator string) error
	AskQuestion(ctx context.Context, locator, question string) (*Answer, error)
}

// Authority answers for state the server already holds.
type Authority interface {
	FetchConversationHistory(ctx context.Context, locator string) (*ConversationHistory, error)
	FetchAnalysisByKey(ctx context.Context, key store.VideoKey) (*AnalysisLookup, error)
	ListVideos(ctx context.Context) ([]store.VideoSummary, error)
	DeleteVideo(ctx context.Context, fileName string) error
}
