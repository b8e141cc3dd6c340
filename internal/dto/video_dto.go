package dto

import (
	"time"

	"ai-video-companion/pkg/store"
)

type SelectVideoRequest struct {
	VideoURL string           `json:"video_url"`
	Meta     *store.VideoMeta `json:"meta,omitempty"`
}

type VideoRequest struct {
	VideoURL string `json:"video_url" validate:"required"`
}

type RemoveVideoRequest struct {
	FileName string `json:"file_name" validate:"required"`
	VideoURL string `json:"video_url"`
}

// GenerateHighlightsRequest leaves focus, segments and full text optional;
// they are filled from the cached analysis when omitted.
type GenerateHighlightsRequest struct {
	VideoURL string          `json:"video_url" validate:"required"`
	Focus    string          `json:"focus"`
	Duration int             `json:"duration"`
	Count    int             `json:"count"`
	Mode     string          `json:"mode"`
	Segments []store.Segment `json:"segments,omitempty"`
	FullText string          `json:"full_text,omitempty"`
}

type AskQuestionRequest struct {
	VideoURL string `json:"video_url" validate:"required"`
	Question string `json:"question" validate:"required"`
}

type MessageResponse struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

type AskQuestionResponse struct {
	VideoURL string           `json:"video_url"`
	Reply    *MessageResponse `json:"reply"`
	// Dropped is set when the answer arrived after the user switched videos.
	Dropped bool `json:"dropped"`
}

type SessionResponse struct {
	VideoURL string            `json:"video_url"`
	VideoKey string            `json:"video_key"`
	Ready    bool              `json:"ready"`
	Messages []MessageResponse `json:"messages"`
}

type SetupConversationResponse struct {
	VideoURL string `json:"video_url"`
	Ready    bool   `json:"ready"`
}

type AnalysisResponse struct {
	VideoURL string                `json:"video_url"`
	Found    bool                  `json:"found"`
	Analysis *store.AnalysisResult `json:"analysis"`
}

type HighlightsResponse struct {
	VideoURL string                `json:"video_url"`
	Found    bool                  `json:"found"`
	Results  []store.HighlightItem `json:"results"`
}
