package store

import "time"

// VideoKey is the storage-safe identity derived from a video locator.
type VideoKey string

// Segment is one timed transcript slice of a video.
type Segment struct {
	Start float64 `json:"start"`
	Text  string  `json:"text"`
}

// AnalysisResult is the analysis metadata known for a single video.
type AnalysisResult struct {
	OriginalDurationSec  float64   `json:"original_duration_sec"`
	Segments             []Segment `json:"segments"`
	FullText             string    `json:"full_text"`
	RecommendedFocus     []string  `json:"recommended_focus"`
	RecommendedDurations []float64 `json:"recommended_duration"`
	SummaryTitle         string    `json:"summary_title"`
	SummaryPoints        []string  `json:"summary_points"`
}

// Clone returns a deep copy of r. A nil receiver yields nil.
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Segments = append([]Segment(nil), r.Segments...)
	out.RecommendedFocus = append([]string(nil), r.RecommendedFocus...)
	out.RecommendedDurations = append([]float64(nil), r.RecommendedDurations...)
	out.SummaryPoints = append([]string(nil), r.SummaryPoints...)
	return &out
}

// HighlightItem is a single generated highlight clip.
type HighlightItem struct {
	HighlightURL string   `json:"highlight_url"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Duration     float64  `json:"duration"`
	TextScore    *float64 `json:"text_score,omitempty"`
	VoiceScore   *float64 `json:"voice_score,omitempty"`
	FinalScore   *float64 `json:"final_score,omitempty"`
	Reason       string   `json:"reason,omitempty"`
}

// HighlightBatch is the latest set of highlights generated for a video.
type HighlightBatch struct {
	Results []HighlightItem `json:"results"`
}

// Clone returns a deep copy of b, scores included. A nil receiver yields nil.
func (b *HighlightBatch) Clone() *HighlightBatch {
	if b == nil {
		return nil
	}
	out := &HighlightBatch{Results: make([]HighlightItem, len(b.Results))}
	for i, item := range b.Results {
		item.TextScore = cloneScore(item.TextScore)
		item.VoiceScore = cloneScore(item.VoiceScore)
		item.FinalScore = cloneScore(item.FinalScore)
		out.Results[i] = item
	}
	return out
}

func cloneScore(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a video conversation.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

// Conversation is the ordered Q&A transcript for a video.
type Conversation []Message

// VideoMeta is the out-of-band hint a list view already has for a video
// before any analyze round-trip happens.
type VideoMeta struct {
	Title         string    `json:"summary_title"`
	SummaryPoints []string  `json:"summary_points"`
	Segments      []Segment `json:"segments"`
	FullText      string    `json:"full_text"`
	Focus         []string  `json:"focus"`
	Durations     []float64 `json:"duration"`
	DurationSec   float64   `json:"duration_sec"`
}

// VideoSummary is a single entry of the authority's uploaded video list.
type VideoSummary struct {
	FileName   string    `json:"file_name"`
	VideoURL   string    `json:"video_url"`
	UploadedAt time.Time `json:"uploaded_at"`
	Status     string    `json:"status"`
	Meta       VideoMeta `json:"meta"`
}
