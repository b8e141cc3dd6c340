// Package httpapi talks to the video analysis backend over HTTP.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"ai-video-companion/pkg/producer"
	"ai-video-companion/pkg/store"
)

type Client struct {
	BaseURL           string
	VoiceHighlightURL string
	UserID            string
	HTTP              *http.Client
}

var (
	_ producer.Producer  = &Client{}
	_ producer.Authority = &Client{}
)

func NewClient(baseURL, voiceHighlightURL, userID string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:           baseURL,
		VoiceHighlightURL: voiceHighlightURL,
		UserID:            userID,
		HTTP: &http.Client{
			Timeout: timeout,
		},
	}
}

// --- Wire types (internal to this package) ---

type wireSegment struct {
	Start   float64 `json:"start"`
	Text    string  `json:"text"`
	Segment string  `json:"segment"`
}

type wireAnalysis struct {
	OriginalDurationSec float64       `json:"original_duration_sec"`
	Segments            []wireSegment `json:"segments"`
	FullText            string        `json:"full_text"`
	RecommendedFocus    []string      `json:"recommended_focus"`
	RecommendedDuration []float64     `json:"recommended_duration"`
	SummaryTitle        string        `json:"summary_title"`
	SummaryPoints       []string      `json:"summary_points"`
}

type analyzeResultResponse struct {
	Found bool `json:"found"`
	wireAnalysis
}

type askResponse struct {
	Answer   string `json:"answer"`
	TimeFull string `json:"time_full"`
}

type historyResponse struct {
	History []struct {
		Role     string `json:"role"`
		Message  string `json:"message"`
		TimeFull string `json:"time_full"`
	} `json:"history"`
}

type listVideosResponse struct {
	Videos []struct {
		FileName            string        `json:"file_name"`
		VideoURL            string        `json:"video_url"`
		UploadedAt          string        `json:"uploaded_at"`
		Status              string        `json:"status"`
		RecommendedFocus    []string      `json:"recommended_focus"`
		RecommendedDuration []float64     `json:"recommended_duration"`
		SummaryTitle        string        `json:"summary_title"`
		SummaryPoints       []string      `json:"summary_points"`
		Segments            []wireSegment `json:"segments"`
		DurationSec         float64       `json:"duration_sec"`
	} `json:"videos"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (w wireAnalysis) toResult() *store.AnalysisResult {
	return &store.AnalysisResult{
		OriginalDurationSec:  w.OriginalDurationSec,
		Segments:             toSegments(w.Segments),
		FullText:             w.FullText,
		RecommendedFocus:     w.RecommendedFocus,
		RecommendedDurations: w.RecommendedDuration,
		SummaryTitle:         w.SummaryTitle,
		SummaryPoints:        w.SummaryPoints,
	}
}

// toSegments accepts both "text" and the older "segment" field name.
func toSegments(in []wireSegment) []store.Segment {
	if in == nil {
		return nil
	}
	out := make([]store.Segment, 0, len(in))
	for _, s := range in {
		text := s.Text
		if text == "" {
			text = s.Segment
		}
		out = append(out, store.Segment{Start: s.Start, Text: text})
	}
	return out
}

// --- Producer ---

func (c *Client) Analyze(ctx context.Context, locator string) (*store.AnalysisResult, error) {
	var resp wireAnalysis
	if err := c.postForm(ctx, c.BaseURL+"/analyze", map[string]string{"url": locator}, &resp); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	return resp.toResult(), nil
}

func (c *Client) GenerateHighlights(ctx context.Context, params producer.HighlightParams) (*store.HighlightBatch, error) {
	segments := params.Segments
	if segments == nil {
		segments = []store.Segment{}
	}
	segmentsJSON, err := json.Marshal(segments)
	if err != nil {
		return nil, fmt.Errorf("marshal segments: %w", err)
	}

	endpoint := c.BaseURL + "/highlight"
	if params.Mode == store.HighlightModeVoice {
		endpoint = c.VoiceHighlightURL
	}

	fields := map[string]string{
		"focus":           params.Focus,
		"duration":        strconv.Itoa(params.DurationSeconds),
		"highlight_count": strconv.Itoa(params.Count),
		"url":             params.Locator,
		"total_duration":  strconv.FormatFloat(params.TotalDuration, 'f', -1, 64),
		"segments_json":   string(segmentsJSON),
		"full_text":       params.FullText,
	}

	var batch store.HighlightBatch
	if err := c.postForm(ctx, endpoint, fields, &batch); err != nil {
		return nil, fmt.Errorf("generate highlights: %w", err)
	}
	return &batch, nil
}

func (c *Client) SetupConversation(ctx context.Context, locator string) error {
	if err := c.postForm(ctx, c.BaseURL+"/rag/setup", map[string]string{"url": locator}, nil); err != nil {
		return fmt.Errorf("rag setup: %w", err)
	}
	return nil
}

func (c *Client) AskQuestion(ctx context.Context, locator, question string) (*producer.Answer, error) {
	fields := map[string]string{
		"question":  question,
		"video_url": locator,
		"user_id":   c.UserID,
	}

	var resp askResponse
	if err := c.postForm(ctx, c.BaseURL+"/rag/ask", fields, &resp); err != nil {
		return nil, fmt.Errorf("rag ask: %w", err)
	}
	if resp.Answer == "" {
		return nil, fmt.Errorf("rag ask: empty answer")
	}
	return &producer.Answer{Text: resp.Answer, AnsweredAt: parseTime(resp.TimeFull)}, nil
}

// --- Authority ---

func (c *Client) FetchConversationHistory(ctx context.Context, locator string) (*producer.ConversationHistory, error) {
	var resp historyResponse
	endpoint := c.BaseURL + "/rag/history?video_url=" + url.QueryEscape(locator)
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("rag history: %w", err)
	}

	messages := make(store.Conversation, 0, len(resp.History))
	for _, m := range resp.History {
		messages = append(messages, store.Message{
			Role:    m.Role,
			Content: m.Message,
			SentAt:  parseTime(m.TimeFull),
		})
	}
	return &producer.ConversationHistory{Found: len(messages) > 0, Messages: messages}, nil
}

func (c *Client) FetchAnalysisByKey(ctx context.Context, key store.VideoKey) (*producer.AnalysisLookup, error) {
	var resp analyzeResultResponse
	endpoint := c.BaseURL + "/analyze_result?video_key=" + url.QueryEscape(string(key))
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("analyze result: %w", err)
	}
	if !resp.Found {
		return &producer.AnalysisLookup{Found: false}, nil
	}
	return &producer.AnalysisLookup{Found: true, Analysis: resp.wireAnalysis.toResult()}, nil
}

func (c *Client) ListVideos(ctx context.Context) ([]store.VideoSummary, error) {
	var resp listVideosResponse
	endpoint := c.BaseURL + "/list_videos?user_id=" + url.QueryEscape(c.UserID)
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	videos := make([]store.VideoSummary, 0, len(resp.Videos))
	for _, v := range resp.Videos {
		videos = append(videos, store.VideoSummary{
			FileName:   v.FileName,
			VideoURL:   v.VideoURL,
			UploadedAt: parseTime(v.UploadedAt),
			Status:     v.Status,
			Meta: store.VideoMeta{
				Title:         v.SummaryTitle,
				SummaryPoints: v.SummaryPoints,
				Segments:      toSegments(v.Segments),
				Focus:         v.RecommendedFocus,
				Durations:     v.RecommendedDuration,
				DurationSec:   v.DurationSec,
			},
		})
	}
	return videos, nil
}

func (c *Client) DeleteVideo(ctx context.Context, fileName string) error {
	fields := map[string]string{"user_id": c.UserID, "file_name": fileName}
	if err := c.sendForm(ctx, http.MethodDelete, c.BaseURL+"/delete_video", fields, nil); err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	return nil
}

// --- Transport ---

func (c *Client) postForm(ctx context.Context, endpoint string, fields map[string]string, out interface{}) error {
	return c.sendForm(ctx, http.MethodPost, endpoint, fields, out)
}

func (c *Client) sendForm(ctx context.Context, method, endpoint string, fields map[string]string, out interface{}) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return fmt.Errorf("write field %s: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, &body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiErr errorResponse
	if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("server error: %s", apiErr.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// parseTime accepts RFC 3339 timestamps and falls back to now.
func parseTime(s string) time.Time {
	if s != "" {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
	}
	return time.Now()
}
