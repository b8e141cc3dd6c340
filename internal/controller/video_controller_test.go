package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"ai-video-companion/internal/dto"
	"ai-video-companion/internal/pkg/logger"
	"ai-video-companion/internal/pkg/serverutils"
	"ai-video-companion/internal/repository/durable"
	"ai-video-companion/internal/repository/memory"
	"ai-video-companion/internal/service"
	"ai-video-companion/pkg/producer"
	"ai-video-companion/pkg/store"
	"ai-video-companion/pkg/video/state"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVideo = "https://bucket.example.com/uploads/user1/match.mp4"

type stubProducer struct {
	analyzeErr     error
	highlightCalls int
}

func (p *stubProducer) Analyze(ctx context.Context, locator string) (*store.AnalysisResult, error) {
	if p.analyzeErr != nil {
		return nil, p.analyzeErr
	}
	return &store.AnalysisResult{FullText: "transcript", RecommendedFocus: []string{"goals"}}, nil
}

func (p *stubProducer) GenerateHighlights(ctx context.Context, params producer.HighlightParams) (*store.HighlightBatch, error) {
	p.highlightCalls++
	return &store.HighlightBatch{Results: []store.HighlightItem{{HighlightURL: "clip.mp4", Duration: float64(params.DurationSeconds)}}}, nil
}

func (p *stubProducer) SetupConversation(ctx context.Context, locator string) error {
	return nil
}

func (p *stubProducer) AskQuestion(ctx context.Context, locator, question string) (*producer.Answer, error) {
	return &producer.Answer{Text: "answer to " + question}, nil
}

type stubAuthority struct{}

func (stubAuthority) FetchConversationHistory(ctx context.Context, locator string) (*producer.ConversationHistory, error) {
	return &producer.ConversationHistory{}, nil
}

func (stubAuthority) FetchAnalysisByKey(ctx context.Context, key store.VideoKey) (*producer.AnalysisLookup, error) {
	return &producer.AnalysisLookup{}, nil
}

func (stubAuthority) ListVideos(ctx context.Context) ([]store.VideoSummary, error) {
	return []store.VideoSummary{{FileName: "match.mp4", VideoURL: testVideo}}, nil
}

func (stubAuthority) DeleteVideo(ctx context.Context, fileName string) error {
	return nil
}

type envelope struct {
	Code    int             `json:"code"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T, p *stubProducer) *fiber.App {
	t.Helper()
	log := logger.NewNopLogger()
	cache := memory.NewResourceCache(durable.NewTier(durable.NewMemoryBackend(), durable.DefaultSessionTTL, log))
	stateManager := state.NewManager(log)

	ctrl := NewVideoController(
		service.NewVideoService(stubAuthority{}, cache, stateManager, log),
		service.NewTaskService(p, cache, stateManager, log),
		log,
	)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(StatusForError))
	ctrl.RegisterRoutes(app.Group("/api"))
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestSelectAndState(t *testing.T) {
	app := newTestApp(t, &stubProducer{})

	status, _ := do(t, app, http.MethodPost, "/api/video/v1/select", dto.SelectVideoRequest{VideoURL: testVideo})
	require.Equal(t, http.StatusOK, status)

	status, env := do(t, app, http.MethodGet, "/api/video/v1/state", nil)
	require.Equal(t, http.StatusOK, status)

	var snap state.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, testVideo, snap.ActiveLocator)
	assert.Equal(t, store.StatusIdle, snap.Statuses[store.TaskAnalyze])
}

func TestAskBeforeSetupIsConflict(t *testing.T) {
	app := newTestApp(t, &stubProducer{})
	do(t, app, http.MethodPost, "/api/video/v1/select", dto.SelectVideoRequest{VideoURL: testVideo})

	status, env := do(t, app, http.MethodPost, "/api/video/v1/rag/ask", dto.AskQuestionRequest{VideoURL: testVideo, Question: "why?"})

	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, env.Success)
}

func TestSetupThenAsk(t *testing.T) {
	app := newTestApp(t, &stubProducer{})
	do(t, app, http.MethodPost, "/api/video/v1/select", dto.SelectVideoRequest{VideoURL: testVideo})

	status, _ := do(t, app, http.MethodPost, "/api/video/v1/rag/setup", dto.VideoRequest{VideoURL: testVideo})
	require.Equal(t, http.StatusOK, status)

	status, env := do(t, app, http.MethodPost, "/api/video/v1/rag/ask", dto.AskQuestionRequest{VideoURL: testVideo, Question: "why?"})
	require.Equal(t, http.StatusOK, status)

	var res dto.AskQuestionResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotNil(t, res.Reply)
	assert.Equal(t, "answer to why?", res.Reply.Content)
	assert.False(t, res.Dropped)

	status, env = do(t, app, http.MethodGet, "/api/video/v1/rag/session?video_url="+url.QueryEscape(testVideo), nil)
	require.Equal(t, http.StatusOK, status)

	var session dto.SessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.True(t, session.Ready)
	assert.Len(t, session.Messages, 2)
}

func TestHighlightValidationIsBadRequest(t *testing.T) {
	p := &stubProducer{}
	app := newTestApp(t, p)
	do(t, app, http.MethodPost, "/api/video/v1/select", dto.SelectVideoRequest{VideoURL: testVideo})

	status, env := do(t, app, http.MethodPost, "/api/video/v1/highlights", dto.GenerateHighlightsRequest{
		VideoURL: testVideo, Focus: "goals", Duration: 0, Count: 1,
	})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Message, "durationseconds")
	assert.Zero(t, p.highlightCalls)
}

func TestAnalyzeThenHighlights(t *testing.T) {
	p := &stubProducer{}
	app := newTestApp(t, p)
	do(t, app, http.MethodPost, "/api/video/v1/select", dto.SelectVideoRequest{VideoURL: testVideo})

	status, _ := do(t, app, http.MethodPost, "/api/video/v1/analyze", dto.VideoRequest{VideoURL: testVideo})
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, app, http.MethodPost, "/api/video/v1/highlights", dto.GenerateHighlightsRequest{
		VideoURL: testVideo, Duration: 30, Count: 1,
	})
	require.Equal(t, http.StatusOK, status)

	status, env := do(t, app, http.MethodGet, "/api/video/v1/highlights?video_url="+url.QueryEscape(testVideo), nil)
	require.Equal(t, http.StatusOK, status)

	var res dto.HighlightsResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Found)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "clip.mp4", res.Results[0].HighlightURL)
}

func TestAnalyzeProducerFailureIsBadGateway(t *testing.T) {
	app := newTestApp(t, &stubProducer{analyzeErr: errors.New("model offline")})
	do(t, app, http.MethodPost, "/api/video/v1/select", dto.SelectVideoRequest{VideoURL: testVideo})

	status, env := do(t, app, http.MethodPost, "/api/video/v1/analyze", dto.VideoRequest{VideoURL: testVideo})

	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, env.Message, "model offline")
}

func TestQueryParamRequired(t *testing.T) {
	app := newTestApp(t, &stubProducer{})

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/video/v1/analysis"},
		{http.MethodGet, "/api/video/v1/highlights"},
		{http.MethodGet, "/api/video/v1/rag/session"},
		{http.MethodDelete, "/api/video/v1/cache"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			status, env := do(t, app, tt.method, tt.path, nil)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "video_url is required", env.Message)
		})
	}
}

func TestMissingBodyFieldIsBadRequest(t *testing.T) {
	app := newTestApp(t, &stubProducer{})

	status, env := do(t, app, http.MethodPost, "/api/video/v1/analyze", dto.VideoRequest{})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Message, "videourl")
}

func TestListVideos(t *testing.T) {
	app := newTestApp(t, &stubProducer{})

	status, env := do(t, app, http.MethodGet, "/api/video/v1/videos", nil)
	require.Equal(t, http.StatusOK, status)

	var videos []store.VideoSummary
	require.NoError(t, json.Unmarshal(env.Data, &videos))
	require.Len(t, videos, 1)
	assert.Equal(t, "match.mp4", videos[0].FileName)
}
