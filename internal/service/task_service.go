package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"ai-video-companion/internal/pkg/logger"
	"ai-video-companion/internal/repository/memory"
	"ai-video-companion/pkg/producer"
	"ai-video-companion/pkg/store"
	"ai-video-companion/pkg/video/state"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const taskModule = "TaskService"

var tracer = otel.Tracer("ai-video-companion/task-service")

// HighlightRequest carries the caller's highlight parameters. Focus,
// Segments and FullText fall back to the cached analysis when empty.
type HighlightRequest struct {
	Locator         string          `validate:"required"`
	Focus           string          `validate:"required"`
	DurationSeconds int             `validate:"gt=0"`
	Count           int             `validate:"gte=1"`
	Segments        []store.Segment `validate:"-"`
	FullText        string
	Mode            string `validate:"oneof=text voice"`
}

// ITaskService runs the producer operations for a video. Callers must not
// start an operation kind while its status is running.
type ITaskService interface {
	Analyze(ctx context.Context, locator string) (*store.AnalysisResult, error)
	GenerateHighlights(ctx context.Context, req *HighlightRequest) (*store.HighlightBatch, error)
	SetupConversation(ctx context.Context, locator string) (bool, error)
	AskQuestion(ctx context.Context, locator, question string) (*store.Message, error)
}

type taskService struct {
	producer producer.Producer
	cache    *memory.ResourceCache
	state    *state.Manager
	validate *validator.Validate
	logger   logger.ILogger
	now      func() time.Time
}

func NewTaskService(
	p producer.Producer,
	cache *memory.ResourceCache,
	stateManager *state.Manager,
	log logger.ILogger,
) ITaskService {
	return &taskService{
		producer: p,
		cache:    cache,
		state:    stateManager,
		validate: validator.New(),
		logger:   log,
		now:      time.Now,
	}
}

// call runs one producer request inside a span and tags the result with the
// locator it was issued for.
func call[T any](ctx context.Context, op, locator string, fn func(context.Context) (T, error)) Outcome[T] {
	ctx, span := tracer.Start(ctx, "producer."+op, trace.WithAttributes(attribute.String("video.locator", locator)))
	defer span.End()

	value, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return Outcome[T]{Locator: locator, Value: value, Err: err}
}

// Analyze merges the producer's result into the cached analysis of the
// locator it was started for, even when the user has moved on; the status
// change only shows while that locator is still active.
func (s *taskService) Analyze(ctx context.Context, locator string) (*store.AnalysisResult, error) {
	if locator == "" {
		return nil, &ValidationError{Field: "locator", Reason: "must not be empty"}
	}

	s.state.SetStatusIf(locator, store.TaskAnalyze, store.StatusRunning)

	outcome := call(ctx, "analyze", locator, func(ctx context.Context) (*store.AnalysisResult, error) {
		return s.producer.Analyze(ctx, locator)
	})
	if outcome.Err == nil && outcome.Value == nil {
		outcome.Err = errors.New("empty analysis response")
	}
	if outcome.Err != nil {
		s.logger.Error(taskModule, "Analyze failed", map[string]interface{}{"locator": outcome.Locator, "error": outcome.Err})
		s.state.SetStatusIf(outcome.Locator, store.TaskAnalyze, store.StatusError)
		return nil, &ProducerError{Op: "analyze", Locator: outcome.Locator, Err: outcome.Err}
	}

	merged := s.cache.MergeAnalysis(outcome.Locator, store.PatchFromResult(*outcome.Value))
	if !s.state.SetStatusIf(outcome.Locator, store.TaskAnalyze, store.StatusDone) {
		s.logger.Info(taskModule, "Analyze finished for inactive video", map[string]interface{}{"locator": outcome.Locator})
	}
	return merged, nil
}

func (s *taskService) GenerateHighlights(ctx context.Context, req *HighlightRequest) (*store.HighlightBatch, error) {
	params, err := s.highlightParams(req)
	if err != nil {
		return nil, err
	}

	s.state.SetStatusIf(params.Locator, store.TaskHighlight, store.StatusRunning)

	outcome := call(ctx, "highlight", params.Locator, func(ctx context.Context) (*store.HighlightBatch, error) {
		return s.producer.GenerateHighlights(ctx, params)
	})
	if outcome.Err == nil && outcome.Value == nil {
		outcome.Err = errors.New("empty highlight response")
	}
	if outcome.Err != nil {
		s.logger.Error(taskModule, "Highlight generation failed", map[string]interface{}{"locator": outcome.Locator, "error": outcome.Err})
		s.state.SetStatusIf(outcome.Locator, store.TaskHighlight, store.StatusError)
		return nil, &ProducerError{Op: "highlight", Locator: outcome.Locator, Err: outcome.Err}
	}

	s.cache.SaveHighlight(outcome.Locator, outcome.Value)
	s.state.SetStatusIf(outcome.Locator, store.TaskHighlight, store.StatusDone)
	s.logger.Info(taskModule, "Highlights generated", map[string]interface{}{
		"locator": outcome.Locator, "count": len(outcome.Value.Results), "mode": params.Mode,
	})
	return outcome.Value, nil
}

// highlightParams fills defaults from the cached analysis and validates the
// request. Nothing here touches the network.
func (s *taskService) highlightParams(req *HighlightRequest) (producer.HighlightParams, error) {
	if req == nil {
		return producer.HighlightParams{}, &ValidationError{Field: "request", Reason: "must not be nil"}
	}

	r := *req
	r.Focus = strings.TrimSpace(r.Focus)
	if r.Mode == "" {
		r.Mode = store.HighlightModeText
	}

	var totalDuration float64
	if cached, ok := s.cache.GetAnalysis(r.Locator); ok {
		if r.Focus == "" && len(cached.RecommendedFocus) > 0 {
			r.Focus = strings.TrimSpace(cached.RecommendedFocus[0])
		}
		if len(r.Segments) == 0 {
			r.Segments = cached.Segments
		}
		if r.FullText == "" {
			r.FullText = cached.FullText
		}
		totalDuration = cached.OriginalDurationSec
	}

	if err := s.validate.Struct(r); err != nil {
		return producer.HighlightParams{}, toValidationError(err)
	}

	return producer.HighlightParams{
		Locator:         r.Locator,
		Focus:           r.Focus,
		DurationSeconds: r.DurationSeconds,
		Count:           r.Count,
		Segments:        r.Segments,
		FullText:        r.FullText,
		Mode:            r.Mode,
		TotalDuration:   totalDuration,
	}, nil
}

// SetupConversation reports whether the conversation became ready. A
// producer failure is not an error: the status drops back to idle and the
// user may simply try again.
func (s *taskService) SetupConversation(ctx context.Context, locator string) (bool, error) {
	if locator == "" {
		return false, &ValidationError{Field: "locator", Reason: "select a video first"}
	}

	s.state.SetStatusIf(locator, store.TaskRagSetup, store.StatusRunning)

	outcome := call(ctx, "rag_setup", locator, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.producer.SetupConversation(ctx, locator)
	})
	if outcome.Err != nil {
		s.logger.Warn(taskModule, "Conversation setup failed, retry allowed", map[string]interface{}{
			"locator": outcome.Locator, "error": outcome.Err.Error(),
		})
		s.state.SetStatusIf(outcome.Locator, store.TaskRagSetup, store.StatusIdle)
		return false, nil
	}

	ready := s.state.SetReadyIf(outcome.Locator, true)
	s.state.SetStatusIf(outcome.Locator, store.TaskRagSetup, store.StatusDone)
	return ready, nil
}

// AskQuestion appends the question right away and the answer once it
// arrives. An answer for a video that is no longer active is dropped and
// both return values are nil.
func (s *taskService) AskQuestion(ctx context.Context, locator, question string) (*store.Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &ValidationError{Field: "question", Reason: "must not be empty"}
	}
	asked := store.Message{Role: store.RoleUser, Content: question, SentAt: s.now()}
	if !s.state.GuardReady(locator, func() {
		s.cache.AppendMessage(ctx, locator, asked)
	}) {
		return nil, ErrNotReady
	}
	s.state.SetComposingIf(locator, true)

	outcome := call(ctx, "rag_ask", locator, func(ctx context.Context) (*producer.Answer, error) {
		return s.producer.AskQuestion(ctx, locator, question)
	})
	s.state.SetComposingIf(outcome.Locator, false)

	if outcome.Err == nil && outcome.Value == nil {
		outcome.Err = errors.New("empty answer")
	}
	if outcome.Err != nil {
		s.logger.Error(taskModule, "Question failed", map[string]interface{}{"locator": outcome.Locator, "error": outcome.Err})
		return nil, &ProducerError{Op: "ask", Locator: outcome.Locator, Err: outcome.Err}
	}

	answeredAt := outcome.Value.AnsweredAt
	if answeredAt.IsZero() {
		answeredAt = s.now()
	}
	reply := store.Message{Role: store.RoleAssistant, Content: outcome.Value.Text, SentAt: answeredAt}

	appended := s.state.Guard(outcome.Locator, func() {
		s.cache.AppendMessage(ctx, outcome.Locator, reply)
	})
	if !appended {
		s.logger.Debug(taskModule, "Dropped answer for inactive video", map[string]interface{}{"locator": outcome.Locator})
		return nil, nil
	}
	return &reply, nil
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason := "failed " + fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return &ValidationError{Field: strings.ToLower(fe.Field()), Reason: reason}
	}
	return &ValidationError{Field: "request", Reason: err.Error()}
}
