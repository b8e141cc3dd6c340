package service

import (
	"context"

	"ai-video-companion/internal/pkg/logger"
	"ai-video-companion/internal/repository/memory"
	"ai-video-companion/pkg/producer"
	"ai-video-companion/pkg/store"
	"ai-video-companion/pkg/video/state"
	"ai-video-companion/pkg/videokey"
)

const videoModule = "VideoService"

// IVideoService owns the active video selection and the lifecycle of its
// cached artifacts.
type IVideoService interface {
	Select(locator string, meta *store.VideoMeta)
	Delete(ctx context.Context, locator string)
	RemoveVideo(ctx context.Context, fileName, locator string) error
	RestoreFromAuthority(ctx context.Context, locator string) (*store.AnalysisResult, error)
	RestoreConversation(ctx context.Context, locator string) (store.Conversation, error)
	ListVideos(ctx context.Context) ([]store.VideoSummary, error)

	Snapshot() state.Snapshot
	Analysis(locator string) (*store.AnalysisResult, bool)
	Highlights(locator string) (*store.HighlightBatch, bool)
	Session(ctx context.Context, locator string) store.Conversation
}

type videoService struct {
	authority producer.Authority
	cache     *memory.ResourceCache
	state     *state.Manager
	logger    logger.ILogger
}

func NewVideoService(
	authority producer.Authority,
	cache *memory.ResourceCache,
	stateManager *state.Manager,
	log logger.ILogger,
) IVideoService {
	return &videoService{
		authority: authority,
		cache:     cache,
		state:     stateManager,
		logger:    log,
	}
}

// Select activates locator. A metadata hint is merged into the cached
// analysis right away so recommended focus and durations are available
// before any analyze call.
func (s *videoService) Select(locator string, meta *store.VideoMeta) {
	s.state.Activate(locator, meta)

	if locator == "" || meta == nil {
		return
	}
	patch := store.PatchFromMeta(*meta)
	if patch.IsEmpty() {
		return
	}
	s.cache.MergeAnalysis(locator, patch)
	s.logger.Debug(videoModule, "Analysis primed from metadata", map[string]interface{}{"locator": locator})
}

// Delete clears the selection when locator was the active video and then
// removes every cached artifact of it. Both happen under the state lock, so
// a late answer for locator cannot be written back. Deleting twice is
// harmless.
func (s *videoService) Delete(ctx context.Context, locator string) {
	s.state.Retire(locator, func() {
		s.cache.Clear(ctx, locator)
	})
	s.logger.Info(videoModule, "Video data cleared", map[string]interface{}{
		"locator": locator, "key": videokey.Derive(locator),
	})
}

// RemoveVideo deletes the upload on the server and then drops local state.
// Local state is kept when the server refuses.
func (s *videoService) RemoveVideo(ctx context.Context, fileName, locator string) error {
	if fileName == "" {
		return &ValidationError{Field: "file_name", Reason: "must not be empty"}
	}
	if err := s.authority.DeleteVideo(ctx, fileName); err != nil {
		s.logger.Error(videoModule, "Remote delete failed", map[string]interface{}{"file_name": fileName, "error": err})
		return &ProducerError{Op: "delete_video", Locator: locator, Err: err}
	}
	s.Delete(ctx, locator)
	return nil
}

// RestoreFromAuthority fills an empty analysis entry from the server. A
// "not found" answer leaves the cache empty and is not an error.
func (s *videoService) RestoreFromAuthority(ctx context.Context, locator string) (*store.AnalysisResult, error) {
	if locator == "" {
		return nil, &ValidationError{Field: "locator", Reason: "must not be empty"}
	}
	if cached, ok := s.cache.GetAnalysis(locator); ok {
		return cached, nil
	}

	key := videokey.Derive(locator)
	lookup, err := s.authority.FetchAnalysisByKey(ctx, key)
	if err != nil {
		s.logger.Error(videoModule, "Analysis lookup failed", map[string]interface{}{"locator": locator, "error": err})
		return nil, &ProducerError{Op: "analyze_result", Locator: locator, Err: err}
	}
	if lookup == nil || !lookup.Found || lookup.Analysis == nil {
		s.logger.Info(videoModule, "No stored analysis on server", map[string]interface{}{"locator": locator, "key": key})
		return nil, nil
	}

	restored := s.cache.MergeAnalysis(locator, store.PatchFromResult(*lookup.Analysis))
	s.logger.Info(videoModule, "Analysis restored from server", map[string]interface{}{"locator": locator})
	return restored, nil
}

// RestoreConversation loads the transcript from the local tiers or, when
// both are empty, from the server. A non-empty transcript marks the
// conversation ready for the active video.
func (s *videoService) RestoreConversation(ctx context.Context, locator string) (store.Conversation, error) {
	if locator == "" {
		return nil, &ValidationError{Field: "locator", Reason: "must not be empty"}
	}

	if local := s.cache.GetSession(ctx, locator); len(local) > 0 {
		s.state.SetReadyIf(locator, true)
		return local, nil
	}

	history, err := s.authority.FetchConversationHistory(ctx, locator)
	if err != nil {
		s.logger.Error(videoModule, "Conversation history fetch failed", map[string]interface{}{"locator": locator, "error": err})
		return nil, &ProducerError{Op: "rag_history", Locator: locator, Err: err}
	}
	if history == nil || !history.Found || len(history.Messages) == 0 {
		s.state.SetReadyIf(locator, false)
		return store.Conversation{}, nil
	}

	s.cache.SaveSession(ctx, locator, history.Messages)
	s.state.SetReadyIf(locator, true)
	return s.cache.GetSession(ctx, locator), nil
}

func (s *videoService) ListVideos(ctx context.Context) ([]store.VideoSummary, error) {
	videos, err := s.authority.ListVideos(ctx)
	if err != nil {
		s.logger.Error(videoModule, "Listing videos failed", map[string]interface{}{"error": err})
		return nil, &ProducerError{Op: "list_videos", Err: err}
	}
	return videos, nil
}

func (s *videoService) Snapshot() state.Snapshot {
	return s.state.Snapshot()
}

func (s *videoService) Analysis(locator string) (*store.AnalysisResult, bool) {
	return s.cache.GetAnalysis(locator)
}

func (s *videoService) Highlights(locator string) (*store.HighlightBatch, bool) {
	return s.cache.GetHighlight(locator)
}

func (s *videoService) Session(ctx context.Context, locator string) store.Conversation {
	return s.cache.GetSession(ctx, locator)
}
