package mapper

import (
	"ai-video-companion/internal/dto"
	"ai-video-companion/internal/service"
	"ai-video-companion/pkg/store"
	"ai-video-companion/pkg/videokey"
)

type VideoMapper struct{}

func NewVideoMapper() *VideoMapper {
	return &VideoMapper{}
}

func (m *VideoMapper) ToHighlightRequest(req *dto.GenerateHighlightsRequest) *service.HighlightRequest {
	if req == nil {
		return nil
	}
	return &service.HighlightRequest{
		Locator:         req.VideoURL,
		Focus:           req.Focus,
		DurationSeconds: req.Duration,
		Count:           req.Count,
		Segments:        req.Segments,
		FullText:        req.FullText,
		Mode:            req.Mode,
	}
}

func (m *VideoMapper) ToMessageResponse(msg *store.Message) *dto.MessageResponse {
	if msg == nil {
		return nil
	}
	return &dto.MessageResponse{
		Role:    msg.Role,
		Content: msg.Content,
		SentAt:  msg.SentAt,
	}
}

func (m *VideoMapper) ToSessionResponse(locator string, ready bool, conv store.Conversation) *dto.SessionResponse {
	messages := make([]dto.MessageResponse, 0, len(conv))
	for i := range conv {
		messages = append(messages, *m.ToMessageResponse(&conv[i]))
	}
	return &dto.SessionResponse{
		VideoURL: locator,
		VideoKey: string(videokey.Derive(locator)),
		Ready:    ready,
		Messages: messages,
	}
}

func (m *VideoMapper) ToHighlightsResponse(locator string, batch *store.HighlightBatch) *dto.HighlightsResponse {
	res := &dto.HighlightsResponse{VideoURL: locator, Results: []store.HighlightItem{}}
	if batch != nil {
		res.Found = true
		res.Results = batch.Results
	}
	return res
}
