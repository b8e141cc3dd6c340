package service

import (
	"encoding/json"
	"time"

	"ai-video-companion/internal/pkg/logger"
	"ai-video-companion/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const publisherModule = "PublisherService"

// IPublisherService pushes state events onto the in-process bus.
type IPublisherService interface {
	Publish(event events.Event) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
	logger    logger.ILogger
}

func NewPublisherService(topicName string, publisher message.Publisher, log logger.ILogger) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
		logger:    log,
	}
}

type eventEnvelope struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (ps *publisherService) Publish(event events.Event) error {
	payload, err := json.Marshal(eventEnvelope{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return err
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	if err := ps.publisher.Publish(ps.topicName, msg); err != nil {
		ps.logger.Warn(publisherModule, "Failed to publish event", map[string]interface{}{
			"type": event.EventType(), "error": err.Error(),
		})
		return err
	}
	return nil
}
