package service

import (
	"context"
	"encoding/json"

	"ai-video-companion/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

const consumerModule = "ConsumerService"

// Broadcaster receives every state event accepted off the bus.
type Broadcaster interface {
	Broadcast(data []byte)
}

// IConsumerService forwards state events from the bus to live subscribers.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber  message.Subscriber
	topicName   string
	broadcaster Broadcaster
	logger      logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	broadcaster Broadcaster,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:  subscriber,
		topicName:   topicName,
		broadcaster: broadcaster,
		logger:      log,
	}
}

// Consume subscribes and processes messages in the background until ctx is
// cancelled or the subscriber is closed.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	// Malformed payloads are acked so they are not redelivered forever.
	var envelope eventEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		cs.logger.Error(consumerModule, "Failed to unmarshal event", map[string]interface{}{"message_id": msg.UUID, "error": err})
		msg.Ack()
		return
	}

	cs.broadcaster.Broadcast(msg.Payload)
	cs.logger.Debug(consumerModule, "Event forwarded", map[string]interface{}{"type": envelope.Type, "message_id": msg.UUID})
	msg.Ack()
}
