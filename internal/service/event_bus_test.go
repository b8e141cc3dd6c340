package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"ai-video-companion/internal/pkg/logger"
	"ai-video-companion/pkg/events"
	"ai-video-companion/pkg/store"
	"ai-video-companion/pkg/video/state"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBroadcaster struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (r *recordingBroadcaster) Broadcast(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, data)
}

func (r *recordingBroadcaster) envelopes(t *testing.T) []eventEnvelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]eventEnvelope, 0, len(r.payloads))
	for _, p := range r.payloads {
		var env eventEnvelope
		require.NoError(t, json.Unmarshal(p, &env))
		out = append(out, env)
	}
	return out
}

func (r *recordingBroadcaster) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{BlockPublishUntilSubscriberAck: true}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })
	return pubSub
}

func TestStateChangesReachBroadcaster(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.NewNopLogger()
	pubSub := newPubSub(t)
	sink := &recordingBroadcaster{}

	consumer := NewConsumerService(pubSub, events.TopicVideoState, sink, log)
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService(events.TopicVideoState, pubSub, log)
	manager := state.NewManager(log)
	manager.OnChange(func(c state.Change) {
		require.NoError(t, publisher.Publish(events.FromStateChange(c)))
	})

	manager.Activate(videoA, nil)
	manager.SetStatusIf(videoA, store.TaskAnalyze, store.StatusRunning)
	manager.SetStatusIf(videoB, store.TaskAnalyze, store.StatusDone)

	require.Eventually(t, func() bool { return sink.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	got := sink.envelopes(t)
	assert.Equal(t, "VIDEO_SELECTED", got[0].Type)
	assert.Equal(t, videoA, got[0].Data["locator"])
	assert.Equal(t, "VIDEO_STATUS", got[1].Type)
	assert.Equal(t, string(store.TaskAnalyze), got[1].Data["task"])
	assert.Equal(t, string(store.StatusRunning), got[1].Data["status"])
	assert.NotContains(t, got[1].Data, "ready")
	assert.NotContains(t, got[1].Data, "composing")
	assert.Less(t, got[0].Data["seq"].(float64), got[1].Data["seq"].(float64))
}

func TestConsumerAcksMalformedPayload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := newPubSub(t)
	sink := &recordingBroadcaster{}
	consumer := NewConsumerService(pubSub, events.TopicVideoState, sink, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	require.NoError(t, pubSub.Publish(events.TopicVideoState, message.NewMessage(watermill.NewUUID(), []byte("not json"))))
	publisher := NewPublisherService(events.TopicVideoState, pubSub, logger.NewNopLogger())
	require.NoError(t, publisher.Publish(events.BaseEvent{Type: "VIDEO_READY", Data: map[string]interface{}{"ready": true}, OccurredAt: time.Now()}))

	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "VIDEO_READY", sink.envelopes(t)[0].Type)
}
