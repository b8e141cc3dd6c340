package events

import (
	"time"

	"ai-video-companion/pkg/video/state"
)

// TopicVideoState carries every surfaced change of the active video state.
const TopicVideoState = "video.state"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "VIDEO_STATUS").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

var changeEventTypes = map[state.ChangeType]string{
	state.ChangeSelected:  "VIDEO_SELECTED",
	state.ChangeStatus:    "VIDEO_STATUS",
	state.ChangeReady:     "VIDEO_READY",
	state.ChangeComposing: "VIDEO_COMPOSING",
}

// FromStateChange wraps a state transition as an Event. Each event type
// carries only the fields that apply to it, plus the change sequence.
func FromStateChange(c state.Change) Event {
	data := map[string]interface{}{
		"seq":     c.Seq,
		"locator": c.Locator,
	}
	switch c.Type {
	case state.ChangeStatus:
		data["task"] = string(c.Task)
		data["status"] = string(c.Status)
	case state.ChangeReady:
		data["ready"] = c.Ready
	case state.ChangeComposing:
		data["composing"] = c.Composing
	}
	return BaseEvent{
		Type:       changeEventTypes[c.Type],
		Data:       data,
		OccurredAt: c.At,
	}
}
