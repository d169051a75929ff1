package services

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Content event types.
const (
	EventPostCreated    = "post.created"
	EventPostUpdated    = "post.updated"
	EventPostDeleted    = "post.deleted"
	EventCommentCreated = "comment.created"
	EventCommentDeleted = "comment.deleted"
)

const eventTypeAttribute = "event_type"

// Publisher is the slice of the message broker the services use.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Event describes a content change.
type Event struct {
	Type    string    `json:"type"`
	ID      string    `json:"id"`
	PostID  string    `json:"postId,omitempty"`
	ActorID string    `json:"actorId"`
	At      time.Time `json:"at"`
}

// Events publishes content events on one channel. A nil *Events drops them.
type Events struct {
	pub     Publisher
	channel string
}

func NewEvents(pub Publisher, channel string) *Events {
	return &Events{pub: pub, channel: channel}
}

// emit publishes best-effort; failures are logged and never reach the caller.
func (e *Events) emit(ctx context.Context, event Event) {
	if e == nil || e.pub == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("events: encode %s %s: %v", event.Type, event.ID, err)
		return
	}
	if _, err := e.pub.Publish(ctx, e.channel, data, map[string]string{eventTypeAttribute: event.Type}); err != nil {
		log.Printf("events: publish %s %s: %v", event.Type, event.ID, err)
	}
}
