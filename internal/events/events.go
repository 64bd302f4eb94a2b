package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/socialnote/apiserver/internal/mq"
)

// Kind names a social graph transition.
type Kind string

const (
	FriendRequestSent     Kind = "friend_request.sent"
	FriendRequestAccepted Kind = "friend_request.accepted"
	FriendRequestRejected Kind = "friend_request.rejected"
)

const attrKind = "kind"

// Event describes a committed friend-request transition.
type Event struct {
	Kind        Kind      `json:"kind"`
	RequesterID string    `json:"requester_id"`
	TargetID    string    `json:"target_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher announces committed transitions.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// MQPublisher sends events as JSON messages on one broker channel.
type MQPublisher struct {
	queue   *mq.MQ
	channel string
}

func NewMQPublisher(queue *mq.MQ, channel string) *MQPublisher {
	return &MQPublisher{queue: queue, channel: channel}
}

func (p *MQPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	attrs := map[string]string{
		attrKind:           string(event.Kind),
		mq.AttrContentType: "application/json",
	}
	if _, err := p.queue.Publish(ctx, p.channel, data, attrs); err != nil {
		return fmt.Errorf("publish %s: %w", event.Kind, err)
	}
	return nil
}

// Decode parses a broker message produced by MQPublisher.
func Decode(msg mq.Message) (Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return Event{}, fmt.Errorf("decode event %s: %w", msg.ID, err)
	}
	return event, nil
}
