// Package realtime fans chat events out to connected clients through Redis pub/sub,
// so every API instance can serve any user's stream.
package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "realtime:user:"

// Event types pushed on the stream.
const (
	EventMessageCreated = "message.created"
	EventMessageRead    = "message.read"
)

// Event is one notification addressed to a user.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Hub publishes and subscribes per-user channels.
type Hub struct {
	Rdb *redis.Client
}

func Channel(userID uuid.UUID) string {
	return channelPrefix + userID.String()
}

// Publish sends an event to userID. A nil hub is a no-op.
func (h *Hub) Publish(ctx context.Context, userID uuid.UUID, eventType string, data interface{}) error {
	if h == nil || h.Rdb == nil {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	b, err := json.Marshal(Event{Type: eventType, Data: raw})
	if err != nil {
		return err
	}
	return h.Rdb.Publish(ctx, Channel(userID), b).Err()
}

// Subscribe opens the user's channel. The caller closes the returned PubSub.
func (h *Hub) Subscribe(ctx context.Context, userID uuid.UUID) (*redis.PubSub, error) {
	ps := h.Rdb.Subscribe(ctx, Channel(userID))
	// wait for the subscription confirmation so no event published right after is lost
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	return ps, nil
}

// Decode parses a pub/sub payload back into an Event.
func Decode(payload string) (Event, error) {
	var ev Event
	err := json.Unmarshal([]byte(payload), &ev)
	return ev, err
}
