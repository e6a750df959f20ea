package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishSubscribe(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	hub := &Hub{Rdb: rdb}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user := uuid.New()
	ps, err := hub.Subscribe(ctx, user)
	require.NoError(t, err)
	defer ps.Close()

	require.NoError(t, hub.Publish(ctx, user, EventMessageCreated, map[string]string{"content": "Bonjour"}))
	require.NoError(t, hub.Publish(ctx, uuid.New(), EventMessageCreated, map[string]string{"content": "autre"}))

	msg, err := ps.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, Channel(user), msg.Channel)
	ev, err := Decode(msg.Payload)
	require.NoError(t, err)
	assert.Equal(t, EventMessageCreated, ev.Type)
	assert.JSONEq(t, `{"content":"Bonjour"}`, string(ev.Data))
}

func TestHub_NilIsNoop(t *testing.T) {
	var hub *Hub
	assert.NoError(t, hub.Publish(context.Background(), uuid.New(), EventMessageRead, nil))
}
