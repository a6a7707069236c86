package realtime

import (
	"encoding/json"
	"testing"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	published []string
	handlers  map[uuid.UUID]func(string, []byte)
	cancelled int
	failPub   bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: map[uuid.UUID]func(string, []byte){}}
}

func (b *fakeBroker) PublishUserEvent(userID uuid.UUID, event string, payload []byte) error {
	if b.failPub {
		return errors.New("down")
	}
	b.published = append(b.published, event)
	if h, ok := b.handlers[userID]; ok {
		h(event, payload)
	}
	return nil
}

func (b *fakeBroker) SubscribeUser(userID uuid.UUID, handler func(string, []byte)) (func(), error) {
	b.handlers[userID] = handler
	return func() {
		b.cancelled++
		delete(b.handlers, userID)
	}, nil
}

func newTestClient(hub *Hub, userID uuid.UUID) *Client {
	return &Client{ID: uuid.New().String(), UserID: userID, hub: hub, send: make(chan WSMessage, 4)}
}

func TestHub_SendToUser_Local(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	user := uuid.New()
	a, b := newTestClient(hub, user), newTestClient(hub, uuid.New())
	hub.Register(a)
	hub.Register(b)

	hub.PublishToUser(user, EventCartUpdated, map[string]int{"items": 2})

	require.Len(t, a.send, 1)
	assert.Empty(t, b.send)
	msg := <-a.send
	assert.Equal(t, EventCartUpdated, msg.Event)
	var data map[string]int
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, 2, data["items"])
}

func TestHub_PublishThroughRedis(t *testing.T) {
	broker := newFakeBroker()
	hub := NewHub(nil, broker, broker)
	user := uuid.New()
	c := newTestClient(hub, user)
	hub.Register(c)

	hub.PublishToUser(user, EventDiscountApplied, map[string]string{"code": "SAVE10"})

	assert.Equal(t, []string{EventDiscountApplied}, broker.published)
	require.Len(t, c.send, 1, "delivered once via the subscription")

	hub.Unregister(c)
	assert.Equal(t, 1, broker.cancelled)
	assert.Equal(t, 0, hub.ConnectionCount(user))
}

func TestHub_RedisDownFallsBackToLocal(t *testing.T) {
	broker := newFakeBroker()
	broker.failPub = true
	hub := NewHub(nil, broker, broker)
	user := uuid.New()
	c := newTestClient(hub, user)
	hub.Register(c)

	hub.PublishToUser(user, EventDiscountRemoved, struct{}{})
	assert.Len(t, c.send, 1)
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	user := uuid.New()
	c := newTestClient(hub, user)
	hub.Register(c)
	for i := 0; i < 10; i++ {
		hub.SendToUser(user, EventCartUpdated, i)
	}
	assert.Len(t, c.send, cap(c.send))
}

func TestUserChannel(t *testing.T) {
	id := uuid.MustParse("7c0e6a55-5d9f-4e0b-9d1a-0a7f3c2b1e11")
	assert.Equal(t, "user:7c0e6a55-5d9f-4e0b-9d1a-0a7f3c2b1e11", UserChannel(id))
}
