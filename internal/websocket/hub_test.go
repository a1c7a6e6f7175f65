package websocket

import (
	"testing"
	"time"

	"docuchat-be/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

func newTestClient(h *Hub, userID uuid.UUID, buffer int) *Client {
	return &Client{Hub: h, UserID: userID, Send: make(chan []byte, buffer)}
}

func registerAndWait(t *testing.T, h *Hub, c *Client) {
	t.Helper()
	h.register <- c
	assert.Eventually(t, func() bool { return h.IsConnected(c.UserID) }, time.Second, 5*time.Millisecond)
}

func TestHubDropsSlowClientWithoutPanic(t *testing.T) {
	h := NewHub(nil, nopLogger{})
	go h.Run()

	userID := uuid.New()
	client := newTestClient(h, userID, 1)
	registerAndWait(t, h, client)

	// Fill the buffer so every further send hits the slow path.
	client.Send <- []byte("backlog")

	// Repeated sends to a wedged client must not close Send twice or block;
	// only the hub loop may close the channel.
	for i := 0; i < 5; i++ {
		h.SendEvent(userID, Event{Type: "ingestLog", Data: "line"})
	}

	assert.Eventually(t, func() bool { return !h.IsConnected(userID) }, time.Second, 5*time.Millisecond)

	// Drain: the backlog frame, then the single close.
	<-client.Send
	_, open := <-client.Send
	assert.False(t, open)
}

func TestHubBroadcastSurvivesMultipleSlowClients(t *testing.T) {
	h := NewHub(nil, nopLogger{})
	go h.Run()

	a := newTestClient(h, uuid.New(), 1)
	b := newTestClient(h, uuid.New(), 1)
	registerAndWait(t, h, a)
	registerAndWait(t, h, b)

	a.Send <- []byte("backlog")
	b.Send <- []byte("backlog")

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Broadcast(model.Notification{Title: "hello"})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on slow clients")
	}

	assert.Eventually(t, func() bool {
		return !h.IsConnected(a.UserID) && !h.IsConnected(b.UserID)
	}, time.Second, 5*time.Millisecond)
}

func TestHubDisconnectListenerFiresOnLastClient(t *testing.T) {
	h := NewHub(nil, nopLogger{})

	gone := make(chan uuid.UUID, 1)
	h.SetDisconnectListener(func(userID uuid.UUID) {
		gone <- userID
	})
	go h.Run()

	userID := uuid.New()
	first := newTestClient(h, userID, 1)
	second := newTestClient(h, userID, 1)
	registerAndWait(t, h, first)
	registerAndWait(t, h, second)

	h.unregister <- first
	select {
	case <-gone:
		t.Fatal("listener fired while a connection remained")
	case <-time.After(50 * time.Millisecond):
	}

	h.unregister <- second
	select {
	case got := <-gone:
		assert.Equal(t, userID, got)
	case <-time.After(time.Second):
		t.Fatal("listener did not fire for the last connection")
	}
}
