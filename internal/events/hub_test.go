package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcast(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()
	require.Equal(t, 2, h.Subscribers())

	h.Publish("hello")
	assert.Equal(t, "hello", <-a)
	assert.Equal(t, "hello", <-b)

	h.Unsubscribe(a)
	h.Unsubscribe(a)
	assert.Equal(t, 1, h.Subscribers())
	_, open := <-a
	assert.False(t, open)
}

func TestHubDropsForSlowSubscribers(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	for i := 0; i < subscriberBuffer+3; i++ {
		h.Publish("x")
	}
	assert.Len(t, ch, subscriberBuffer)
	assert.Equal(t, int64(3), h.Dropped())
}

func TestNilHubPublish(t *testing.T) {
	var h *Hub
	assert.NotPanics(t, func() { h.Publish("x") })
}

func TestMakeEvent(t *testing.T) {
	raw := MakeEvent(TypeCycleCompleted, "c-1", map[string]int{"messages": 2})

	var e Event
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.Equal(t, TypeCycleCompleted, e.Type)
	assert.Equal(t, 1, e.Version)
	assert.Equal(t, "c-1", e.CycleID)
	assert.JSONEq(t, `{"messages":2}`, string(e.Data))
	assert.False(t, e.At.IsZero())
}
