package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscribers(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("game:g1")
	defer cancel()

	h.Publish(Event{Topic: "game:g1", Kind: "game", Doc: "payload"})

	select {
	case ev := <-ch:
		assert.Equal(t, "game", ev.Kind)
		assert.Equal(t, "payload", ev.Doc)
	case <-time.After(time.Second):
		t.Fatal("event never arrived")
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("series:s1")
	defer cancel()

	h.Publish(Event{Topic: "series:other", Kind: "series"})

	select {
	case <-ch:
		t.Fatal("received event for a different topic")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelClosesChannel(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("rankings")
	require.Equal(t, 1, h.Subscribers("rankings"))

	cancel()
	assert.Equal(t, 0, h.Subscribers("rankings"))
	_, open := <-ch
	assert.False(t, open)

	// Cancel is idempotent.
	cancel()
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe("game:g1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			h.Publish(Event{Topic: "game:g1", Kind: "game", Doc: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
