package eventbus

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	b := NewWithConfig(2, 10)

	var mu sync.Mutex
	var got []string
	record := func(prefix string) Handler {
		return func(e Event) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, prefix+":"+string(e.Type))
		}
	}
	b.Subscribe(EventTypeAction, record("action"))
	b.SubscribeAll(record("all"))

	assert.True(t, b.Publish(Event{Type: EventTypeAction, Key: "hue:1"}))
	assert.True(t, b.Publish(Event{Type: EventTypeState, Key: "hue:1"}))

	b.Close(context.Background())
	assert.ElementsMatch(t, []string{"action:action", "all:action", "all:state"}, got)
}

func TestBusPreservesOrderPerKey(t *testing.T) {
	b := NewWithConfig(4, 1000)

	var mu sync.Mutex
	seen := make(map[string][]int)
	b.Subscribe(EventTypeState, func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		seen[e.Key] = append(seen[e.Key], e.Data["seq"].(int))
	})

	for i := 0; i < 100; i++ {
		for _, key := range []string{"a", "b", "c"} {
			require.True(t, b.Publish(Event{Type: EventTypeState, Key: key, Data: map[string]any{"seq": i}}))
		}
	}
	b.Close(context.Background())

	for _, key := range []string{"a", "b", "c"} {
		require.Len(t, seen[key], 100, key)
		for i, v := range seen[key] {
			assert.Equal(t, i, v, fmt.Sprintf("key %s", key))
		}
	}
}

func TestBusRecoversFromPanics(t *testing.T) {
	b := NewWithConfig(1, 10)

	done := make(chan struct{})
	b.Subscribe(EventTypeAction, func(e Event) {
		if e.Key == "boom" {
			panic("handler failure")
		}
		close(done)
	})

	b.Publish(Event{Type: EventTypeAction, Key: "boom"})
	b.Publish(Event{Type: EventTypeAction, Key: "ok"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
	b.Close(context.Background())
}

func TestBusDropsWhenFullOrClosed(t *testing.T) {
	b := NewWithConfig(1, 1)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	b.Subscribe(EventTypeState, func(Event) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})

	require.True(t, b.Publish(Event{Type: EventTypeState}))
	<-started
	// worker busy, queue holds one
	require.True(t, b.Publish(Event{Type: EventTypeState}))
	assert.False(t, b.Publish(Event{Type: EventTypeState}))

	close(release)
	b.Close(context.Background())
	assert.False(t, b.Publish(Event{Type: EventTypeState}))
	// closing twice is harmless
	b.Close(context.Background())
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	b := New()
	defer b.Close(context.Background())
	assert.True(t, b.Publish(Event{Type: EventTypeBridge}))
}
