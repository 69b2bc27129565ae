package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSyncDeliversBeforeReturning(t *testing.T) {
	b := New()
	defer b.Close()

	var got Event
	unsub := b.Subscribe(AgentSleeping, func(e Event) { got = e })
	defer unsub()

	b.PublishSync(Event{Type: AgentSleeping, Data: "llama1"})
	assert.Equal(t, AgentSleeping, got.Type)
	assert.Equal(t, "llama1", got.Data)
}

func TestSubscribeAllReceivesEverything(t *testing.T) {
	b := New()
	defer b.Close()

	var mu sync.Mutex
	seen := map[EventType]int{}
	unsub := b.SubscribeAll(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		seen[e.Type]++
	})
	defer unsub()

	b.PublishSync(Event{Type: TurnStarted})
	b.PublishSync(Event{Type: TurnComplete})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, seen[TurnStarted])
	assert.Equal(t, 1, seen[TurnComplete])
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	defer b.Close()

	count := 0
	unsub := b.Subscribe(BreakRequested, func(Event) { count++ })
	b.PublishSync(Event{Type: BreakRequested})
	unsub()
	b.PublishSync(Event{Type: BreakRequested})

	assert.Equal(t, 1, count)
}

func TestPublishAsyncEventuallyDelivers(t *testing.T) {
	b := New()
	defer b.Close()

	done := make(chan struct{})
	b.Subscribe(SessionEnded, func(Event) { close(done) })
	b.Publish(Event{Type: SessionEnded})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestCloseMakesSubsequentCallsNoOps(t *testing.T) {
	b := New()
	require.NoError(t, b.Close())

	count := 0
	unsub := b.Subscribe(TurnStarted, func(Event) { count++ })
	unsub()
	b.PublishSync(Event{Type: TurnStarted})
	assert.Equal(t, 0, count)
}
