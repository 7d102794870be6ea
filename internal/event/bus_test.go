package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSyncDeliversInOrder(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var got []string
	b.Subscribe(ChunkReceived, func(e Event) {
		got = append(got, e.Data.(ChunkReceivedData).Delta)
	})

	for _, delta := range []string{"Hi", " there", "!"} {
		b.PublishSync(Event{Type: ChunkReceived, Data: ChunkReceivedData{Delta: delta}})
	}

	assert.Equal(t, []string{"Hi", " there", "!"}, got)
}

func TestBus_SubscribeFiltersByType(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var sessionEvents, messageEvents int
	b.Subscribe(SessionUpdated, func(Event) { sessionEvents++ })
	b.Subscribe(MessageUpdated, func(Event) { messageEvents++ })

	b.PublishSync(Event{Type: SessionUpdated})
	b.PublishSync(Event{Type: SessionUpdated})
	b.PublishSync(Event{Type: MessageUpdated})

	assert.Equal(t, 2, sessionEvents)
	assert.Equal(t, 1, messageEvents)
}

func TestBus_SubscribeAllSeesEverything(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var count int
	b.SubscribeAll(func(Event) { count++ })

	b.PublishSync(Event{Type: SessionCreated})
	b.PublishSync(Event{Type: GenerationFinished})

	assert.Equal(t, 2, count)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var count int
	unsub := b.Subscribe(ChunkReceived, func(Event) { count++ })

	b.PublishSync(Event{Type: ChunkReceived})
	unsub()
	b.PublishSync(Event{Type: ChunkReceived})

	assert.Equal(t, 1, count)
}

func TestBus_PublishAsync(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var mu sync.Mutex
	done := make(chan struct{})
	b.Subscribe(GenerationFinished, func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		close(done)
	})

	b.Publish(Event{Type: GenerationFinished, Data: GenerationFinishedData{Text: "ok"}})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async event was not delivered")
	}
}

func TestBus_ClosedBusDropsEvents(t *testing.T) {
	b := NewBus()

	var count int
	b.Subscribe(ChunkReceived, func(Event) { count++ })
	require.NoError(t, b.Close())

	b.PublishSync(Event{Type: ChunkReceived})
	assert.Zero(t, count)

	// Subscribing after close is a no-op.
	unsub := b.Subscribe(ChunkReceived, func(Event) {})
	unsub()
}
