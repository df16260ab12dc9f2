package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe()
	defer unsub()

	bus.Publish(domain.ProgressEvent{Stage: domain.StageLoading, Progress: 0})
	bus.Publish(domain.ProgressEvent{Stage: domain.StageComplete, Progress: 100})

	first := <-ch
	progress, ok := first.(domain.ProgressEvent)
	require.True(t, ok)
	assert.Equal(t, domain.StageLoading, progress.Stage)
	assert.Equal(t, "progress", first.EventName())

	second := <-ch
	progress, ok = second.(domain.ProgressEvent)
	require.True(t, ok)
	assert.Equal(t, domain.StageComplete, progress.Stage)
	assert.Equal(t, 100, progress.Progress)
}

func TestBus_SlowConsumerDoesNotBlock(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe()
	defer unsub()

	// Publish more events than the buffer holds; the overflow is
	// dropped and Publish returns regardless.
	for i := 0; i < DefaultBuffer*2; i++ {
		bus.Publish(domain.ProgressEvent{Stage: domain.StageGenerating, Progress: i})
	}

	assert.Len(t, ch, DefaultBuffer)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe()
	require.Equal(t, 1, bus.Subscribers())

	unsub()
	assert.Equal(t, 0, bus.Subscribers())

	// Channel is closed after unsubscribe.
	_, open := <-ch
	assert.False(t, open)

	// Unsubscribing twice is harmless.
	unsub()
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus()
	ch1, unsub1 := bus.Subscribe()
	ch2, unsub2 := bus.Subscribe()
	defer unsub1()
	defer unsub2()

	bus.Publish(domain.ProviderChangedEvent{Provider: "mock"})

	e1 := <-ch1
	e2 := <-ch2
	assert.Equal(t, "provider-changed", e1.EventName())
	assert.Equal(t, "provider-changed", e2.EventName())
}
