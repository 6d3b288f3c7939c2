package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBroker_PublishReachesAllSubscribers(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx := context.Background()
	first := broker.Subscribe(ctx)
	second := broker.Subscribe(ctx)
	require.Equal(t, 2, broker.SubscriberCount())

	broker.Publish(TranscriptEvent, "hello")

	for _, sub := range []<-chan Event[string]{first, second} {
		select {
		case event := <-sub:
			require.Equal(t, TranscriptEvent, event.Type)
			require.Equal(t, "hello", event.Payload)
			require.False(t, event.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestBroker_PublishNeverBlocksOnFullSubscriber(t *testing.T) {
	broker := NewBrokerWithBuffer[int](1)
	defer broker.Close()

	sub := broker.Subscribe(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			broker.Publish(StatusEvent, i)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}

	// The buffered event is the first one; the rest were dropped.
	require.Equal(t, 0, (<-sub).Payload)
}

func TestBroker_ContextCancelRemovesSubscriber(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub := broker.Subscribe(ctx)
	require.Equal(t, 1, broker.SubscriberCount())

	cancel()
	require.Eventually(t, func() bool {
		return broker.SubscriberCount() == 0
	}, time.Second, time.Millisecond)

	_, open := <-sub
	require.False(t, open, "channel should be closed after cancel")
}

func TestBroker_CloseShutsDownSubscribers(t *testing.T) {
	broker := NewBroker[string]()
	sub := broker.Subscribe(context.Background())

	broker.Close()
	broker.Close() // idempotent

	_, open := <-sub
	require.False(t, open)

	// Publishing and subscribing after close are safe no-ops.
	broker.Publish(TranscriptEvent, "late")
	_, open = <-broker.Subscribe(context.Background())
	require.False(t, open)
}
