package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// receive reads n events or fails after a timeout.
func receive(t *testing.T, ch <-chan Event, n int) []Event {
	t.Helper()

	got := make([]Event, 0, n)

	for len(got) < n {
		select {
		case event, ok := <-ch:
			require.True(t, ok, "channel closed after %d events", len(got))

			got = append(got, event)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d events", len(got), n)
		}
	}

	return got
}

// TestBus_FanOutPreservesOrder checks that every subscriber sees every event in publish order.
func TestBus_FanOutPreservesOrder(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus()
	first := bus.Subscribe(ctx)
	second := bus.Subscribe(ctx)

	require.Eventually(t, func() bool { return bus.Subscribers() == 2 }, time.Second, 10*time.Millisecond)

	const total = 500

	for i := range total {
		bus.Publish(Event{Kind: KindLog, Text: string(rune('a' + i%26)), ExitCode: i})
	}

	for _, ch := range []<-chan Event{first, second} {
		events := receive(t, ch, total)
		for i, event := range events {
			require.Equal(t, i, event.ExitCode)
			require.False(t, event.Time.IsZero())
		}
	}
}

// TestBus_SlowSubscriberDoesNotBlock ensures Publish returns while nobody reads.
func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus()
	ch := bus.Subscribe(ctx)

	done := make(chan struct{})

	go func() {
		for range 10_000 {
			bus.Publish(Event{Kind: KindDownloadProgress, Fraction: 0.5})
		}

		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on an idle subscriber")
	}

	require.Len(t, receive(t, ch, 3), 3)
}

// TestBus_UnsubscribeOnCancel verifies the channel closes and the subscriber is removed.
func TestBus_UnsubscribeOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	bus := NewBus()
	ch := bus.Subscribe(ctx)

	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool { return bus.Subscribers() == 0 }, time.Second, 10*time.Millisecond)

	// Publishing after every subscriber left is a no-op.
	bus.Publish(Event{Kind: KindExit})
}

// TestProgress_PublishesKind checks the progress adapter.
func TestProgress_PublishesKind(t *testing.T) {
	t.Parallel()

	var got []Event

	onProgress := Progress(PublisherFunc(func(e Event) { got = append(got, e) }), KindRuntimeProgress)
	onProgress(0.25)
	onProgress(1)

	require.Len(t, got, 2)
	require.Equal(t, KindRuntimeProgress, got[0].Kind)
	require.InDelta(t, 1.0, got[1].Fraction, 1e-9)
}
