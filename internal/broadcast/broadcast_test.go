package broadcast

import (
	"fmt"
	"testing"
	"time"

	"github.com/JaePyJs/CLMS-sub014/internal/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublish_PerResourceOrdering(t *testing.T) {
	t.Parallel()
	b := New(zap.NewNop(), 256)
	subA := b.Subscribe()
	subB := b.Subscribe()
	defer subA.Close()
	defer subB.Close()

	const perResource = 50
	for i := 0; i < perResource; i++ {
		for _, resource := range []string{"book-golang", "station-7"} {
			b.Publish(model.Event{
				Type:       model.EventCreated,
				ResourceID: resource,
				SessionUID: fmt.Sprintf("%s-%d", resource, i),
			})
		}
	}

	for _, sub := range []*Subscription{subA, subB} {
		seen := map[string]int{}
		for i := 0; i < 2*perResource; i++ {
			ev := <-sub.C()
			expected := fmt.Sprintf("%s-%d", ev.ResourceID, seen[ev.ResourceID])
			require.Equal(t, expected, ev.SessionUID)
			seen[ev.ResourceID]++
		}
		require.Equal(t, perResource, seen["book-golang"])
		require.Equal(t, perResource, seen["station-7"])
	}
}

func TestPublish_SlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()
	b := New(zap.NewNop(), 1)
	slow := b.Subscribe()
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			b.Publish(model.Event{Type: model.EventCreated, ResourceID: "station-7", SessionUID: fmt.Sprintf("s-%d", i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// Only the buffered event survived, and it is the earliest one.
	ev := <-slow.C()
	require.Equal(t, "s-0", ev.SessionUID)
	select {
	case extra, ok := <-slow.C():
		if ok {
			t.Fatalf("unexpected extra event %v", extra)
		}
	default:
	}
}

func TestSubscription_Close(t *testing.T) {
	t.Parallel()
	b := New(zap.NewNop(), 8)
	sub := b.Subscribe()
	require.Equal(t, 1, b.Subscribers())

	sub.Close()
	require.Equal(t, 0, b.Subscribers())
	_, ok := <-sub.C()
	require.False(t, ok)

	// Publishing after disconnect loses the event; reconnect gets no replay.
	b.Publish(model.Event{Type: model.EventReturned, ResourceID: "book-golang"})
	again := b.Subscribe()
	defer again.Close()
	select {
	case ev := <-again.C():
		t.Fatalf("unexpected replayed event %v", ev)
	default:
	}

	// Double close is safe.
	sub.Close()
}
