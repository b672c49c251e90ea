package events

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fairswap/core/types"
)

func TestFeedDeliversToAllSubscribers(t *testing.T) {
	feed := NewFeed(4)
	a, cancelA := feed.Subscribe()
	b, cancelB := feed.Subscribe()
	defer cancelB()

	feed.Publish(Envelope{Height: 1, Event: &types.Event{Type: "x"}})
	require.Equal(t, uint64(1), (<-a).Height)
	require.Equal(t, uint64(1), (<-b).Height)

	cancelA()
	cancelA()
	_, open := <-a
	require.False(t, open)
	require.Equal(t, 1, feed.Subscribers())
}

func TestFeedDropsWhenSubscriberIsFull(t *testing.T) {
	feed := NewFeed(1)
	ch, cancel := feed.Subscribe()
	defer cancel()
	require.Zero(t, feed.Publish(Envelope{Height: 1}))
	require.Equal(t, 1, feed.Publish(Envelope{Height: 2}))
	require.Equal(t, uint64(1), (<-ch).Height)
	select {
	case env := <-ch:
		t.Fatalf("unexpected envelope %d", env.Height)
	default:
	}
}
