package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct{ N int }
type pong struct{ N int }

func TestPublish_ReachesTypedSubscribers(t *testing.T) {
	Use(New())
	defer Use(nil)

	var pings, pongs []int
	unsubPing := Subscribe(func(_ context.Context, e ping) { pings = append(pings, e.N) })
	defer unsubPing()
	unsubPong := Subscribe(func(_ context.Context, e pong) { pongs = append(pongs, e.N) })
	defer unsubPong()

	Publish(context.Background(), ping{N: 1})
	Publish(context.Background(), pong{N: 2})
	Publish(context.Background(), ping{N: 3})

	require.Equal(t, []int{1, 3}, pings)
	require.Equal(t, []int{2}, pongs)
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	Use(New())
	defer Use(nil)

	var got int
	unsub := Subscribe(func(_ context.Context, e ping) { got += e.N })

	Publish(context.Background(), ping{N: 1})
	unsub()
	Publish(context.Background(), ping{N: 10})

	require.Equal(t, 1, got)
}

func TestPublish_NoBusIsNoop(t *testing.T) {
	Use(nil)
	require.NotPanics(t, func() {
		Publish(context.Background(), ping{N: 1})
	})
	require.NotPanics(t, func() { Subscribe(func(context.Context, ping) {})() })
}

func TestMultipleSubscribersSameType(t *testing.T) {
	Use(New())
	defer Use(nil)

	a, b := 0, 0
	defer Subscribe(func(_ context.Context, e ping) { a += e.N })()
	defer Subscribe(func(_ context.Context, e ping) { b += e.N })()

	Publish(context.Background(), ping{N: 5})
	require.Equal(t, 5, a)
	require.Equal(t, 5, b)
}
