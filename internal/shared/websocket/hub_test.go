package websocket

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestHub_PublishWithoutSubscribersIsNoop(t *testing.T) {
	hub := NewHub(4)
	require.Equal(t, 0, hub.Publish("a1", []byte("x")))
}

func TestHub_SubscribeIsIdempotent(t *testing.T) {
	hub := NewHub(4)
	c := hub.NewClient(nil, "a1", "c1")

	require.True(t, hub.Subscribe(c))
	require.True(t, hub.Subscribe(c))
	require.Equal(t, 1, hub.Subscribers("a1"))

	require.Equal(t, 1, hub.Publish("a1", []byte("bid")))
	require.Len(t, drain(c), 1, "duplicate subscribe must not duplicate delivery")
}

func TestHub_UnsubscribeTwiceIsSafe(t *testing.T) {
	hub := NewHub(4)
	c := hub.NewClient(nil, "a1", "c1")
	hub.Subscribe(c)

	hub.Unsubscribe(c)
	hub.Unsubscribe(c)

	require.Equal(t, 0, hub.Subscribers("a1"))
	_, ok := <-c.Send
	require.False(t, ok, "send channel is closed on teardown")
	require.False(t, hub.Subscribe(c), "a torn down client cannot come back")
	require.False(t, hub.SendTo(c, []byte("late")))
}

func TestHub_PublishIsScopedToAuction(t *testing.T) {
	hub := NewHub(4)
	a := hub.NewClient(nil, "a1", "c1")
	b := hub.NewClient(nil, "a2", "c2")
	hub.Subscribe(a)
	hub.Subscribe(b)

	hub.Publish("a1", []byte("only-a1"))

	require.Equal(t, [][]byte{[]byte("only-a1")}, drain(a))
	require.Empty(t, drain(b))
}

func TestHub_SlowSubscriberDoesNotAffectOthers(t *testing.T) {
	hub := NewHub(1)
	slow := hub.NewClient(nil, "a1", "slow")
	fast := hub.NewClient(nil, "a1", "fast")
	hub.Subscribe(slow)
	hub.Subscribe(fast)

	// fill the slow client's buffer
	require.True(t, hub.SendTo(slow, []byte("pending")))

	done := make(chan int)
	go func() { done <- hub.Publish("a1", []byte("event")) }()

	select {
	case delivered := <-done:
		require.Equal(t, 1, delivered)
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	require.Equal(t, [][]byte{[]byte("event")}, drain(fast))
	require.Equal(t, 1, hub.Subscribers("a1"), "slow subscriber is torn down")
	require.Equal(t, [][]byte{[]byte("pending")}, drain(slow))
}

func TestHub_PreservesPublishOrderPerSubscriber(t *testing.T) {
	hub := NewHub(64)
	c := hub.NewClient(nil, "a1", "c1")
	hub.Subscribe(c)

	var want [][]byte
	for i := range 20 {
		msg := []byte(fmt.Sprintf("%02d", i))
		want = append(want, msg)
		hub.Publish("a1", msg)
	}

	require.Equal(t, want, drain(c))
}

func TestHub_LateJoinerGetsNoBacklog(t *testing.T) {
	hub := NewHub(4)
	early := hub.NewClient(nil, "a1", "early")
	hub.Subscribe(early)
	hub.Publish("a1", []byte("first"))

	late := hub.NewClient(nil, "a1", "late")
	hub.Subscribe(late)
	hub.Publish("a1", []byte("second"))

	require.Equal(t, [][]byte{[]byte("first"), []byte("second")}, drain(early))
	require.Equal(t, [][]byte{[]byte("second")}, drain(late))
}

func TestHub_RunClosesSubscriptionsOnShutdown(t *testing.T) {
	hub := NewHub(4)
	c := hub.NewClient(nil, "a1", "c1")
	hub.Subscribe(c)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	require.Equal(t, 0, hub.Subscribers("a1"))
	_, ok := <-c.Send
	require.False(t, ok)
}
