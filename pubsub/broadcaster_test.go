package pubsub_test

import (
	"testing"
	"time"

	"github.com/mickamy/kvtap/pubsub"
	"github.com/mickamy/kvtap/wire"
)

func recvID(t *testing.T, sub *pubsub.Subscription) uint32 {
	t.Helper()
	select {
	case resp := <-sub.C():
		if len(resp.Values) != 1 {
			t.Fatalf("expected the first message to carry exactly one value, got %+v", resp)
		}
		id, err := resp.Values[0].AsInt64()
		if err != nil {
			t.Fatalf("AsInt64: %v", err)
		}
		return uint32(id)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscription id")
		return 0
	}
}

func recvValue(t *testing.T, sub *pubsub.Subscription) *wire.CommandResponse {
	t.Helper()
	select {
	case resp := <-sub.C():
		return resp
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published value")
		return nil
	}
}

func TestPubSub(t *testing.T) {
	t.Parallel()

	b := pubsub.NewBroadcaster()
	const lobby = "lobby"

	sub1 := b.Subscribe(lobby)
	sub2 := b.Subscribe(lobby)

	id1 := recvID(t, sub1)
	id2 := recvID(t, sub2)
	if id1 == id2 {
		t.Fatalf("expected distinct subscription ids, got %d and %d", id1, id2)
	}

	hello := wire.OKValues([]wire.Value{wire.StringValue("hello")})
	b.Publish(lobby, &hello)

	res1 := recvValue(t, sub1)
	res2 := recvValue(t, sub2)
	if res1.Values[0].String != "hello" || res2.Values[0].String != "hello" {
		t.Fatalf("got %+v / %+v, want both to carry %q", res1, res2, "hello")
	}

	// Unsubscribing sub1 stops further deliveries to it.
	if got := b.Unsubscribe(lobby, id1); got != id1 {
		t.Fatalf("Unsubscribe returned %d, want %d", got, id1)
	}

	world := wire.OKValues([]wire.Value{wire.StringValue("world")})
	b.Publish(lobby, &world)

	select {
	case resp, ok := <-sub1.C():
		if ok {
			t.Fatalf("expected no further delivery to the unsubscribed subscriber, got %+v", resp)
		}
	case <-sub1.Done():
		// expected: the subscription was torn down.
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for sub1 to be torn down")
	}

	res2 = recvValue(t, sub2)
	if res2.Values[0].String != "world" {
		t.Fatalf("got %+v, want %q", res2, "world")
	}
}

func TestUnsubscribeUnknownIsNoOp(t *testing.T) {
	t.Parallel()

	b := pubsub.NewBroadcaster()
	if got := b.Unsubscribe("nonexistent", 999); got != 999 {
		t.Fatalf("got %d, want 999", got)
	}
}

func TestPublishWithoutSubscribersIsNoOp(t *testing.T) {
	t.Parallel()

	b := pubsub.NewBroadcaster()
	resp := wire.OKValues([]wire.Value{wire.StringValue("nobody listens")})
	b.Publish("empty-topic", &resp)
}
