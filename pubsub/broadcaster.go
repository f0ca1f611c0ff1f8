// Package pubsub implements the topic broadcaster kvtap's Publish,
// Subscribe, and Unsubscribe commands operate on.
package pubsub

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/mickamy/kvtap/wire"
)

// BroadcastCapacity bounds how many unread messages a subscription will
// buffer before further deliveries to it are dropped.
const BroadcastCapacity = 128

// subscription is the delivery side of one Subscribe call. send is safe to
// call concurrently with close: once closed, sends fall through to done
// instead of blocking forever or panicking on a closed channel.
type subscription struct {
	id        uint32
	ch        chan *wire.CommandResponse
	done      chan struct{}
	closeOnce sync.Once
}

func newSubscription(id uint32, capacity int) *subscription {
	return &subscription{
		id:   id,
		ch:   make(chan *wire.CommandResponse, capacity),
		done: make(chan struct{}),
	}
}

// send is non-blocking: a subscriber whose queue is full or whose
// subscription has been torn down never backpressures the publisher. The
// drop is logged, never surfaced to the caller, matching the "publisher is
// never blocked" contract.
func (s *subscription) send(v *wire.CommandResponse) {
	select {
	case s.ch <- v:
	case <-s.done:
	default:
		log.Printf("pubsub: dropping message for subscription %d: queue full", s.id)
	}
}

func (s *subscription) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Subscription is the handle a caller holds after Broadcaster.Subscribe.
// Messages arrive on C; Done closes once the subscription is torn down by
// Unsubscribe, so a forwarding goroutine can select on both.
type Subscription struct {
	ID  uint32
	sub *subscription
}

// C returns the channel messages published to this subscription's topic
// arrive on. The first value delivered is always this subscription's own
// ID, wrapped as a CommandResponse, so the caller learns it without a
// separate round trip.
func (s *Subscription) C() <-chan *wire.CommandResponse {
	return s.sub.ch
}

// Done closes when the subscription has been torn down via Unsubscribe.
func (s *Subscription) Done() <-chan struct{} {
	return s.sub.done
}

// Broadcaster fans CommandResponse values out to every live subscription
// on a topic.
type Broadcaster struct {
	mu            sync.Mutex
	topics        map[string]map[uint32]struct{}
	subscriptions map[uint32]*subscription
	nextID        uint32
}

// NewBroadcaster returns an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		topics:        make(map[string]map[uint32]struct{}),
		subscriptions: make(map[uint32]*subscription),
	}
}

// Subscribe registers a new subscription on topic and returns its handle.
// The subscription's own ID is queued as its first message before the
// subscription is registered on topic, so no Publish can overtake it; this
// is the "learn your subscription ID over the same stream" contract the
// client relies on.
func (b *Broadcaster) Subscribe(topic string) *Subscription {
	id := atomic.AddUint32(&b.nextID, 1)
	sub := newSubscription(id, BroadcastCapacity)

	// The queue is new and empty, so this send neither blocks nor drops.
	resp := wire.OKValues([]wire.Value{wire.Int64Value(int64(id))})
	sub.send(&resp)

	b.mu.Lock()
	set, ok := b.topics[topic]
	if !ok {
		set = make(map[uint32]struct{})
		b.topics[topic] = set
	}
	set[id] = struct{}{}
	b.subscriptions[id] = sub
	b.mu.Unlock()

	return &Subscription{ID: id, sub: sub}
}

// Unsubscribe removes id from topic and tears down its subscription. It is
// the single authority that closes a subscription: once this returns, no
// further Publish can deliver to id. Unsubscribing an unknown id is a
// no-op.
func (b *Broadcaster) Unsubscribe(topic string, id uint32) uint32 {
	b.mu.Lock()
	if set, ok := b.topics[topic]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(b.topics, topic)
		}
	}
	sub := b.subscriptions[id]
	delete(b.subscriptions, id)
	b.mu.Unlock()

	if sub != nil {
		sub.close()
	}
	return id
}

// Publish fans value out to every subscription currently on topic. The
// fan-out itself runs in a spawned goroutine so a slow or absent
// subscriber never blocks the caller.
func (b *Broadcaster) Publish(topic string, value *wire.CommandResponse) {
	b.mu.Lock()
	subs := make([]*subscription, 0, len(b.topics[topic]))
	for id := range b.topics[topic] {
		if s, ok := b.subscriptions[id]; ok {
			subs = append(subs, s)
		}
	}
	b.mu.Unlock()

	go func() {
		for _, s := range subs {
			s.send(value)
		}
	}()
}
