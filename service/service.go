// Package service dispatches a decoded CommandRequest to the storage
// backend or the topic broadcaster and produces the CommandResponse (or,
// for Subscribe, the live Subscription) to send back.
package service

import (
	"github.com/mickamy/kvtap/pubsub"
	"github.com/mickamy/kvtap/storage"
	"github.com/mickamy/kvtap/wire"
)

// ReceivedHook runs when a request is decoded, before dispatch.
type ReceivedHook func(*wire.CommandRequest)

// ExecutedHook runs after a unary command has produced its response.
type ExecutedHook func(*wire.CommandResponse)

// BeforeSendHook runs last, with a chance to rewrite the response before
// it is handed back to the caller for sending.
type BeforeSendHook func(*wire.CommandResponse)

// AfterSendHook runs once the caller has confirmed a response frame was
// flushed to the transport. It takes no argument because, by the time it
// runs, the response it concerns is already gone.
type AfterSendHook func()

// ServiceInner holds the storage backend and the four hook chains. Use
// the fluent On* methods to build one up, then wrap it in a Service.
type ServiceInner struct {
	store storage.Storage

	onReceived   []ReceivedHook
	onExecuted   []ExecutedHook
	onBeforeSend []BeforeSendHook
	onAfterSend  []AfterSendHook
}

// NewServiceInner returns a ServiceInner with no hooks registered.
func NewServiceInner(store storage.Storage) *ServiceInner {
	return &ServiceInner{store: store}
}

func (s *ServiceInner) OnReceived(f ReceivedHook) *ServiceInner {
	s.onReceived = append(s.onReceived, f)
	return s
}

func (s *ServiceInner) OnExecuted(f ExecutedHook) *ServiceInner {
	s.onExecuted = append(s.onExecuted, f)
	return s
}

func (s *ServiceInner) OnBeforeSend(f BeforeSendHook) *ServiceInner {
	s.onBeforeSend = append(s.onBeforeSend, f)
	return s
}

func (s *ServiceInner) OnAfterSend(f AfterSendHook) *ServiceInner {
	s.onAfterSend = append(s.onAfterSend, f)
	return s
}

// Service is the entry point a connection handler calls into. It is safe
// for concurrent use by multiple goroutines: the storage backend and the
// broadcaster are each internally synchronized, and Service itself holds
// no other mutable state.
type Service struct {
	inner       *ServiceInner
	broadcaster *pubsub.Broadcaster
}

// New wraps inner with a fresh broadcaster.
func New(inner *ServiceInner) *Service {
	return &Service{inner: inner, broadcaster: pubsub.NewBroadcaster()}
}

// Execute dispatches req by its Op: Subscribe, Publish, and Unsubscribe go
// to the broadcaster, every other op to the storage backend. The executed
// and before-send hooks run on every returned response except Subscribe's,
// including the OK replies to Publish and Unsubscribe.
// For every op except Subscribe it returns a
// ready CommandResponse and a nil Subscription. For Subscribe it returns
// the zero CommandResponse (CommandResponse.IsStreamingSentinel reports
// true) and a non-nil Subscription: the caller must forward whatever
// arrives on Subscription.C() instead of sending the zero response
// literally.
func (s *Service) Execute(req wire.CommandRequest) (wire.CommandResponse, *pubsub.Subscription) {
	for _, f := range s.inner.onReceived {
		f(&req)
	}

	switch req.Op {
	case wire.OpSubscribe:
		return wire.CommandResponse{}, s.broadcaster.Subscribe(req.Topic)
	case wire.OpPublish:
		resp := wire.OK()
		payload := wire.OKValues(req.Values)
		s.broadcaster.Publish(req.Topic, &payload)
		return s.finish(resp), nil
	case wire.OpUnsubscribe:
		s.broadcaster.Unsubscribe(req.Topic, req.SubscriptionID)
		return s.finish(wire.OK()), nil
	default:
		return s.finish(dispatchUnary(req, s.inner.store)), nil
	}
}

func (s *Service) finish(resp wire.CommandResponse) wire.CommandResponse {
	for _, f := range s.inner.onExecuted {
		f(&resp)
	}
	for _, f := range s.inner.onBeforeSend {
		f(&resp)
	}
	return resp
}

// AfterSend runs the after-send hook chain. Callers invoke this once a
// response frame has been successfully flushed to the transport.
func (s *Service) AfterSend() {
	for _, f := range s.inner.onAfterSend {
		f()
	}
}

// Unsubscribe tears down a subscription outside the normal request path.
// A connection handler calls this for every Subscription it still holds
// once its connection ends, so a client that disconnects without sending
// Unsubscribe does not leak a subscription or its forwarding goroutine.
func (s *Service) Unsubscribe(topic string, id uint32) {
	s.broadcaster.Unsubscribe(topic, id)
}
