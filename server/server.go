// Package server implements kvtap's TCP accept loop: wrap each accepted
// connection in TLS, then run one reader goroutine per connection that
// decodes frames, dispatches them through a service.Service, and writes
// the resulting response frames back.
package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/mickamy/kvtap/pubsub"
	"github.com/mickamy/kvtap/service"
	"github.com/mickamy/kvtap/tlsconf"
	"github.com/mickamy/kvtap/transport"
	"github.com/mickamy/kvtap/wire"
)

// Server accepts TCP connections, wraps each in TLS, and dispatches the
// framed request/response traffic on it through svc.
type Server struct {
	listener net.Listener
	acceptor *tlsconf.ServerAcceptor
	svc      *service.Service
}

// New returns a Server that accepts on lis, TLS-wraps with acceptor, and
// dispatches requests through svc.
func New(lis net.Listener, acceptor *tlsconf.ServerAcceptor, svc *service.Service) *Server {
	return &Server{listener: lis, acceptor: acceptor, svc: svc}
}

// Addr returns the address the listener is bound to.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until the listener is closed, handling each
// on its own goroutine. It always returns a non-nil error; a listener
// closed deliberately by the caller surfaces as the net package's
// "use of closed network connection", which callers typically ignore.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return fmt.Errorf("server: accept: %w", err)
		}
		go s.handle(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}

// handle drives one accepted connection from TLS handshake to close. Any
// error, including a clean EOF, ends the connection without panicking or
// leaking the per-connection goroutine or its subscriptions.
func (s *Server) handle(raw net.Conn) {
	connID := uuid.New().String()

	tlsConn := s.acceptor.Wrap(raw)
	defer func() { _ = tlsConn.Close() }()

	stream := transport.New(tlsConn)

	var writeMu sync.Mutex
	writeResponse := func(resp wire.CommandResponse) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := stream.WriteResponse(resp); err != nil {
			return err
		}
		return stream.Flush()
	}

	// Subscribe spawns a forwarding goroutine per stream so further
	// requests (notably Unsubscribe) keep flowing on this connection
	// while the subscription is live; wg makes sure none outlive handle.
	var wg sync.WaitGroup

	// live tracks every subscription this connection opened and hasn't
	// explicitly torn down, so a client that disconnects mid-subscription
	// doesn't leak it in the broadcaster or leave its forwarder blocked
	// forever on a channel nothing will ever close.
	live := map[uint32]string{}
	defer func() {
		for id, topic := range live {
			s.svc.Unsubscribe(topic, id)
		}
		wg.Wait()
	}()

	for {
		req, err := stream.ReadRequest()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("server[%s]: read request: %v", connID, err)
			}
			return
		}

		resp, sub := s.svc.Execute(req)
		if sub != nil {
			live[sub.ID] = req.Topic
			wg.Add(1)
			go forwardSubscription(&wg, connID, sub, writeResponse)
			continue
		}

		if req.Op == wire.OpUnsubscribe {
			delete(live, req.SubscriptionID)
		}

		if err := writeResponse(resp); err != nil {
			log.Printf("server[%s]: write response: %v", connID, err)
			return
		}
		s.svc.AfterSend()
	}
}

// forwardSubscription relays everything published to sub until it is torn
// down by an Unsubscribe, writing each as its own response frame. It runs
// concurrently with the connection's reader goroutine, so all writes go
// through writeResponse to serialize frame boundaries on the shared
// connection.
func forwardSubscription(wg *sync.WaitGroup, connID string, sub *pubsub.Subscription, writeResponse func(wire.CommandResponse) error) {
	defer wg.Done()
	for {
		select {
		case resp, ok := <-sub.C():
			if !ok {
				return
			}
			if err := writeResponse(*resp); err != nil {
				log.Printf("server[%s]: write subscription %d: %v", connID, sub.ID, err)
				return
			}
		case <-sub.Done():
			return
		}
	}
}
