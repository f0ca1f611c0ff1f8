// Package client is the counterpart to package server: it dials a kvtap
// server over TLS and drives the same framed request/response protocol
// from the caller's side of the wire.
package client

import (
	"crypto/tls"
	"fmt"

	"github.com/mickamy/kvtap/tlsconf"
	"github.com/mickamy/kvtap/transport"
	"github.com/mickamy/kvtap/wire"
)

// Client is a single TLS connection speaking kvtap's framed protocol. It
// is not safe for concurrent use: Execute and Recv both read from the
// same underlying stream, so a caller that starts a Subscribe loop must
// not interleave other calls until it reads every frame that subscription
// implies (or Unsubscribes and drains the subscription's own teardown).
type Client struct {
	stream *transport.Stream
	conn   *tls.Conn
}

// Dial connects to addr and completes a TLS handshake via connector.
func Dial(addr string, connector *tlsconf.ClientConnector) (*Client, error) {
	conn, err := connector.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	return &Client{stream: transport.New(conn), conn: conn}, nil
}

// Close shuts down the underlying connection.
func (c *Client) Close() error {
	return c.stream.Close()
}

// Execute sends req and returns the single response the server sends
// back. It is the right call for every op except Subscribe, whose replies
// keep arriving after the first; use Subscribe for that case.
func (c *Client) Execute(req wire.CommandRequest) (wire.CommandResponse, error) {
	if err := c.stream.WriteRequest(req); err != nil {
		return wire.CommandResponse{}, fmt.Errorf("client: write request: %w", err)
	}
	if err := c.stream.Flush(); err != nil {
		return wire.CommandResponse{}, fmt.Errorf("client: flush: %w", err)
	}
	resp, err := c.stream.ReadResponse()
	if err != nil {
		return wire.CommandResponse{}, fmt.Errorf("client: read response: %w", err)
	}
	return resp, nil
}

// Subscribe sends a Subscribe request for topic and returns the
// subscription ID the server allocated, which arrives as the first
// response frame. Subsequent published values are read with Recv on the
// same Client until Unsubscribe (or the connection closes).
func (c *Client) Subscribe(topic string) (uint32, error) {
	resp, err := c.Execute(wire.SubscribeRequest(topic))
	if err != nil {
		return 0, err
	}
	if len(resp.Values) != 1 {
		return 0, fmt.Errorf("client: subscribe %q: expected one value carrying the subscription id, got %d", topic, len(resp.Values))
	}
	id, err := resp.Values[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("client: subscribe %q: %w", topic, err)
	}
	return uint32(id), nil
}

// Recv blocks for the next frame on a subscribed connection — either a
// published value or, after Unsubscribe has been sent from another
// connection, nothing further (the server simply stops writing and the
// caller typically observes Recv block until it closes the connection).
func (c *Client) Recv() (wire.CommandResponse, error) {
	resp, err := c.stream.ReadResponse()
	if err != nil {
		return wire.CommandResponse{}, fmt.Errorf("client: recv: %w", err)
	}
	return resp, nil
}

// Unsubscribe tears the subscription down. It is ordinary request/response
// traffic on the same connection the Subscribe was issued on.
func (c *Client) Unsubscribe(topic string, id uint32) (wire.CommandResponse, error) {
	return c.Execute(wire.UnsubscribeRequest(topic, id))
}

// Publish sends one or more values to every subscriber of topic.
func (c *Client) Publish(topic string, values ...wire.Value) (wire.CommandResponse, error) {
	return c.Execute(wire.PublishRequest(topic, values...))
}
