// Package memory is an in-process Transport: a Hub of endpoints that
// exchange envelopes through shared queues. It backs the local.memory
// config preset and the scheduler tests.
package memory

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/dataspaces/hsched/messages"
	"github.com/dataspaces/hsched/transport"
)

// Hub routes envelopes between endpoints it created.
type Hub struct {
	mu        sync.Mutex
	endpoints map[messages.PeerID]*Endpoint
}

func NewHub() *Hub {
	return &Hub{endpoints: map[messages.PeerID]*Endpoint{}}
}

// Endpoint returns the endpoint for id, creating it on first use.
func (h *Hub) Endpoint(id messages.PeerID) *Endpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.endpoints[id]; ok {
		return e
	}
	e := &Endpoint{hub: h, id: id, wake: make(chan struct{}, 1)}
	h.endpoints[id] = e
	return e
}

func (h *Hub) lookup(id messages.PeerID) *Endpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.endpoints[id]
}

// Endpoint implements transport.Transport for one peer on a Hub.
type Endpoint struct {
	hub  *Hub
	id   messages.PeerID
	wake chan struct{}

	mu       sync.Mutex
	inbox    []*messages.Envelope
	closed   bool
	finished bool
	sent     []*messages.Envelope
}

var _ transport.Transport = (*Endpoint)(nil)

func (e *Endpoint) Self() messages.PeerID { return e.id }

// Send copies env into the destination's inbox, stamping the sender.
func (e *Endpoint) Send(peer messages.PeerID, env *messages.Envelope) error {
	if e.isClosed() {
		return transport.ErrClosed
	}
	dst := e.hub.lookup(peer)
	if dst == nil {
		return errors.Wrapf(transport.ErrUnknownPeer, "send %s to %d", env.Kind, peer)
	}
	cp := &messages.Envelope{Kind: env.Kind, Sender: e.id, Payload: append([]byte(nil), env.Payload...)}
	if err := dst.deliver(cp); err != nil {
		return errors.Wrapf(err, "send %s to %d", env.Kind, peer)
	}
	e.mu.Lock()
	e.sent = append(e.sent, cp)
	e.mu.Unlock()
	return nil
}

func (e *Endpoint) deliver(env *messages.Envelope) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return transport.ErrClosed
	}
	e.inbox = append(e.inbox, env)
	e.mu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

// Poll returns the queued envelopes, waiting up to timeout for the first.
func (e *Endpoint) Poll(timeout time.Duration) ([]*messages.Envelope, error) {
	if out, err := e.drain(); len(out) > 0 || err != nil {
		return out, err
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-e.wake:
	case <-timer.C:
	}
	return e.drain()
}

func (e *Endpoint) drain() ([]*messages.Envelope, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, transport.ErrClosed
	}
	out := e.inbox
	e.inbox = nil
	return out, nil
}

// Finish marks the endpoint complete; queued envelopes are still returned
// by Poll.
func (e *Endpoint) Finish() {
	e.mu.Lock()
	e.finished = true
	e.mu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Endpoint) Complete() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed || (e.finished && len(e.inbox) == 0)
}

// Sent returns every envelope this endpoint has successfully sent.
func (e *Endpoint) Sent() []*messages.Envelope {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*messages.Envelope(nil), e.sent...)
}

func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.inbox = nil
	return nil
}

func (e *Endpoint) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
