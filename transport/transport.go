// Package transport is the delivery substrate the scheduler runs on:
// reliable point-to-point delivery of envelopes between named peers.
package transport

import (
	"time"

	"github.com/pkg/errors"

	"github.com/dataspaces/hsched/messages"
)

//go:generate mockgen -source=transport.go -package=transport -destination=transport_mock.go

// Transport moves envelopes for one local peer.
//
// Poll is the only call allowed to block: it waits until at least one
// envelope is available or timeout elapses, and returns everything received
// since the previous call in arrival order. Envelopes are only ever handed
// out by Poll, so a single caller of Poll sees inbound traffic serially.
type Transport interface {
	// Id of the local peer, used as Sender on outbound envelopes.
	Self() messages.PeerID

	// Send delivers env to peer, returning an error if it cannot be handed
	// off. Sends are not retried.
	Send(peer messages.PeerID, env *messages.Envelope) error

	Poll(timeout time.Duration) ([]*messages.Envelope, error)

	// Complete reports that the transport will deliver nothing further,
	// at which point the owner's poll loop should exit.
	Complete() bool

	Close() error
}

var ErrUnknownPeer = errors.New("unknown peer")
var ErrClosed = errors.New("transport closed")
