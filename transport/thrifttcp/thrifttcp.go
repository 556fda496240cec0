// Package thrifttcp is a Transport over TCP. Every envelope travels as one
// framed thrift binary struct. Inbound connections are read on their own
// goroutines and fed into a channel that only Poll drains.
package thrifttcp

import (
	"sync"
	"time"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/dataspaces/hsched/common"
	"github.com/dataspaces/hsched/common/dialer"
	"github.com/dataspaces/hsched/common/thrifthelpers"
	"github.com/dataspaces/hsched/messages"
	"github.com/dataspaces/hsched/transport"
)

type Config struct {
	Self            messages.PeerID
	Addr            string
	Peers           map[messages.PeerID]string
	DialTimeout     time.Duration
	MaxDialElapsed  time.Duration
	InboundChanSize int
}

type outConn struct {
	trans thrift.TTransport
	proto thrift.TProtocol
}

type Transport struct {
	cfg     Config
	dialer  dialer.Dialer
	server  *thrift.TServerSocket
	inbound chan *messages.Envelope
	errs    chan error
	done    chan struct{}
	wg      sync.WaitGroup

	mu       sync.Mutex
	peers    map[messages.PeerID]string
	out      map[messages.PeerID]*outConn
	accepted []thrift.TTransport
	closed   bool
}

var _ transport.Transport = (*Transport)(nil)

// Listen starts accepting connections on cfg.Addr.
func Listen(cfg Config) (*Transport, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = common.DefaultDialTimeout
	}
	if cfg.MaxDialElapsed == 0 {
		cfg.MaxDialElapsed = common.DefaultMaxDialElapsed
	}
	if cfg.InboundChanSize == 0 {
		cfg.InboundChanSize = common.DefaultInboundChanSize
	}
	server, err := thrift.NewTServerSocket(cfg.Addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve listen address %s", cfg.Addr)
	}
	if err := server.Listen(); err != nil {
		return nil, errors.Wrapf(err, "listen on %s", cfg.Addr)
	}
	t := &Transport{
		cfg:     cfg,
		dialer:  dialer.NewRetryingDialer(cfg.DialTimeout, cfg.MaxDialElapsed),
		server:  server,
		inbound: make(chan *messages.Envelope, cfg.InboundChanSize),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
		peers:   map[messages.PeerID]string{},
		out:     map[messages.PeerID]*outConn{},
	}
	for id, addr := range cfg.Peers {
		t.peers[id] = addr
	}
	log.WithFields(log.Fields{"peerID": cfg.Self, "addr": t.Addr()}).Info("Transport listening")
	t.wg.Add(1)
	go t.acceptLoop()
	return t, nil
}

// Addr is the bound listen address, useful when listening on port 0.
func (t *Transport) Addr() string {
	return t.server.Addr().String()
}

func (t *Transport) Self() messages.PeerID { return t.cfg.Self }

// SetPeer records or replaces the address used to reach peer.
func (t *Transport) SetPeer(peer messages.PeerID, addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[peer] = addr
	if c, ok := t.out[peer]; ok {
		c.trans.Close()
		delete(t.out, peer)
	}
}

func (t *Transport) acceptLoop() {
	defer t.wg.Done()
	for {
		client, err := t.server.Accept()
		if err != nil {
			select {
			case <-t.done:
			default:
				t.errs <- errors.Wrap(err, "accept")
			}
			return
		}
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			client.Close()
			return
		}
		t.accepted = append(t.accepted, client)
		t.mu.Unlock()
		t.wg.Add(1)
		go t.readLoop(client)
	}
}

func (t *Transport) readLoop(client thrift.TTransport) {
	defer t.wg.Done()
	proto, _ := thrifthelpers.FramedBinaryProtocol(client)
	for {
		env := &messages.Envelope{}
		if err := env.Read(proto); err != nil {
			t.dropAccepted(client, err)
			return
		}
		select {
		case t.inbound <- env:
		case <-t.done:
			return
		}
	}
}

func (t *Transport) dropAccepted(client thrift.TTransport, cause error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	log.WithFields(log.Fields{"peerID": t.cfg.Self, "err": cause}).Debug("Inbound connection closed")
	for i, c := range t.accepted {
		if c == client {
			t.accepted = append(t.accepted[:i], t.accepted[i+1:]...)
			break
		}
	}
	client.Close()
}

// Send writes env to peer, dialing it on first use. A failed write drops the
// cached connection so the next Send redials.
func (t *Transport) Send(peer messages.PeerID, env *messages.Envelope) error {
	c, err := t.conn(peer)
	if err != nil {
		return errors.Wrapf(err, "send %s to %d", env.Kind, peer)
	}
	stamped := &messages.Envelope{Kind: env.Kind, Sender: t.cfg.Self, Payload: env.Payload}
	if err = stamped.Write(c.proto); err == nil {
		err = c.proto.Flush()
	}
	if err != nil {
		t.mu.Lock()
		if t.out[peer] == c {
			delete(t.out, peer)
		}
		t.mu.Unlock()
		c.trans.Close()
		return errors.Wrapf(err, "send %s to %d", env.Kind, peer)
	}
	return nil
}

func (t *Transport) conn(peer messages.PeerID) (*outConn, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, transport.ErrClosed
	}
	if c, ok := t.out[peer]; ok {
		t.mu.Unlock()
		return c, nil
	}
	addr, ok := t.peers[peer]
	t.mu.Unlock()
	if !ok {
		return nil, transport.ErrUnknownPeer
	}

	trans, proto, err := t.dialer.Dial(addr)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"peerID": peer, "addr": addr}).Debug("Connected to peer")
	c := &outConn{trans: trans, proto: proto}
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.out[peer]; ok {
		trans.Close()
		return existing, nil
	}
	t.out[peer] = c
	return c, nil
}

// Poll waits up to timeout for the first envelope, then returns it together
// with whatever else is already queued.
func (t *Transport) Poll(timeout time.Duration) ([]*messages.Envelope, error) {
	select {
	case <-t.done:
		return nil, transport.ErrClosed
	default:
	}
	var out []*messages.Envelope
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case env := <-t.inbound:
		out = append(out, env)
	case err := <-t.errs:
		return nil, err
	case <-t.done:
		return nil, transport.ErrClosed
	case <-timer.C:
		return nil, nil
	}
	for {
		select {
		case env := <-t.inbound:
			out = append(out, env)
		default:
			return out, nil
		}
	}
}

func (t *Transport) Complete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close stops the listener and closes every connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.done)
	var err error
	err = multierr.Append(err, t.server.Interrupt())
	err = multierr.Append(err, t.server.Close())
	for _, c := range t.accepted {
		err = multierr.Append(err, c.Close())
	}
	for peer, c := range t.out {
		err = multierr.Append(err, c.trans.Close())
		delete(t.out, peer)
	}
	t.accepted = nil
	t.mu.Unlock()
	t.wg.Wait()
	return err
}
