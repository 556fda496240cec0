// Library for establishing framed thrift connections to peers.
// Provides Dialer interface with a retrying implementation.
package dialer

import (
	"time"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dataspaces/hsched/common/thrifthelpers"
)

// Interface for opening a framed binary thrift connection
type Dialer interface {
	Dial(addr string) (thrift.TTransport, thrift.TProtocol, error)
}

type retryingDialer struct {
	timeout    time.Duration
	maxElapsed time.Duration
}

// NewRetryingDialer dials with exponential backoff, giving up after
// maxElapsed. Each attempt times out after timeout.
func NewRetryingDialer(timeout, maxElapsed time.Duration) Dialer {
	return &retryingDialer{timeout: timeout, maxElapsed: maxElapsed}
}

func (d *retryingDialer) Dial(addr string) (thrift.TTransport, thrift.TProtocol, error) {
	var sock *thrift.TSocket
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = d.maxElapsed
	err := backoff.Retry(func() error {
		s, err := thrift.NewTSocketTimeout(addr, d.timeout)
		if err != nil {
			return err
		}
		if err := s.Open(); err != nil {
			log.Debugf("Dialing %s failed, retrying: %v", addr, err)
			return err
		}
		sock = s
		return nil
	}, b)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "dial %s", addr)
	}
	proto, framed := thrifthelpers.FramedBinaryProtocol(sock)
	return framed, proto, nil
}
