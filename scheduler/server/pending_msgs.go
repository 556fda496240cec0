package server

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dataspaces/hsched/messages"
)

// pendingMsg is a request waiting on an unmet precondition.
type pendingMsg struct {
	env    *messages.Envelope
	queued time.Time
}

// pendingQueue is retried in arrival order once per tick. A message stays
// queued until it is serviced; unknown kinds are dropped.
type pendingQueue struct {
	msgs []*pendingMsg
}

func (q *pendingQueue) push(env *messages.Envelope, now time.Time) {
	q.msgs = append(q.msgs, &pendingMsg{env: env, queued: now})
}

func (q *pendingQueue) size() int { return len(q.msgs) }

// process retries every message once. service returns false when the
// message has to wait for a later tick. A service error stops the scan and
// the failed message is removed.
func (q *pendingQueue) process(service func(*pendingMsg) (bool, error)) (serviced, dropped int, err error) {
	kept := make([]*pendingMsg, 0, len(q.msgs))
	for i, m := range q.msgs {
		done, serr := service(m)
		if serr != nil {
			if errors.Cause(serr) == ErrUnknownMessageKind {
				log.WithFields(log.Fields{"kind": m.env.Kind, "peerID": m.env.Sender}).Errorf("Dropping pending message: %v", serr)
				dropped++
				continue
			}
			kept = append(kept, q.msgs[i+1:]...)
			q.msgs = kept
			return serviced, dropped, serr
		}
		if done {
			serviced++
			continue
		}
		kept = append(kept, m)
	}
	q.msgs = kept
	return serviced, dropped, nil
}

// drain discards everything and returns how many messages were queued.
func (q *pendingQueue) drain() int {
	n := len(q.msgs)
	q.msgs = nil
	return n
}
