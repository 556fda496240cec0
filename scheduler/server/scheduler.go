package server

import (
	"context"
)

type Scheduler interface {
	// Run polls the transport and ticks until the transport reports
	// completion, ctx is cancelled, or a poll or send fails.
	Run(ctx context.Context) error

	// Step runs one scheduling tick without polling.
	Step() error

	// Snapshot returns the state published at the end of the last tick.
	// Safe to call from any goroutine.
	Snapshot() Snapshot

	// Close discards queued pending requests and frees the active workflow.
	Close() error
}
