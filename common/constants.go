package common

import (
	"time"
)

// How long a scheduler poll may block waiting for inbound messages.
const DefaultPollTimeout = 250 * time.Millisecond

// Buffer between transport reader goroutines and the scheduler loop.
const DefaultInboundChanSize = 1024

const DefaultDialTimeout = 5 * time.Second
const DefaultMaxDialElapsed = 30 * time.Second

// How often the per-step queue summary may be logged.
const DefaultStatsLogInterval = 10 * time.Second

const DefaultAdminMaxConns = 16

// Largest num_bucket a register-resource may declare for a new pool.
const DefaultMaxPoolCapacity = 1 << 16
