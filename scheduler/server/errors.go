package server

import (
	"github.com/pkg/errors"
)

var (
	ErrPoolNotFound        = errors.New("bucket pool not found")
	ErrPoolNotReady        = errors.New("bucket pool registration incomplete")
	ErrRankOutOfRange      = errors.New("origin rank out of range")
	ErrDuplicateRank       = errors.New("origin rank already registered")
	ErrPoolTooLarge        = errors.New("pool capacity above configured maximum")
	ErrAllocationTooLarge  = errors.New("allocation exceeds pool capacity")
	ErrInsufficientBuckets = errors.New("insufficient idle buckets")
	ErrJobNotFound         = errors.New("job not found")
	ErrUnknownMessageKind  = errors.New("unknown message kind")
)
