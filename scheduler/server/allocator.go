package server

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// PlacementPolicy picks the pool and buckets a job runs on, reserving them.
// Pools are given in creation order. Each pool exposes its NodeTable so a
// policy can take node locality into account.
type PlacementPolicy interface {
	Place(pools []*BucketPool, count int32) (*BucketPool, []int32, error)
}

// FirstFit takes the first ready pool with enough idle buckets, and within
// it the lowest idle ranks. Locality is ignored.
type FirstFit struct{}

func (FirstFit) Place(pools []*BucketPool, count int32) (*BucketPool, []int32, error) {
	for _, pool := range pools {
		if !pool.Ready() {
			continue
		}
		indices, err := pool.requestAllocation(count)
		if err == nil {
			return pool, indices, nil
		}
		if errors.Cause(err) == ErrAllocationTooLarge {
			log.WithFields(log.Fields{"poolID": pool.ID(), "numBuckets": count}).Debugf("Skipping pool: %v", err)
		}
	}
	return nil, nil, errors.Wrapf(ErrInsufficientBuckets, "no pool can place %d buckets", count)
}
