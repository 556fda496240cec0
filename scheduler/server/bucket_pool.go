package server

import (
	"fmt"
	"sort"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dataspaces/hsched/common"
	"github.com/dataspaces/hsched/messages"
)

type BucketStatus int

const (
	BucketUnregistered BucketStatus = iota
	BucketIdle
	BucketBusy
)

func (s BucketStatus) String() string {
	switch s {
	case BucketUnregistered:
		return "unregistered"
	case BucketIdle:
		return "idle"
	case BucketBusy:
		return "busy"
	default:
		return fmt.Sprintf("BucketStatus(%d)", int(s))
	}
}

// Bucket is one executor slot of a pool, addressed by its origin rank.
type Bucket struct {
	PeerID     messages.PeerID
	PoolID     int32
	OriginRank int32
	Topo       messages.Topology
	Status     BucketStatus
	registered bool
}

// ComputeNode groups the buckets of a pool that share a topology node id.
// Ranks are sorted ascending.
type ComputeNode struct {
	Nid   int32
	Ranks []int32
}

// BucketPool is a fixed size set of buckets registered together. It is only
// usable for allocation once every rank has registered.
type BucketPool struct {
	id                   int32
	buckets              []Bucket
	live                 int
	registrationComplete bool
	nodeTableBuilt       bool
	nodes                []ComputeNode
}

func newBucketPool(id, capacity int32) *BucketPool {
	return &BucketPool{id: id, buckets: make([]Bucket, capacity)}
}

func (p *BucketPool) ID() int32 { return p.id }

func (p *BucketPool) Capacity() int { return len(p.buckets) }

// Live is the number of distinct ranks registered so far.
func (p *BucketPool) Live() int { return p.live }

func (p *BucketPool) RegistrationComplete() bool { return p.registrationComplete }

// Ready reports whether both registration and the node table are done.
func (p *BucketPool) Ready() bool { return p.registrationComplete && p.nodeTableBuilt }

// NodeTable lists compute nodes by ascending node id. Nil until the pool
// completes registration.
func (p *BucketPool) NodeTable() []ComputeNode { return p.nodes }

// Bucket returns the bucket at originRank.
func (p *BucketPool) Bucket(originRank int32) (*Bucket, error) {
	if originRank < 0 || int(originRank) >= len(p.buckets) {
		return nil, errors.Wrapf(ErrRankOutOfRange, "pool %d rank %d capacity %d", p.id, originRank, len(p.buckets))
	}
	return &p.buckets[originRank], nil
}

func (p *BucketPool) countStatus(s BucketStatus) int {
	n := 0
	for i := range p.buckets {
		if p.buckets[i].Status == s {
			n++
		}
	}
	return n
}

func (p *BucketPool) IdleCount() int { return p.countStatus(BucketIdle) }
func (p *BucketPool) BusyCount() int { return p.countStatus(BucketBusy) }

// register records a bucket. It returns true when this registration
// completed the pool.
func (p *BucketPool) register(originRank int32, peer messages.PeerID, topo messages.Topology) (bool, error) {
	b, err := p.Bucket(originRank)
	if err != nil {
		return false, err
	}
	if b.registered {
		return false, errors.Wrapf(ErrDuplicateRank, "pool %d rank %d already held by peer %d", p.id, originRank, b.PeerID)
	}
	*b = Bucket{PeerID: peer, PoolID: p.id, OriginRank: originRank, Topo: topo, Status: BucketUnregistered, registered: true}
	p.live++
	if p.live < len(p.buckets) {
		return false, nil
	}
	p.registrationComplete = true
	for i := range p.buckets {
		p.buckets[i].Status = BucketIdle
	}
	p.buildNodeTable()
	return true, nil
}

func (p *BucketPool) buildNodeTable() {
	if p.nodeTableBuilt {
		return
	}
	order := make([]int, len(p.buckets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return p.buckets[order[i]].Topo.Nid < p.buckets[order[j]].Topo.Nid
	})
	var nodes []ComputeNode
	for _, idx := range order {
		b := &p.buckets[idx]
		if n := len(nodes); n == 0 || nodes[n-1].Nid != b.Topo.Nid {
			nodes = append(nodes, ComputeNode{Nid: b.Topo.Nid})
		}
		last := &nodes[len(nodes)-1]
		last.Ranks = append(last.Ranks, b.OriginRank)
	}
	p.nodes = nodes
	p.nodeTableBuilt = true
}

// requestAllocation reserves count idle buckets scanning in rank order.
// Nothing is reserved unless all count are found.
func (p *BucketPool) requestAllocation(count int32) ([]int32, error) {
	if !p.registrationComplete {
		return nil, errors.Wrapf(ErrPoolNotReady, "pool %d", p.id)
	}
	if count <= 0 || int(count) > len(p.buckets) {
		return nil, errors.Wrapf(ErrAllocationTooLarge, "pool %d request %d capacity %d", p.id, count, len(p.buckets))
	}
	picked := make([]int32, 0, count)
	for i := range p.buckets {
		if p.buckets[i].Status == BucketIdle {
			picked = append(picked, int32(i))
			if len(picked) == int(count) {
				break
			}
		}
	}
	if len(picked) < int(count) {
		return nil, errors.Wrapf(ErrInsufficientBuckets, "pool %d has %d of %d idle", p.id, len(picked), count)
	}
	for _, i := range picked {
		p.buckets[i].Status = BucketBusy
	}
	return picked, nil
}

// releaseAllocation marks the given buckets idle. The whole call is rejected
// if any index is out of range.
func (p *BucketPool) releaseAllocation(indices []int32) error {
	if len(indices) > len(p.buckets) {
		return errors.Wrapf(ErrAllocationTooLarge, "pool %d release %d capacity %d", p.id, len(indices), len(p.buckets))
	}
	for _, i := range indices {
		if i < 0 || int(i) >= len(p.buckets) {
			return errors.Wrapf(ErrRankOutOfRange, "pool %d release rank %d", p.id, i)
		}
	}
	for _, i := range indices {
		p.buckets[i].Status = BucketIdle
	}
	return nil
}

func (p *BucketPool) String() string {
	return fmt.Sprintf("{pool:%d, capacity:%d, live:%d, ready:%t, nodes:%s}",
		p.id, len(p.buckets), p.live, p.Ready(), spew.Sdump(p.nodes))
}

// poolRegistry holds pools in creation order, which is also the order
// allocation tries them in.
type poolRegistry struct {
	pools       []*BucketPool
	byID        map[int32]*BucketPool
	maxCapacity int32
}

func newPoolRegistry() *poolRegistry {
	return &poolRegistry{byID: map[int32]*BucketPool{}, maxCapacity: common.DefaultMaxPoolCapacity}
}

func (r *poolRegistry) lookup(id int32) (*BucketPool, error) {
	if p, ok := r.byID[id]; ok {
		return p, nil
	}
	return nil, errors.Wrapf(ErrPoolNotFound, "pool %d", id)
}

// register handles a register-resource request. Rejected requests leave no
// trace, not even a new empty pool.
func (r *poolRegistry) register(req *messages.RegisterResource, peer messages.PeerID) (*BucketPool, bool, error) {
	fields := log.Fields{"poolID": req.PoolID, "originRank": req.MpiRank, "peerID": peer, "numBuckets": req.NumBucket}
	pool, ok := r.byID[req.PoolID]
	if !ok {
		if req.MpiRank < 0 || req.MpiRank >= req.NumBucket {
			err := errors.Wrapf(ErrRankOutOfRange, "pool %d rank %d capacity %d", req.PoolID, req.MpiRank, req.NumBucket)
			log.WithFields(fields).Errorf("Rejected bucket registration: %v", err)
			return nil, false, err
		}
		if req.NumBucket > r.maxCapacity {
			err := errors.Wrapf(ErrPoolTooLarge, "pool %d capacity %d max %d", req.PoolID, req.NumBucket, r.maxCapacity)
			log.WithFields(fields).Errorf("Rejected bucket registration: %v", err)
			return nil, false, err
		}
		pool = newBucketPool(req.PoolID, req.NumBucket)
		r.pools = append(r.pools, pool)
		r.byID[req.PoolID] = pool
	} else if int(req.NumBucket) != pool.Capacity() {
		log.WithFields(fields).Warnf("Capacity mismatch for pool, keeping %d", pool.Capacity())
	}

	completed, err := pool.register(req.MpiRank, peer, req.Topo)
	if err != nil {
		log.WithFields(fields).Errorf("Rejected bucket registration: %v", err)
		return pool, false, err
	}
	if completed {
		log.WithFields(fields).Infof("bucket resource pool %d is ready, num_bucket %d", pool.id, pool.Capacity())
		if log.IsLevelEnabled(log.DebugLevel) {
			for _, n := range pool.nodes {
				log.WithFields(log.Fields{"poolID": pool.id, "nid": n.Nid}).Debugf("compute node %d: %d buckets", n.Nid, len(n.Ranks))
				for _, rank := range n.Ranks {
					b := &pool.buckets[rank]
					log.WithFields(log.Fields{"poolID": pool.id, "nid": n.Nid, "originRank": rank, "peerID": b.PeerID}).
						Debugf("bucket %d peer %d %s", rank, b.PeerID, b.Topo)
				}
			}
		}
	}
	return pool, completed, nil
}

func (r *poolRegistry) list() []*BucketPool { return r.pools }

func (r *poolRegistry) readyCount() int {
	n := 0
	for _, p := range r.pools {
		if p.Ready() {
			n++
		}
	}
	return n
}

// bucketCounts sums idle and busy buckets over every pool.
func (r *poolRegistry) bucketCounts() (idle, busy int) {
	for _, p := range r.pools {
		idle += p.IdleCount()
		busy += p.BusyCount()
	}
	return idle, busy
}
