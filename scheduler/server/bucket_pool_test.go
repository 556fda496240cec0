package server

import (
	"fmt"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/pkg/errors"

	"github.com/dataspaces/hsched/messages"
)

func regMsg(pool, capacity, rank, nid int32) *messages.RegisterResource {
	return &messages.RegisterResource{PoolID: pool, NumBucket: capacity, MpiRank: rank, Topo: messages.Topology{Nid: nid}}
}

// readyPool registers every rank of a pool, bucket i on node nids[i].
func readyPool(t *testing.T, r *poolRegistry, id int32, nids ...int32) *BucketPool {
	t.Helper()
	var pool *BucketPool
	for i, nid := range nids {
		p, _, err := r.register(regMsg(id, int32(len(nids)), int32(i), nid), messages.PeerID(100*id+int32(i)))
		if err != nil {
			t.Fatalf("register pool %d rank %d: %v", id, i, err)
		}
		pool = p
	}
	return pool
}

func TestRegistrationCompletesPool(t *testing.T) {
	r := newPoolRegistry()
	p, done, err := r.register(regMsg(7, 2, 1, 0), 11)
	if err != nil || done {
		t.Fatalf("first registration: done=%t err=%v", done, err)
	}
	if p.RegistrationComplete() || p.Ready() {
		t.Errorf("pool ready after one of two registrations")
	}
	if b, _ := p.Bucket(1); b.Status != BucketUnregistered {
		t.Errorf("expected unregistered bucket before completion, got %s", b.Status)
	}
	if _, done, _ = r.register(regMsg(7, 2, 0, 0), 10); !done {
		t.Fatalf("expected second registration to complete the pool")
	}
	if !p.Ready() || p.IdleCount() != 2 {
		t.Errorf("expected 2 idle buckets in a ready pool, got %s", p)
	}
	if b, _ := p.Bucket(0); b.PeerID != 10 || b.PoolID != 7 {
		t.Errorf("unexpected bucket %+v", b)
	}
}

func TestRegistrationRejectsOutOfRange(t *testing.T) {
	r := newPoolRegistry()
	for _, rank := range []int32{-1, 2, 5} {
		_, _, err := r.register(regMsg(3, 2, rank, 0), 1)
		if errors.Cause(err) != ErrRankOutOfRange {
			t.Errorf("rank %d: expected ErrRankOutOfRange, got %v", rank, err)
		}
	}
	if len(r.list()) != 0 {
		t.Errorf("rejected registrations created a pool: %s", spew.Sdump(r.list()))
	}

	readyPool(t, r, 3, 0, 0)
	if _, _, err := r.register(regMsg(3, 2, 2, 0), 1); errors.Cause(err) != ErrRankOutOfRange {
		t.Errorf("expected ErrRankOutOfRange on existing pool, got %v", err)
	}
}

func TestRegistrationRejectsOversizedPool(t *testing.T) {
	r := newPoolRegistry()
	r.maxCapacity = 4
	_, _, err := r.register(regMsg(9, 1<<30, 0, 0), 1)
	if errors.Cause(err) != ErrPoolTooLarge {
		t.Fatalf("expected ErrPoolTooLarge, got %v", err)
	}
	if _, err := r.lookup(9); errors.Cause(err) != ErrPoolNotFound {
		t.Errorf("rejected registration created a pool: %v", err)
	}

	p := readyPool(t, r, 9, 0, 0, 0, 0)
	if p.Capacity() != 4 || !p.Ready() {
		t.Errorf("expected a ready pool at the maximum capacity, got %s", p)
	}
}

func TestDuplicateRankIsNotCounted(t *testing.T) {
	r := newPoolRegistry()
	r.register(regMsg(1, 2, 0, 0), 1)
	_, _, err := r.register(regMsg(1, 2, 0, 0), 2)
	if errors.Cause(err) != ErrDuplicateRank {
		t.Fatalf("expected ErrDuplicateRank, got %v", err)
	}
	p, _ := r.lookup(1)
	if p.Live() != 1 || p.RegistrationComplete() {
		t.Errorf("duplicate registration changed the pool: %s", p)
	}
	if b, _ := p.Bucket(0); b.PeerID != 1 {
		t.Errorf("duplicate registration replaced the bucket peer: %d", b.PeerID)
	}
}

func TestCapacityMismatchKeepsOriginal(t *testing.T) {
	r := newPoolRegistry()
	r.register(regMsg(1, 2, 0, 0), 1)
	p, done, err := r.register(regMsg(1, 4, 1, 0), 2)
	if err != nil || !done {
		t.Fatalf("expected registration to complete the pool, done=%t err=%v", done, err)
	}
	if p.Capacity() != 2 {
		t.Errorf("capacity changed to %d", p.Capacity())
	}
}

func TestLookupPool(t *testing.T) {
	r := newPoolRegistry()
	if _, err := r.lookup(9); errors.Cause(err) != ErrPoolNotFound {
		t.Errorf("expected ErrPoolNotFound, got %v", err)
	}
	readyPool(t, r, 9, 0)
	if p, err := r.lookup(9); err != nil || p.ID() != 9 {
		t.Errorf("lookup: %v %v", p, err)
	}
}

func TestNodeTable(t *testing.T) {
	r := newPoolRegistry()
	p := readyPool(t, r, 1, 5, 2, 5, 2, 8)
	expected := []ComputeNode{
		{Nid: 2, Ranks: []int32{1, 3}},
		{Nid: 5, Ranks: []int32{0, 2}},
		{Nid: 8, Ranks: []int32{4}},
	}
	if diff := cmp.Diff(expected, p.NodeTable()); diff != "" {
		t.Errorf("node table mismatch (-want +got):\n%s", diff)
	}
}

func TestGetBucketBounds(t *testing.T) {
	p := readyPool(t, newPoolRegistry(), 1, 0, 0)
	if _, err := p.Bucket(2); errors.Cause(err) != ErrRankOutOfRange {
		t.Errorf("expected ErrRankOutOfRange, got %v", err)
	}
	if _, err := p.Bucket(-1); errors.Cause(err) != ErrRankOutOfRange {
		t.Errorf("expected ErrRankOutOfRange, got %v", err)
	}
}

func TestRequestAllocation(t *testing.T) {
	p := readyPool(t, newPoolRegistry(), 1, 0, 0, 0)
	got, err := p.requestAllocation(2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int32{0, 1}, got); diff != "" {
		t.Errorf("allocation mismatch (-want +got):\n%s", diff)
	}
	if _, err := p.requestAllocation(2); errors.Cause(err) != ErrInsufficientBuckets {
		t.Errorf("expected ErrInsufficientBuckets, got %v", err)
	}
	if p.BusyCount() != 2 {
		t.Errorf("failed request changed bucket states: %s", p)
	}
	if _, err := p.requestAllocation(4); errors.Cause(err) != ErrAllocationTooLarge {
		t.Errorf("expected ErrAllocationTooLarge, got %v", err)
	}
	if err := p.releaseAllocation([]int32{0}); err != nil {
		t.Fatal(err)
	}
	if got, _ = p.requestAllocation(2); !cmp.Equal([]int32{0, 2}, got) {
		t.Errorf("expected lowest idle ranks [0 2], got %v", got)
	}
}

func TestReleaseRejectsBadIndices(t *testing.T) {
	p := readyPool(t, newPoolRegistry(), 1, 0, 0)
	p.requestAllocation(2)
	if err := p.releaseAllocation([]int32{0, 2}); errors.Cause(err) != ErrRankOutOfRange {
		t.Errorf("expected ErrRankOutOfRange, got %v", err)
	}
	if err := p.releaseAllocation([]int32{0, 1, 0}); errors.Cause(err) != ErrAllocationTooLarge {
		t.Errorf("expected ErrAllocationTooLarge, got %v", err)
	}
	if p.BusyCount() != 2 {
		t.Errorf("rejected release changed bucket states: %s", p)
	}
}

func Test_PoolEligibility_PropertyTest(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("pool allocates iff every rank registered", prop.ForAll(
		func(capacity int16, registered int16) bool {
			if registered > capacity {
				registered = capacity
			}
			r := newPoolRegistry()
			for rank := int16(0); rank < registered; rank++ {
				if _, _, err := r.register(regMsg(1, int32(capacity), int32(rank), int32(rank%3)), messages.PeerID(rank)); err != nil {
					return false
				}
			}
			p, err := r.lookup(1)
			if registered == 0 {
				return errors.Cause(err) == ErrPoolNotFound
			}
			_, _, perr := FirstFit{}.Place(r.list(), 1)
			if registered < capacity {
				return perr != nil && !p.Ready() && p.BusyCount() == 0
			}
			return perr == nil && p.Ready()
		},
		gen.Int16Range(1, 64),
		gen.Int16Range(0, 64),
	))

	properties.TestingRun(t)
}

func Test_AllocationsDisjoint_PropertyTest(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("concurrent allocations never share a bucket", prop.ForAll(
		func(capacity int16, requests []int16) *gopter.PropResult {
			r := newPoolRegistry()
			nids := make([]int32, capacity)
			p := readyPool(t, r, 1, nids...)
			held := map[int32]bool{}
			for _, n := range requests {
				got, err := p.requestAllocation(int32(n))
				if err != nil {
					continue
				}
				for _, idx := range got {
					if held[idx] {
						return gopter.NewPropResult(false, fmt.Sprintf("bucket %d allocated twice", idx))
					}
					held[idx] = true
				}
			}
			return gopter.NewPropResult(p.BusyCount() == len(held),
				fmt.Sprintf("busy %d, held %d", p.BusyCount(), len(held)))
		},
		gen.Int16Range(1, 32),
		gen.SliceOf(gen.Int16Range(1, 8)),
	))

	properties.TestingRun(t)
}

func Test_ReleaseRestoresStatus_PropertyTest(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("allocate then release restores bucket states", prop.ForAll(
		func(capacity int16, first int16, k int16) bool {
			nids := make([]int32, capacity)
			p := readyPool(t, newPoolRegistry(), 1, nids...)
			if first <= capacity {
				p.requestAllocation(int32(first))
			}
			before := make([]BucketStatus, p.Capacity())
			for i := range p.buckets {
				before[i] = p.buckets[i].Status
			}
			got, err := p.requestAllocation(int32(k))
			if err == nil {
				if err := p.releaseAllocation(got); err != nil {
					return false
				}
			}
			for i := range p.buckets {
				if p.buckets[i].Status != before[i] {
					return false
				}
			}
			return true
		},
		gen.Int16Range(1, 32),
		gen.Int16Range(1, 32),
		gen.Int16Range(1, 32),
	))

	properties.TestingRun(t)
}
