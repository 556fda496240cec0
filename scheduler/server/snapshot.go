package server

import (
	"encoding/json"
	"net/http"
)

type PoolSnapshot struct {
	PoolID   int32
	Capacity int
	Live     int
	Idle     int
	Busy     int
	Ready    bool
	Nodes    []ComputeNode
}

type JobSnapshot struct {
	Tid             int32
	Step            int32
	State           string
	RequiredBuckets int32
	PoolID          int32
	Buckets         []int32
}

// Snapshot is a copy of scheduler state taken at the end of a tick.
type Snapshot struct {
	Ticks          int64
	Pools          []PoolSnapshot
	Jobs           []JobSnapshot
	PendingMsgs    int
	WorkflowActive bool
	WorkflowConf   string
	RunID          string
	WorkflowDone   bool
	StopSent       bool
}

func (s *statefulScheduler) publish() {
	snap := Snapshot{
		PendingMsgs:    s.pending.size(),
		WorkflowActive: s.wf.active(),
		WorkflowDone:   s.wf.done,
		StopSent:       s.wf.stopSent,
	}
	if s.wf.active() {
		snap.WorkflowConf = s.wf.conf
		snap.RunID = s.wf.runID
	}
	for _, p := range s.pools.list() {
		snap.Pools = append(snap.Pools, PoolSnapshot{
			PoolID:   p.ID(),
			Capacity: p.Capacity(),
			Live:     p.Live(),
			Idle:     p.IdleCount(),
			Busy:     p.BusyCount(),
			Ready:    p.Ready(),
			Nodes:    p.NodeTable(),
		})
	}
	for _, j := range s.jobs.list() {
		js := JobSnapshot{Tid: j.ID.Tid, Step: j.ID.Step, State: j.State.String(), RequiredBuckets: j.RequiredBuckets, PoolID: -1}
		if j.State == JobRunning {
			js.PoolID = j.Pool.ID()
			js.Buckets = append([]int32(nil), j.Buckets...)
		}
		snap.Jobs = append(snap.Jobs, js)
	}

	s.snapMu.Lock()
	s.ticks++
	snap.Ticks = s.ticks
	s.snap = snap
	s.snapMu.Unlock()
}

func (s *statefulScheduler) Snapshot() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// NewSnapshotHandler serves the last published snapshot as JSON.
func NewSnapshotHandler(s Scheduler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		enc := json.NewEncoder(w)
		if r.URL.Query().Get("pretty") == "true" {
			enc.SetIndent("", "  ")
		}
		if err := enc.Encode(s.Snapshot()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
