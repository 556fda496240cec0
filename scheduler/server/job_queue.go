package server

import (
	"fmt"

	"github.com/dataspaces/hsched/workflow"
)

type JobState int

const (
	JobPending JobState = iota
	JobRunning
	JobFinish
)

func (s JobState) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobRunning:
		return "running"
	case JobFinish:
		return "finish"
	default:
		return fmt.Sprintf("JobState(%d)", int(s))
	}
}

// JobID is the (task id, step) pair naming a task instance.
type JobID struct {
	Tid  int32
	Step int32
}

func (id JobID) String() string {
	return fmt.Sprintf("%d:%d", id.Tid, id.Step)
}

type Job struct {
	ID              JobID
	Task            *workflow.TaskInstance
	RequiredBuckets int32
	State           JobState

	// Set while running.
	Pool    *BucketPool
	Buckets []int32

	// The workflow the task belongs to, which may have been replaced since.
	owner workflow.Workflow
}

func (j *Job) InputVarCount() int {
	return len(j.Task.Inputs)
}

func (j *Job) String() string {
	pool := int32(-1)
	if j.Pool != nil {
		pool = j.Pool.ID()
	}
	return fmt.Sprintf("{job:%s, state:%s, required:%d, pool:%d, buckets:%v}", j.ID, j.State, j.RequiredBuckets, pool, j.Buckets)
}

// jobQueue keeps jobs in admission order and indexes them by id.
type jobQueue struct {
	jobs []*Job
	byID map[JobID]*Job
}

func newJobQueue() *jobQueue {
	return &jobQueue{byID: map[JobID]*Job{}}
}

// add creates a pending job for task, or returns false if the id is taken.
func (q *jobQueue) add(task *workflow.TaskInstance, owner workflow.Workflow) (*Job, bool) {
	id := JobID{task.Tid, task.Step}
	if _, ok := q.byID[id]; ok {
		return nil, false
	}
	j := &Job{ID: id, Task: task, RequiredBuckets: task.SizeHint, State: JobPending, owner: owner}
	q.jobs = append(q.jobs, j)
	q.byID[id] = j
	return j, true
}

func (q *jobQueue) lookup(id JobID) *Job {
	return q.byID[id]
}

func (q *jobQueue) pending() []*Job {
	var out []*Job
	for _, j := range q.jobs {
		if j.State == JobPending {
			out = append(out, j)
		}
	}
	return out
}

// reap removes every finished job and returns them.
func (q *jobQueue) reap() []*Job {
	var reaped []*Job
	kept := q.jobs[:0]
	for _, j := range q.jobs {
		if j.State == JobFinish {
			reaped = append(reaped, j)
			delete(q.byID, j.ID)
			continue
		}
		kept = append(kept, j)
	}
	for i := len(kept); i < len(q.jobs); i++ {
		q.jobs[i] = nil
	}
	q.jobs = kept
	return reaped
}

func (q *jobQueue) size() int { return len(q.jobs) }

func (q *jobQueue) list() []*Job { return q.jobs }
