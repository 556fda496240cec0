// Package workflow defines what the scheduler needs from a workflow (DAG)
// engine. The engine owns task instances; the scheduler only holds
// references to them and reports status changes back.
package workflow

import (
	"fmt"
)

type TaskStatus int

const (
	// Ready means the engine found all inputs available and has not handed
	// the instance to the scheduler yet.
	TaskReady TaskStatus = iota
	TaskPending
	TaskRunning
	TaskFinish
)

func (s TaskStatus) String() string {
	switch s {
	case TaskReady:
		return "ready"
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskFinish:
		return "finish"
	default:
		return fmt.Sprintf("TaskStatus(%d)", int(s))
	}
}

// BBox is an axis aligned region of an n-dimensional domain.
type BBox struct {
	NumDims int32
	Lb      []int32
	Ub      []int32
}

type VarDescriptor struct {
	Name string
	Step int32
	BBox BBox
	Size int64
}

func (v VarDescriptor) String() string {
	return fmt.Sprintf("%s@%d", v.Name, v.Step)
}

// TaskInstance is one run of a task at one step.
type TaskInstance struct {
	Tid      int32
	Step     int32
	SizeHint int32
	Inputs   []VarDescriptor
	Status   TaskStatus
}

func (t *TaskInstance) String() string {
	return fmt.Sprintf("task(%d,%d)", t.Tid, t.Step)
}

type Engine interface {
	// ReadWorkflow loads the workflow described by conf.
	ReadWorkflow(conf string) (Workflow, error)
}

type Workflow interface {
	// Finished is true once every task instance reached TaskFinish.
	Finished() bool

	// ReadyTasks returns instances in TaskReady state. The scheduler moves
	// each one it accepts out of TaskReady with UpdateTaskStatus, so an
	// instance is never returned twice.
	ReadyTasks() []*TaskInstance

	// ClearFinishedTasks drops the engine's bookkeeping for finished instances.
	ClearFinishedTasks()

	// EvaluateDataflow marks v available and readies whatever depends on it.
	EvaluateDataflow(v VarDescriptor)

	UpdateTaskStatus(t *TaskInstance, s TaskStatus)

	Free()
}
