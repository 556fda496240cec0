// Package static is a small workflow.Engine reading a fixed task list from
// YAML:
//
//	tasks:
//	  - id: 1
//	    size_hint: 2
//	    steps: 3
//	  - id: 2
//	    size_hint: 1
//	    steps: 3
//	    inputs: [temperature]
//
// Each task runs once per step, steps numbered from 1. An instance with no
// inputs is ready as soon as the workflow is loaded; otherwise it becomes
// ready once every named input is available at the instance's step.
// Dependency ordering beyond that is not modelled.
package static

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dataspaces/hsched/workflow"
)

type TaskSpec struct {
	ID       int32    `yaml:"id"`
	SizeHint int32    `yaml:"size_hint"`
	Steps    int32    `yaml:"steps"`
	Inputs   []string `yaml:"inputs"`
}

type Spec struct {
	Tasks []TaskSpec `yaml:"tasks"`
}

type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

func (e *Engine) ReadWorkflow(conf string) (workflow.Workflow, error) {
	data, err := os.ReadFile(conf)
	if err != nil {
		return nil, errors.Wrapf(err, "read workflow config %s", conf)
	}
	return Parse(data)
}

// Parse builds a workflow from YAML text.
func Parse(data []byte) (*Workflow, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, errors.Wrap(err, "parse workflow yaml")
	}
	return New(spec)
}

func New(spec Spec) (*Workflow, error) {
	w := &Workflow{available: map[varKey]workflow.VarDescriptor{}}
	seen := map[int32]bool{}
	for _, ts := range spec.Tasks {
		if seen[ts.ID] {
			return nil, errors.Errorf("duplicate task id %d", ts.ID)
		}
		seen[ts.ID] = true
		if ts.SizeHint <= 0 {
			return nil, errors.Errorf("task %d: size_hint must be positive, got %d", ts.ID, ts.SizeHint)
		}
		steps := ts.Steps
		if steps == 0 {
			steps = 1
		}
		if steps < 0 {
			return nil, errors.Errorf("task %d: negative steps %d", ts.ID, ts.Steps)
		}
		for step := int32(1); step <= steps; step++ {
			inst := &instance{
				task:    &workflow.TaskInstance{Tid: ts.ID, Step: step, SizeHint: ts.SizeHint, Status: workflow.TaskReady},
				inputs:  ts.Inputs,
				waiting: len(ts.Inputs) > 0,
			}
			w.instances = append(w.instances, inst)
		}
	}
	sort.SliceStable(w.instances, func(i, j int) bool {
		a, b := w.instances[i].task, w.instances[j].task
		if a.Step != b.Step {
			return a.Step < b.Step
		}
		return a.Tid < b.Tid
	})
	return w, nil
}

type varKey struct {
	name string
	step int32
}

type instance struct {
	task    *workflow.TaskInstance
	inputs  []string
	waiting bool
}

// Workflow implements workflow.Workflow. It is not safe for concurrent use.
type Workflow struct {
	instances []*instance
	available map[varKey]workflow.VarDescriptor
	cleared   int
}

var _ workflow.Workflow = (*Workflow)(nil)

func (w *Workflow) Finished() bool {
	for _, inst := range w.instances {
		if inst.task.Status != workflow.TaskFinish {
			return false
		}
	}
	return true
}

func (w *Workflow) ReadyTasks() []*workflow.TaskInstance {
	var ready []*workflow.TaskInstance
	for _, inst := range w.instances {
		if !inst.waiting && inst.task.Status == workflow.TaskReady {
			ready = append(ready, inst.task)
		}
	}
	return ready
}

func (w *Workflow) ClearFinishedTasks() {
	kept := w.instances[:0]
	for _, inst := range w.instances {
		if inst.task.Status == workflow.TaskFinish {
			w.cleared++
			continue
		}
		kept = append(kept, inst)
	}
	w.instances = kept
}

func (w *Workflow) EvaluateDataflow(v workflow.VarDescriptor) {
	w.available[varKey{v.Name, v.Step}] = v
	for _, inst := range w.instances {
		if !inst.waiting {
			continue
		}
		descs := make([]workflow.VarDescriptor, 0, len(inst.inputs))
		for _, name := range inst.inputs {
			d, ok := w.available[varKey{name, inst.task.Step}]
			if !ok {
				break
			}
			descs = append(descs, d)
		}
		if len(descs) == len(inst.inputs) {
			inst.waiting = false
			inst.task.Inputs = descs
		}
	}
}

func (w *Workflow) UpdateTaskStatus(t *workflow.TaskInstance, s workflow.TaskStatus) {
	t.Status = s
}

func (w *Workflow) Free() {
	w.instances = nil
	w.available = nil
}

// Cleared is the number of finished instances dropped by ClearFinishedTasks.
func (w *Workflow) Cleared() int {
	return w.cleared
}
