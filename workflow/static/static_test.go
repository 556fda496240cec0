package static

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataspaces/hsched/workflow"
)

const twoTasks = `
tasks:
  - id: 1
    size_hint: 2
    steps: 2
  - id: 2
    size_hint: 1
    steps: 2
    inputs: [temperature, pressure]
`

func ids(ts []*workflow.TaskInstance) [][2]int32 {
	var out [][2]int32
	for _, t := range ts {
		out = append(out, [2]int32{t.Tid, t.Step})
	}
	return out
}

func TestInputlessReadyAtLoad(t *testing.T) {
	w, err := Parse([]byte(twoTasks))
	require.NoError(t, err)
	assert.Equal(t, [][2]int32{{1, 1}, {1, 2}}, ids(w.ReadyTasks()))
	assert.False(t, w.Finished())
}

func TestReadyOnceInputsAvailable(t *testing.T) {
	w, err := Parse([]byte(twoTasks))
	require.NoError(t, err)
	for _, task := range w.ReadyTasks() {
		w.UpdateTaskStatus(task, workflow.TaskPending)
	}

	w.EvaluateDataflow(workflow.VarDescriptor{Name: "temperature", Step: 2})
	assert.Empty(t, w.ReadyTasks())

	pressure := workflow.VarDescriptor{Name: "pressure", Step: 2, Size: 64,
		BBox: workflow.BBox{NumDims: 1, Lb: []int32{0}, Ub: []int32{15}}}
	w.EvaluateDataflow(pressure)
	ready := w.ReadyTasks()
	require.Equal(t, [][2]int32{{2, 2}}, ids(ready))
	require.Len(t, ready[0].Inputs, 2)
	assert.Equal(t, pressure, ready[0].Inputs[1])
}

func TestFinishedAndCleared(t *testing.T) {
	w, err := Parse([]byte("tasks:\n  - id: 4\n    size_hint: 1\n"))
	require.NoError(t, err)
	ready := w.ReadyTasks()
	require.Len(t, ready, 1)
	w.UpdateTaskStatus(ready[0], workflow.TaskFinish)
	assert.True(t, w.Finished())
	w.ClearFinishedTasks()
	assert.Equal(t, 1, w.Cleared())
	assert.True(t, w.Finished())
}

func TestRejectsBadSpecs(t *testing.T) {
	_, err := Parse([]byte("tasks:\n  - id: 1\n    size_hint: 1\n  - id: 1\n    size_hint: 1\n"))
	assert.Error(t, err)
	_, err = Parse([]byte("tasks:\n  - id: 1\n"))
	assert.Error(t, err)
	_, err = Parse([]byte("tasks: {"))
	assert.Error(t, err)
}

func TestReadWorkflowFromFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "static")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "dag.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(twoTasks), 0644))

	w, err := NewEngine().ReadWorkflow(path)
	require.NoError(t, err)
	assert.Len(t, w.ReadyTasks(), 2)

	_, err = NewEngine().ReadWorkflow(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
