package server

import (
	"time"

	"github.com/dataspaces/hsched/messages"
	"github.com/dataspaces/hsched/workflow"
)

// workflowState tracks the active workflow and the stop handshake.
type workflowState struct {
	current   workflow.Workflow
	conf      string
	runID     string
	submitter messages.PeerID
	started   time.Time

	// Set by finish-workflow: no more work will be submitted.
	done bool
	// The stop broadcast went out. Reset only by a new exec-dag.
	stopSent bool
}

func (w *workflowState) active() bool { return w.current != nil }

// replace installs wf, freeing any previous workflow.
func (w *workflowState) replace(wf workflow.Workflow, conf, runID string, submitter messages.PeerID, now time.Time) {
	if w.current != nil {
		w.current.Free()
	}
	w.current = wf
	w.conf = conf
	w.runID = runID
	w.submitter = submitter
	w.started = now
	w.done = false
	w.stopSent = false
}

func (w *workflowState) release() {
	if w.current != nil {
		w.current.Free()
	}
	w.current = nil
}

// stopDue reports whether the stop broadcast should go out now.
func (w *workflowState) stopDue(busyBuckets int) bool {
	return w.done && !w.stopSent && busyBuckets == 0
}
