// Package messages defines the wire format exchanged between the placement
// scheduler, the executor buckets and workflow clients.
//
// Every message travels in an Envelope whose Payload is the thrift binary
// encoding of the header struct matching its Kind. Kinds without a header
// (finish-workflow, stop-executor, build-staging-done) carry an empty payload.
package messages

import "fmt"

// PeerID is the global identifier of a peer on the transport.
type PeerID int32

type Kind int32

const (
	KindUnknown Kind = iota

	// inbound to the scheduler
	KindRegisterResource
	KindFinishTask
	KindFinishWorkflow
	KindUpdateVar
	KindExecDag
	KindBuildStaging

	// outbound from the scheduler
	KindExecTask
	KindStopExecutor
	KindFinishDag
	KindBuildStagingDone
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown",
	KindRegisterResource: "register-resource",
	KindFinishTask:       "finish-task",
	KindFinishWorkflow:   "finish-workflow",
	KindUpdateVar:        "update-variable",
	KindExecDag:          "exec-dag",
	KindBuildStaging:     "build-staging-request",
	KindExecTask:         "execute-task",
	KindStopExecutor:     "stop-executor",
	KindFinishDag:        "finish-dag",
	KindBuildStagingDone: "build-staging-done",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int32(k))
}
