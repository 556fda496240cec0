package server

import (
	"github.com/pkg/errors"

	"github.com/dataspaces/hsched/messages"
	"github.com/dataspaces/hsched/transport"
	"github.com/dataspaces/hsched/workflow"
)

// dispatcher builds and sends execute-task messages.
type dispatcher struct {
	tr transport.Transport
}

func toVarDesc(v workflow.VarDescriptor) messages.VarDesc {
	return messages.VarDesc{
		Name: v.Name,
		Step: v.Step,
		BBox: messages.BBox{NumDims: v.BBox.NumDims, Lb: v.BBox.Lb, Ub: v.BBox.Ub},
		Size: v.Size,
	}
}

func fromVarDesc(v messages.VarDesc) workflow.VarDescriptor {
	return workflow.VarDescriptor{
		Name: v.Name,
		Step: v.Step,
		BBox: workflow.BBox{NumDims: v.BBox.NumDims, Lb: v.BBox.Lb, Ub: v.BBox.Ub},
		Size: v.Size,
	}
}

// execTask is the message every participant of job receives, minus the
// per-bucket rank hint. Peers and Ranks follow allocation order so every
// participant derives the same rank numbering.
func execTask(job *Job, pool *BucketPool, indices []int32) *messages.ExecTask {
	m := &messages.ExecTask{
		Tid:       job.ID.Tid,
		Step:      job.ID.Step,
		NprocHint: int32(len(indices)),
		Peers:     make([]int32, len(indices)),
		Ranks:     make([]int32, len(indices)),
		Vars:      make([]messages.VarDesc, 0, job.InputVarCount()),
	}
	for i, idx := range indices {
		b := &pool.buckets[idx]
		m.Peers[i] = int32(b.PeerID)
		m.Ranks[i] = b.OriginRank
	}
	for _, v := range job.Task.Inputs {
		m.Vars = append(m.Vars, toVarDesc(v))
	}
	return m
}

// notifyBucket sends the execute-task for one participant.
func (d *dispatcher) notifyBucket(job *Job, bucket *Bucket, base *messages.ExecTask, rankHint int32) error {
	m := *base
	m.RankHint = rankHint
	env, err := messages.NewEnvelope(messages.KindExecTask, d.tr.Self(), &m)
	if err != nil {
		return errors.Wrapf(err, "encode execute-task for job %s", job.ID)
	}
	if err := d.tr.Send(bucket.PeerID, env); err != nil {
		return errors.Wrapf(err, "dispatch job %s to peer %d", job.ID, bucket.PeerID)
	}
	return nil
}

// dispatch notifies every allocated bucket, stopping at the first failure.
func (d *dispatcher) dispatch(job *Job, pool *BucketPool, indices []int32) error {
	base := execTask(job, pool, indices)
	for rank, idx := range indices {
		if err := d.notifyBucket(job, &pool.buckets[idx], base, int32(rank)); err != nil {
			return err
		}
	}
	return nil
}
