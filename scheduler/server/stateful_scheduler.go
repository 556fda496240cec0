package server

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/luci/go-render/render"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/dataspaces/hsched/common"
	"github.com/dataspaces/hsched/common/log/hooks"
	"github.com/dataspaces/hsched/common/stats"
	"github.com/dataspaces/hsched/messages"
	"github.com/dataspaces/hsched/transport"
	"github.com/dataspaces/hsched/workflow"
)

func init() {
	if loglevel := os.Getenv("HSCHED_LOGLEVEL"); loglevel != "" {
		level, err := log.ParseLevel(loglevel)
		if err != nil {
			log.Error(err)
			return
		}
		log.SetLevel(level)
		log.AddHook(hooks.NewContextHook())
	} else {
		// keep test output short
		log.SetLevel(log.ErrorLevel)
	}
}

// What to do with reserved buckets when notifying one of them fails.
type DispatchFailurePolicy string

const (
	// Return the buckets to idle; the job stays pending and is retried.
	ReleaseOnDispatchFailure DispatchFailurePolicy = "release"
	// Leave the buckets busy, as the allocation had been made.
	LeakOnDispatchFailure DispatchFailurePolicy = "leak"
)

func ParseDispatchFailurePolicy(s string) (DispatchFailurePolicy, error) {
	switch DispatchFailurePolicy(s) {
	case "", ReleaseOnDispatchFailure:
		return ReleaseOnDispatchFailure, nil
	case LeakOnDispatchFailure:
		return LeakOnDispatchFailure, nil
	}
	return "", errors.Errorf("unknown dispatch failure policy %q", s)
}

// SchedulerConfiguration
//
// PollTimeout - how long one transport poll may block.
//
// DispatchFailurePolicy - see ReleaseOnDispatchFailure and LeakOnDispatchFailure.
//
// StatsLogInterval - minimum interval between two EVAL debug lines.
//
// MaxPoolCapacity - registrations declaring a larger new pool are rejected.
type SchedulerConfiguration struct {
	PollTimeout           time.Duration
	DispatchFailurePolicy DispatchFailurePolicy
	StatsLogInterval      time.Duration
	MaxPoolCapacity       int32
}

func (sc *SchedulerConfiguration) String() string {
	return fmt.Sprintf("SchedulerConfiguration: PollTimeout: %s, DispatchFailurePolicy: %s, StatsLogInterval: %s, MaxPoolCapacity: %d",
		sc.PollTimeout, sc.DispatchFailurePolicy, sc.StatsLogInterval, sc.MaxPoolCapacity)
}

// statefulScheduler owns all scheduling state. Everything except the
// published snapshot is touched only by the goroutine calling Run or Step.
type statefulScheduler struct {
	config     *SchedulerConfiguration
	tr         transport.Transport
	engine     workflow.Engine
	placement  PlacementPolicy
	dispatcher *dispatcher

	pools   *poolRegistry
	jobs    *jobQueue
	pending *pendingQueue
	wf      *workflowState

	// ready tasks whose id is still held by a job of a replaced workflow
	blocked map[JobID]bool

	clock       stats.StatsTime
	startTime   time.Time
	evalLimiter *rate.Limiter
	stat        stats.StatsReceiver

	snapMu sync.RWMutex
	snap   Snapshot
	ticks  int64
}

// NewStatefulScheduler creates a scheduler talking through tr and loading
// workflows with engine. Nothing runs until Run or Step is called.
func NewStatefulScheduler(
	tr transport.Transport,
	engine workflow.Engine,
	config SchedulerConfiguration,
	stat stats.StatsReceiver,
) *statefulScheduler {
	if config.PollTimeout == 0 {
		config.PollTimeout = common.DefaultPollTimeout
	}
	if config.DispatchFailurePolicy == "" {
		config.DispatchFailurePolicy = ReleaseOnDispatchFailure
	}
	if config.StatsLogInterval == 0 {
		config.StatsLogInterval = common.DefaultStatsLogInterval
	}
	if config.MaxPoolCapacity <= 0 {
		config.MaxPoolCapacity = common.DefaultMaxPoolCapacity
	}
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	s := &statefulScheduler{
		config:      &config,
		tr:          tr,
		engine:      engine,
		placement:   FirstFit{},
		dispatcher:  &dispatcher{tr: tr},
		pools:       newPoolRegistry(),
		jobs:        newJobQueue(),
		pending:     &pendingQueue{},
		wf:          &workflowState{},
		blocked:     map[JobID]bool{},
		clock:       stats.DefaultStatsTime(),
		evalLimiter: rate.NewLimiter(rate.Every(config.StatsLogInterval), 1),
		stat:        stat.Scope("hsched"),
	}
	s.pools.maxCapacity = config.MaxPoolCapacity
	s.startTime = s.clock.Now()
	log.Infof("Created scheduler for peer %d: %s", tr.Self(), s.config)
	return s
}

func (s *statefulScheduler) String() string {
	idle, busy := s.pools.bucketCounts()
	return fmt.Sprintf("%s, pools: %d, jobs: %d, pending: %d, idle: %d, busy: %d",
		s.config, len(s.pools.list()), s.jobs.size(), s.pending.size(), idle, busy)
}

// SetPlacementPolicy replaces the default FirstFit policy.
func (s *statefulScheduler) SetPlacementPolicy(p PlacementPolicy) {
	s.placement = p
}

func (s *statefulScheduler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			log.Info("Scheduler stopped: context done")
			return nil
		default:
		}
		if s.tr.Complete() {
			log.Info("Scheduler stopped: transport complete")
			return nil
		}
		if err := s.poll(s.config.PollTimeout); err != nil {
			log.Errorf("Server exits due to error: %v", err)
			return err
		}
		if err := s.Step(); err != nil {
			log.Errorf("Server exits due to error: %v", err)
			return err
		}
	}
}

// poll waits for inbound envelopes and handles them in arrival order.
func (s *statefulScheduler) poll(timeout time.Duration) error {
	envs, err := s.tr.Poll(timeout)
	if err != nil {
		return errors.Wrap(err, "poll transport")
	}
	defer s.stat.Latency(stats.SchedProcessMessagesLatency_ms).Time().Stop()
	s.stat.Histogram(stats.SchedInboundMessagesHistogram).Update(int64(len(envs)))
	for _, env := range envs {
		s.handle(env)
	}
	return nil
}

func (s *statefulScheduler) handle(env *messages.Envelope) {
	fields := log.Fields{"kind": env.Kind, "peerID": env.Sender}
	var err error
	switch env.Kind {
	case messages.KindRegisterResource:
		var m messages.RegisterResource
		if err = env.Decode(&m); err == nil {
			s.onRegisterResource(&m, env.Sender)
		}
	case messages.KindFinishTask:
		var m messages.FinishTask
		if err = env.Decode(&m); err == nil {
			s.onFinishTask(&m)
		}
	case messages.KindFinishWorkflow:
		log.WithFields(fields).Info("Workflow finish signal received")
		s.wf.done = true
	case messages.KindUpdateVar:
		var m messages.UpdateVar
		if err = env.Decode(&m); err == nil {
			log.WithFields(log.Fields{"peerID": env.Sender, "var": m.Var.Name, "step": m.Var.Step, "bbox": m.Var.BBox}).
				Infof("Variable %s updated at step %d", m.Var.Name, m.Var.Step)
			if s.wf.active() {
				s.wf.current.EvaluateDataflow(fromVarDesc(m.Var))
			}
		}
	case messages.KindExecDag:
		var m messages.ExecDag
		if err = env.Decode(&m); err == nil {
			s.onExecDag(m.ConfFile, env.Sender)
		}
	case messages.KindBuildStaging:
		s.pending.push(env, s.clock.Now())
		s.stat.Counter(stats.SchedPendingQueuedCounter).Inc(1)
	default:
		s.stat.Counter(stats.SchedUnknownMessageCounter).Inc(1)
		log.WithFields(fields).Errorf("Dropping message: %v", ErrUnknownMessageKind)
		return
	}
	if err != nil {
		log.WithFields(fields).Errorf("Dropping malformed message: %v", err)
	}
}

func (s *statefulScheduler) onRegisterResource(m *messages.RegisterResource, peer messages.PeerID) {
	if _, _, err := s.pools.register(m, peer); err != nil {
		s.stat.Counter(stats.SchedBucketRejectedCounter).Inc(1)
		return
	}
	s.stat.Counter(stats.SchedBucketRegisteredCounter).Inc(1)
}

func (s *statefulScheduler) onFinishTask(m *messages.FinishTask) {
	id := JobID{m.Tid, m.Step}
	fields := log.Fields{"poolID": m.PoolID, "taskID": m.Tid, "step": m.Step}
	if _, err := s.pools.lookup(m.PoolID); err != nil {
		log.WithFields(fields).Errorf("finish-task ignored: %v", err)
		return
	}
	j := s.jobs.lookup(id)
	if j == nil {
		s.stat.Counter(stats.SchedUnknownJobCounter).Inc(1)
		log.WithFields(fields).Errorf("finish-task ignored: %v", errors.Wrapf(ErrJobNotFound, "job %s", id))
		return
	}
	if j.State != JobRunning {
		log.WithFields(fields).Errorf("finish-task ignored: job %s is %s", id, j.State)
		return
	}
	if j.Pool.ID() != m.PoolID {
		log.WithFields(fields).Warnf("finish-task names pool %d, job %s runs on pool %d", m.PoolID, id, j.Pool.ID())
	}
	if err := j.Pool.releaseAllocation(j.Buckets); err != nil {
		log.WithFields(fields).Errorf("Releasing job %s: %v", id, err)
	}
	j.State = JobFinish
	s.updateTask(j, workflow.TaskFinish)
	s.stat.Counter(stats.SchedJobFinishedCounter).Inc(1)
	log.WithFields(fields).Infof("job %s finished at %.3f seconds", id, s.elapsed())
}

func (s *statefulScheduler) onExecDag(conf string, submitter messages.PeerID) {
	fields := log.Fields{"peerID": submitter, "conf": conf}
	wf, err := s.engine.ReadWorkflow(conf)
	if err != nil {
		log.WithFields(fields).Errorf("Failed to load workflow: %v", err)
		return
	}
	if s.wf.active() {
		log.WithFields(fields).Warnf("Replacing active workflow %s (run %s)", s.wf.conf, s.wf.runID)
	}
	runID := common.GenUUID()
	s.wf.replace(wf, conf, runID, submitter, s.clock.Now())
	s.stat.Counter(stats.SchedWorkflowLoadedCounter).Inc(1)
	fields["runID"] = runID
	log.WithFields(fields).Info("Loaded workflow")
	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithFields(fields).Debugf("workflow: %s", render.Render(wf))
	}
}

// Step runs one scheduling tick. The four phases always run in this order
// since the stop check depends on the bucket states left by the job queue.
func (s *statefulScheduler) Step() error {
	defer s.stat.Latency(stats.SchedStepLatency_ms).Time().Stop()
	defer s.publish()
	defer s.updateStats()

	if err := s.processPendingMsgs(); err != nil {
		return err
	}
	if err := s.processJobQueue(); err != nil {
		return err
	}
	if err := s.processDagState(); err != nil {
		return err
	}
	return s.processWorkflowState()
}

func (s *statefulScheduler) processPendingMsgs() error {
	defer s.stat.Latency(stats.SchedPendingMsgsLatency_ms).Time().Stop()
	serviced, dropped, err := s.pending.process(s.servicePending)
	s.stat.Counter(stats.SchedPendingServicedCounter).Inc(int64(serviced))
	s.stat.Counter(stats.SchedPendingDroppedCounter).Inc(int64(dropped))
	return err
}

func (s *statefulScheduler) servicePending(p *pendingMsg) (bool, error) {
	switch p.env.Kind {
	case messages.KindBuildStaging:
		var m messages.BuildStaging
		if err := p.env.Decode(&m); err != nil {
			return false, errors.Wrapf(ErrUnknownMessageKind, "undecodable build-staging request: %v", err)
		}
		pool, err := s.pools.lookup(m.PoolID)
		if err != nil || !pool.Ready() {
			return false, nil
		}
		log.WithFields(log.Fields{"poolID": m.PoolID, "peerID": p.env.Sender, "conf": m.StagingConfFile}).
			Infof("build staging for bucket pool %d with config '%s'", m.PoolID, m.StagingConfFile)
		env, err := messages.NewEnvelope(messages.KindBuildStagingDone, s.tr.Self(), nil)
		if err != nil {
			return false, err
		}
		if err := s.tr.Send(p.env.Sender, env); err != nil {
			return false, errors.Wrapf(err, "reply build-staging-done to peer %d", p.env.Sender)
		}
		return true, nil
	default:
		return false, errors.Wrapf(ErrUnknownMessageKind, "pending %s", p.env.Kind)
	}
}

func (s *statefulScheduler) processJobQueue() error {
	defer s.stat.Latency(stats.SchedJobQueueLatency_ms).Time().Stop()
	if s.wf.active() {
		s.admitReadyTasks()
	}
	for _, j := range s.jobs.pending() {
		if err := s.allocate(j); err != nil {
			return err
		}
	}
	reaped := s.jobs.reap()
	for _, j := range reaped {
		delete(s.blocked, j.ID)
	}
	s.stat.Counter(stats.SchedJobReapedCounter).Inc(int64(len(reaped)))
	if s.wf.active() {
		s.wf.current.ClearFinishedTasks()
	}
	return nil
}

func (s *statefulScheduler) admitReadyTasks() {
	for _, task := range s.wf.current.ReadyTasks() {
		j, ok := s.jobs.add(task, s.wf.current)
		if !ok {
			id := JobID{task.Tid, task.Step}
			if !s.blocked[id] {
				s.blocked[id] = true
				s.stat.Counter(stats.SchedReadyTaskBlockedCounter).Inc(1)
				log.WithFields(log.Fields{"taskID": task.Tid, "step": task.Step}).
					Warn("Ready task already has a job, waiting for it to be reaped")
			}
			continue
		}
		s.updateTask(j, workflow.TaskPending)
		s.stat.Counter(stats.SchedJobAdmittedCounter).Inc(1)
		log.WithFields(log.Fields{"taskID": task.Tid, "step": task.Step, "numBuckets": task.SizeHint}).Debug("Admitted job")
	}
}

// allocate places and dispatches one pending job. Failing to place is not
// an error: the job is retried next tick. A dispatch failure is returned.
func (s *statefulScheduler) allocate(j *Job) error {
	pool, indices, err := s.placement.Place(s.pools.list(), j.RequiredBuckets)
	if err != nil {
		s.stat.Counter(stats.SchedAllocationFailedCounter).Inc(1)
		return nil
	}
	fields := log.Fields{"poolID": pool.ID(), "taskID": j.ID.Tid, "step": j.ID.Step, "numBuckets": len(indices)}
	if err := s.dispatcher.dispatch(j, pool, indices); err != nil {
		s.stat.Counter(stats.SchedDispatchFailedCounter).Inc(1)
		if s.config.DispatchFailurePolicy == ReleaseOnDispatchFailure {
			if rerr := pool.releaseAllocation(indices); rerr != nil {
				log.WithFields(fields).Errorf("Releasing buckets after dispatch failure: %v", rerr)
			}
			log.WithFields(fields).Errorf("Dispatch failed, buckets released: %v", err)
		} else {
			log.WithFields(fields).Errorf("Dispatch failed, buckets left busy: %v", err)
		}
		return err
	}
	j.State = JobRunning
	j.Pool = pool
	j.Buckets = indices
	s.updateTask(j, workflow.TaskRunning)
	s.stat.Counter(stats.SchedJobDispatchedCounter).Inc(1)
	fields["elapsed"] = s.elapsed()
	log.WithFields(fields).Infof("job %s assigned to buckets %v", j.ID, indices)
	return nil
}

// updateTask reports job status to the workflow it came from, unless that
// workflow has been replaced or released.
func (s *statefulScheduler) updateTask(j *Job, status workflow.TaskStatus) {
	if s.wf.active() && j.owner == s.wf.current {
		s.wf.current.UpdateTaskStatus(j.Task, status)
	}
}

func (s *statefulScheduler) processDagState() error {
	if !s.wf.active() || !s.wf.current.Finished() {
		return nil
	}
	elapsed := s.clock.Since(s.wf.started)
	submitter, runID := s.wf.submitter, s.wf.runID
	s.wf.release()
	s.stat.Counter(stats.SchedWorkflowCompletedCounter).Inc(1)
	log.WithFields(log.Fields{"peerID": submitter, "runID": runID, "elapsed": elapsed.Seconds()}).Info("Workflow finished")

	env, err := messages.NewEnvelope(messages.KindFinishDag, s.tr.Self(), &messages.FinishDag{DagExecutionTime: elapsed.Seconds()})
	if err != nil {
		return err
	}
	if err := s.tr.Send(submitter, env); err != nil {
		return errors.Wrapf(err, "reply finish-dag to peer %d", submitter)
	}
	return nil
}

// processWorkflowState sends the stop broadcast once the workflow is done
// and no bucket is busy. The flag is set before sending so a failed
// broadcast is never repeated.
func (s *statefulScheduler) processWorkflowState() error {
	_, busy := s.pools.bucketCounts()
	if !s.wf.stopDue(busy) {
		return nil
	}
	s.wf.stopSent = true
	s.stat.Counter(stats.SchedStopBroadcastCounter).Inc(1)

	env, err := messages.NewEnvelope(messages.KindStopExecutor, s.tr.Self(), nil)
	if err != nil {
		return err
	}
	sent := 0
	for _, pool := range s.pools.list() {
		for i := range pool.buckets {
			b := &pool.buckets[i]
			if !b.registered {
				continue
			}
			if err := s.tr.Send(b.PeerID, env); err != nil {
				return errors.Wrapf(err, "broadcast stop to peer %d", b.PeerID)
			}
			sent++
		}
	}
	log.WithFields(log.Fields{"numBuckets": sent}).Info("Stop broadcast sent")
	return nil
}

func (s *statefulScheduler) elapsed() float64 {
	return s.clock.Since(s.startTime).Seconds()
}

func (s *statefulScheduler) updateStats() {
	idle, busy := s.pools.bucketCounts()
	s.stat.Gauge(stats.SchedPoolsGauge).Update(int64(len(s.pools.list())))
	s.stat.Gauge(stats.SchedReadyPoolsGauge).Update(int64(s.pools.readyCount()))
	s.stat.Gauge(stats.SchedIdleBucketsGauge).Update(int64(idle))
	s.stat.Gauge(stats.SchedBusyBucketsGauge).Update(int64(busy))
	s.stat.Gauge(stats.SchedJobsInQueueGauge).Update(int64(s.jobs.size()))
	s.stat.Gauge(stats.SchedPendingMsgsGauge).Update(int64(s.pending.size()))
	if s.evalLimiter.Allow() {
		log.WithFields(log.Fields{"elapsed": s.elapsed()}).
			Debugf("EVAL: %d jobs in queue, %d idle buckets, %d busy buckets", s.jobs.size(), idle, busy)
	}
}

func (s *statefulScheduler) Close() error {
	if n := s.pending.drain(); n > 0 {
		log.Infof("Discarded %d pending messages", n)
	}
	s.wf.release()
	s.publish()
	return nil
}
