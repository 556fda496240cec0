package stats

/*
This file defines all the metrics collected by the placement scheduler. As new metrics are added please follow this pattern.
*/

const (
	/************************* Bucket pool metrics **************************/
	/*
		number of register-resource messages accepted
	*/
	SchedBucketRegisteredCounter = "bucketRegisteredCounter"

	/*
		number of register-resource messages rejected (rank out of range, duplicate rank)
	*/
	SchedBucketRejectedCounter = "bucketRejectedCounter"

	/*
		number of pools known to the scheduler, registered or not
	*/
	SchedPoolsGauge = "poolsGauge"

	/*
		number of pools whose registration is complete
	*/
	SchedReadyPoolsGauge = "readyPoolsGauge"

	/*
		number of idle buckets across all pools, recorded every step
	*/
	SchedIdleBucketsGauge = "idleBucketsGauge"

	/*
		number of busy buckets across all pools, recorded every step
	*/
	SchedBusyBucketsGauge = "busyBucketsGauge"

	/************************* Job queue metrics **************************/
	/*
		number of jobs created from ready task instances
	*/
	SchedJobAdmittedCounter = "jobAdmittedCounter"

	/*
		number of jobs whose buckets were allocated and notified
	*/
	SchedJobDispatchedCounter = "jobDispatchedCounter"

	/*
		number of finish-task messages matched to a running job
	*/
	SchedJobFinishedCounter = "jobFinishedCounter"

	/*
		number of finished jobs removed from the queue
	*/
	SchedJobReapedCounter = "jobReapedCounter"

	/*
		number of allocation attempts that found too few idle buckets
	*/
	SchedAllocationFailedCounter = "allocationFailedCounter"

	/*
		number of allocation attempts where an execute-task send failed
	*/
	SchedDispatchFailedCounter = "dispatchFailedCounter"

	/*
		number of finish-task messages with no matching running job
	*/
	SchedUnknownJobCounter = "unknownJobCounter"

	/*
		number of ready tasks admitted late because a job with the same id was still queued
	*/
	SchedReadyTaskBlockedCounter = "readyTaskBlockedCounter"

	/*
		number of jobs in the queue, recorded every step
	*/
	SchedJobsInQueueGauge = "jobsInQueueGauge"

	/************************* Pending message metrics **************************/
	/*
		number of requests deferred into the pending queue
	*/
	SchedPendingQueuedCounter = "pendingQueuedCounter"

	/*
		number of pending requests serviced
	*/
	SchedPendingServicedCounter = "pendingServicedCounter"

	/*
		number of pending requests dropped (unknown kind)
	*/
	SchedPendingDroppedCounter = "pendingDroppedCounter"

	/*
		number of requests waiting in the pending queue, recorded every step
	*/
	SchedPendingMsgsGauge = "pendingMsgsGauge"

	/************************* Workflow metrics **************************/
	/*
		number of workflows loaded on exec-dag
	*/
	SchedWorkflowLoadedCounter = "workflowLoadedCounter"

	/*
		number of workflows that completed and were replied to
	*/
	SchedWorkflowCompletedCounter = "workflowCompletedCounter"

	/*
		number of stop-executor broadcasts (expected to be at most one per workflow)
	*/
	SchedStopBroadcastCounter = "stopBroadcastCounter"

	/*
		number of inbound messages of an unknown kind
	*/
	SchedUnknownMessageCounter = "unknownMessageCounter"

	/************************* Loop metrics **************************/
	/*
		the amount of time it takes for a single scheduler step
	*/
	SchedStepLatency_ms = "stepLatency_ms"

	/*
		time spent handling the inbound messages of one poll
	*/
	SchedProcessMessagesLatency_ms = "processMessagesLatency_ms"

	/*
		time spent retrying pending messages
	*/
	SchedPendingMsgsLatency_ms = "pendingMsgsLatency_ms"

	/*
		time spent admitting, allocating and reaping jobs
	*/
	SchedJobQueueLatency_ms = "jobQueueLatency_ms"

	/*
		number of inbound messages received per poll
	*/
	SchedInboundMessagesHistogram = "inboundMessagesHistogram"
)
