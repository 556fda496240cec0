/*
Package server implements the hybrid-staging placement scheduler.

The scheduler tracks pools of executor buckets, turns ready task
instances reported by a workflow engine into jobs, places each job on idle
buckets of one pool and notifies every chosen bucket. It runs as a single
reactive loop: poll the transport, handle every envelope received, then run
one scheduling tick:

	1. retry deferred (pending) requests
	2. advance the job queue: admit ready tasks, allocate, reap finished jobs
	3. check whether the active workflow has finished
	4. check whether the stop broadcast is due

All scheduler state is touched only from the goroutine running the loop.
*/
package server
