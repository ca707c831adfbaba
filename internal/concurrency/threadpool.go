// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ThreadPool wraps Executor for blocking negotiation work — the pool
// rpc.ReactorThread hands connection negotiation off to so the reactor
// goroutine itself never blocks on socket I/O.

package concurrency

// ThreadPool runs blocking callbacks off the reactor goroutine.
type ThreadPool struct {
	executor *Executor
}

// NewThreadPool starts size workers, optionally pinned to numaNode (-1 for none).
func NewThreadPool(size, numaNode int) *ThreadPool {
	return &ThreadPool{
		executor: NewExecutor(size, numaNode),
	}
}

// Submit hands f to the pool; returns ErrExecutorClosed once Close has run.
func (tp *ThreadPool) Submit(f func()) error {
	return tp.executor.Submit(f)
}

// Close signals all pool workers to stop and returns without waiting for
// in-flight tasks to finish; queued tasks are not run.
func (tp *ThreadPool) Close() {
	tp.executor.Close()
}
