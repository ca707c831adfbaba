// File: rpc/taskqueue.go
// Package rpc
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TaskQueue is the cross-thread intrusive FIFO described by §4.1: a mutex
// protecting an eapache/queue.Queue plus an async wakeup primitive that
// interrupts the owning ReactorThread's loop. Guarantee: a task enqueued
// before closing becomes true is run or aborted exactly once; a task
// submitted after closing becomes true is always aborted on the submitting
// thread.

package rpc

import (
	"sync"

	"github.com/eapache/queue"
)

// TaskQueue is the shared, lock-protected pending-task list owned by a
// Reactor and drained only by its ReactorThread.
type TaskQueue struct {
	mu      sync.Mutex
	tasks   *queue.Queue
	closing bool
	wake    chan struct{}
}

// NewTaskQueue constructs an empty, open TaskQueue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{
		tasks: queue.New(),
		wake:  make(chan struct{}, 1),
	}
}

// Wake returns the channel the owning loop selects on to notice new work.
func (q *TaskQueue) Wake() <-chan struct{} {
	return q.wake
}

// Notify wakes the owning loop without enqueuing a task. Shutdown uses this
// after SetClosing so the async handler observes closing promptly even if
// no task happens to be in flight.
func (q *TaskQueue) Notify() {
	q.signalWake()
}

func (q *TaskQueue) signalWake() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Schedule enqueues task for the reactor thread, or aborts it immediately
// on the calling goroutine if the queue is already closing. The lock is
// never held across Abort, since Abort may take arbitrary locks in the
// caller.
func (q *TaskQueue) Schedule(task ReactorTask) {
	q.mu.Lock()
	if q.closing {
		q.mu.Unlock()
		task.Abort(ShutdownErr)
		return
	}
	q.tasks.Add(task)
	q.mu.Unlock()
	q.signalWake()
}

// Drain swaps the pending tasks out for processing on the reactor thread.
// Returns ok=false with a nil slice if the queue is closing — the shutdown
// path drains tasks itself via AbortRemaining instead.
func (q *TaskQueue) Drain() (tasks []ReactorTask, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closing {
		return nil, false
	}
	return q.popAllLocked(), true
}

func (q *TaskQueue) popAllLocked() []ReactorTask {
	n := q.tasks.Length()
	if n == 0 {
		return nil
	}
	out := make([]ReactorTask, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, q.tasks.Remove().(ReactorTask))
	}
	return out
}

// SetClosing marks the queue as closing and returns whether it already was,
// so Reactor.Shutdown can make shutdown idempotent without re-running the
// teardown sequence.
func (q *TaskQueue) SetClosing() (already bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	already = q.closing
	q.closing = true
	return already
}

// IsClosing reports the current closing state.
func (q *TaskQueue) IsClosing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closing
}

// AbortRemaining drains whatever is left in the queue and aborts every task
// with err. Called once the reactor thread has exited, per the shutdown
// protocol's step 4: no new tasks can arrive because closing is already set.
func (q *TaskQueue) AbortRemaining(err error) {
	q.mu.Lock()
	tasks := q.popAllLocked()
	q.mu.Unlock()
	for _, t := range tasks {
		t.Abort(err)
	}
}
