// File: internal/concurrency/scheduler.go
// Package concurrency
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Min-heap timer scheduler backing api.Scheduler. One goroutine owns the
// heap and a single time.Timer armed for the next-due entry; Schedule and
// Cancel hand the goroutine work over a channel instead of locking the heap
// directly, so the run loop is the sole mutator.

package concurrency

import (
	"container/heap"
	"sync/atomic"
	"time"

	"github.com/momentics/go-rpcreactor/api"
)

type timerEntry struct {
	deadline int64 // nanoseconds on the Scheduler.Now clock
	fn       func()
	seq      int64
	canceled int32
	done     chan struct{}
	err      error
}

// Cancel marks the entry canceled; a pending fire becomes a no-op.
func (e *timerEntry) Cancel() error {
	if atomic.CompareAndSwapInt32(&e.canceled, 0, 1) {
		select {
		case <-e.done:
		default:
			close(e.done)
		}
	}
	return nil
}

func (e *timerEntry) Done() <-chan struct{} { return e.done }
func (e *timerEntry) Err() error            { return e.err }

type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline < h[j].deadline }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x interface{}) { *h = append(*h, x.(*timerEntry)) }
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

type scheduleReq struct {
	entry *timerEntry
}

// Scheduler is a single-goroutine min-heap timer queue.
type Scheduler struct {
	scheduleCh chan scheduleReq
	stopCh     chan struct{}
	stopped    chan struct{}
	closed     int32
	seq        int64
}

// NewScheduler starts the scheduler's run loop and returns it.
func NewScheduler() *Scheduler {
	s := &Scheduler{
		scheduleCh: make(chan scheduleReq),
		stopCh:     make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Schedule arranges for fn to run after delayNanos, returning a handle that
// can cancel it before it fires. Returns ErrSchedulerClosed once Close has
// been called.
func (s *Scheduler) Schedule(delayNanos int64, fn func()) (api.Cancelable, error) {
	if atomic.LoadInt32(&s.closed) == 1 {
		return nil, ErrSchedulerClosed
	}
	e := &timerEntry{
		deadline: s.Now() + delayNanos,
		fn:       fn,
		seq:      atomic.AddInt64(&s.seq, 1),
		done:     make(chan struct{}),
	}
	select {
	case s.scheduleCh <- scheduleReq{entry: e}:
		return e, nil
	case <-s.stopCh:
		return nil, ErrSchedulerClosed
	}
}

// Cancel aborts a previously scheduled callback; a no-op if it already fired.
func (s *Scheduler) Cancel(c api.Cancelable) error {
	return c.Cancel()
}

var _ api.Scheduler = (*Scheduler)(nil)

// monoEpoch anchors Now; time.Since reads Go's monotonic clock.
var monoEpoch = time.Now()

// Now returns monotonic time in nanoseconds, counted from package
// initialization.
func (s *Scheduler) Now() int64 {
	return int64(time.Since(monoEpoch))
}

// Close stops the run loop. Pending entries are dropped without firing.
func (s *Scheduler) Close() {
	if atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		close(s.stopCh)
		<-s.stopped
	}
}

func (s *Scheduler) run() {
	defer close(s.stopped)
	h := &timerHeap{}
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	armed := false

	for {
		if h.Len() > 0 {
			next := (*h)[0]
			if !armed {
				timer.Reset(time.Duration(next.deadline - s.Now()))
				armed = true
			}
		}

		select {
		case req := <-s.scheduleCh:
			heap.Push(h, req.entry)
			if armed {
				timer.Stop()
				armed = false
			}
		case <-timer.C:
			armed = false
			now := s.Now()
			for h.Len() > 0 && (*h)[0].deadline <= now {
				e := heap.Pop(h).(*timerEntry)
				if atomic.CompareAndSwapInt32(&e.canceled, 0, 1) {
					e.fn()
					close(e.done)
				}
			}
		case <-s.stopCh:
			if armed {
				timer.Stop()
			}
			return
		}
	}
}
