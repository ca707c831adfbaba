// File: rpc/task.go
// Package rpc
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package rpc

// ReactorTask is a unit of cross-thread work. Exactly one of Run or Abort
// is invoked per task: Run on the owning ReactorThread after dequeue, Abort
// on the submitting thread (or during shutdown drain) when the reactor
// cannot accept the work.
type ReactorTask interface {
	Run(rt *ReactorThread)
	Abort(err error)
}

// funcTask adapts a pair of closures to ReactorTask, the common case for
// the connection-lifecycle tasks in §4.3–§4.6.
type funcTask struct {
	run   func(rt *ReactorThread)
	abort func(err error)
}

func (t *funcTask) Run(rt *ReactorThread) {
	if t.run != nil {
		t.run(rt)
	}
}

func (t *funcTask) Abort(err error) {
	if t.abort != nil {
		t.abort(err)
	}
}

// newFuncTask builds a ReactorTask from a run/abort pair. abort may be nil
// for tasks with no useful abort behavior.
func newFuncTask(run func(rt *ReactorThread), abort func(err error)) ReactorTask {
	return &funcTask{run: run, abort: abort}
}
