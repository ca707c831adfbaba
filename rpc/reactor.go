// File: rpc/reactor.go
// Package rpc
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reactor is the public shell around one ReactorThread: a TaskQueue other
// goroutines schedule work on, a Loop for OS-level readiness, and the
// shared collaborators (negotiation bridge, metrics, logger, config) every
// task on the thread consults. Reactor itself holds no connection state —
// that lives entirely on ReactorThread, touched only by its own goroutine.

package rpc

import (
	"sync"

	"github.com/momentics/go-rpcreactor/api"
	"github.com/momentics/go-rpcreactor/internal/concurrency"
	"go.uber.org/zap"
)

// Reactor owns one event-loop thread and its task queue (§4.1–§4.2).
type Reactor struct {
	name string
	cfg  *Config

	taskQueue   *TaskQueue
	thread      *ReactorThread
	negotiation *NegotiationBridge
	metrics     *Metrics
	log         *zap.Logger
	scheduler   *concurrency.Scheduler

	messenger *Messenger

	startOnce sync.Once
	closed    chan struct{}
}

// NewReactor builds and starts a Reactor named name. The caller supplies the
// negotiation bridge, metrics, logger, and config; messenger may be nil for
// a standalone reactor used outside a Messenger (e.g. in tests).
func NewReactor(name string, cfg *Config, negotiation *NegotiationBridge, metrics *Metrics, log *zap.Logger, messenger *Messenger) (*Reactor, error) {
	loop, err := NewLoop()
	if err != nil {
		return nil, err
	}
	r := &Reactor{
		name:        name,
		cfg:         cfg,
		taskQueue:   NewTaskQueue(),
		negotiation: negotiation,
		metrics:     metrics,
		log:         log,
		scheduler:   concurrency.NewScheduler(),
		messenger:   messenger,
		closed:      make(chan struct{}),
	}
	r.thread = newReactorThread(r, loop)
	r.startOnce.Do(func() {
		go r.runAndClose()
	})
	return r, nil
}

// runAndClose runs the reactor thread to completion and signals closed.
func (r *Reactor) runAndClose() {
	r.thread.run()
	r.scheduler.Close()
	close(r.closed)
}

// releaseMessengerRef is called from the reactor thread's own goroutine as
// it exits, letting a Messenger notice when every one of its reactors has
// finished tearing down without polling.
func (r *Reactor) releaseMessengerRef() {
	if r.messenger != nil {
		r.messenger.reactorStopped(r)
	}
}

// scheduleCompleteNegotiation posts CompleteConnectionNegotiation back onto
// the reactor thread once a negotiation worker finishes (§4.4).
func (r *Reactor) scheduleCompleteNegotiation(conn *Connection, status error) {
	r.taskQueue.Schedule(newFuncTask(
		func(rt *ReactorThread) { rt.completeConnectionNegotiation(conn, status) },
		func(err error) { conn.Shutdown(err) },
	))
}

// QueueOutboundCall schedules AssignOutboundCallTask for call (§4.3). The
// call's eventual Wait() unblocks with the outcome regardless of whether
// the task runs or is aborted.
func (r *Reactor) QueueOutboundCall(call *OutboundCall) {
	r.taskQueue.Schedule(newFuncTask(
		func(rt *ReactorThread) { rt.assignOutboundCall(call) },
		func(err error) { call.complete(err) },
	))
}

// RegisterInboundSocket hands an accepted socket to the reactor thread for
// negotiation (§4.5). Per the documented abort behavior, a connection that
// never makes it onto the loop because the reactor is shutting down is
// simply closed — the Go equivalent of "dropped".
func (r *Reactor) RegisterInboundSocket(conn *Connection) {
	r.taskQueue.Schedule(newFuncTask(
		func(rt *ReactorThread) { rt.registerConnection(conn) },
		func(err error) { conn.Shutdown(err) },
	))
}

// GetMetrics schedules a task that snapshots connection counts on the
// reactor thread and blocks until it runs, mirroring the original's
// latch-based GetMetricsTask (§4.7).
func (r *Reactor) GetMetrics() (ReactorMetrics, error) {
	var snap ReactorMetrics
	done := make(chan struct{})
	var taskErr error

	r.taskQueue.Schedule(newFuncTask(
		func(rt *ReactorThread) {
			snap = ReactorMetrics{
				NumClientConnections: len(rt.clientConns),
				NumServerConnections: len(rt.serverConns),
			}
			close(done)
		},
		func(err error) {
			taskErr = err
			close(done)
		},
	))

	<-done
	return snap, taskErr
}

// Shutdown implements the four-step protocol from §5: mark closing, wake
// the loop so the thread observes it promptly even with no task in flight,
// wait for the thread to finish tearing down every connection, then abort
// anything left in the queue (submissions racing the SetClosing flip).
// Idempotent: a second call observes already==true and returns immediately
// after the first call's teardown has completed.
func (r *Reactor) Shutdown() error {
	already := r.taskQueue.SetClosing()
	if !already {
		r.taskQueue.Notify()
	}
	<-r.closed
	r.taskQueue.AbortRemaining(ShutdownErr)
	return nil
}

var _ api.GracefulShutdown = (*Reactor)(nil)
