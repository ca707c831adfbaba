// File: rpc/call.go
// Package rpc
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package rpc

import (
	"sync"
	"time"
)

// CallController carries the per-call options the reactor consults when
// assigning a deadline — a minimal stand-in for the full RPC controller,
// which lives in the out-of-scope service-dispatch layer.
type CallController struct {
	// Timeout is the caller's requested timeout; zero means "no timeout",
	// which assign_outbound_call treats as a warning-worthy edge case and
	// substitutes the maximum representable deadline.
	Timeout time.Duration
}

// OutboundCall is the unit of work queued through Reactor.QueueOutboundCall.
// Completion and failure are both expressed by calling complete once; a
// second call is a no-op, like the connection's own Shutdown.
type OutboundCall struct {
	ConnId     ConnectionId
	Controller CallController

	once sync.Once
	done chan struct{}
	err  error

	mu            sync.Mutex
	cancelTimeout func()
}

// NewOutboundCall builds a call targeting id with the given controller.
func NewOutboundCall(id ConnectionId, ctrl CallController) *OutboundCall {
	return &OutboundCall{ConnId: id, Controller: ctrl, done: make(chan struct{})}
}

// setTimeoutCanceler records the scheduler handle assign_outbound_call armed
// for this call's deadline, so complete can disarm it once the call finishes
// through the ordinary dispatch path instead of by timing out.
func (c *OutboundCall) setTimeoutCanceler(fn func()) {
	c.mu.Lock()
	c.cancelTimeout = fn
	c.mu.Unlock()
}

// complete marks the call finished with err (nil on success). Safe to call
// from any goroutine; only the first call has effect. Any armed timeout
// timer is canceled regardless, since Cancel is idempotent.
func (c *OutboundCall) complete(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
	c.mu.Lock()
	cancel := c.cancelTimeout
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the call completes and returns its terminal error, or
// nil on success.
func (c *OutboundCall) Wait() error {
	<-c.done
	return c.err
}

// Deadline computes the call's absolute deadline from now, matching
// assign_outbound_call's §4.3 rule: no timeout means the maximum
// representable time rather than an immediate expiry.
func (c *OutboundCall) Deadline(now time.Time) time.Time {
	if c.Controller.Timeout <= 0 {
		return maxTime
	}
	return now.Add(c.Controller.Timeout)
}

var maxTime = time.Unix(1<<62, 0)
