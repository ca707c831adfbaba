// File: rpc/reactor_thread.go
// Package rpc
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ReactorThread owns one event loop, the set of connections on that loop,
// a periodic timer, and all per-connection bookkeeping. Every field below
// is touched only from the goroutine running (*ReactorThread).run — the
// invariant every other file in this package is written to preserve.

package rpc

import (
	"context"
	"time"

	"github.com/momentics/go-rpcreactor/reactor"
	"github.com/momentics/go-rpcreactor/transport"
	"go.uber.org/zap"
)

// ReactorThread is the single-threaded cooperative loop described by §4.2.
type ReactorThread struct {
	r *Reactor

	loop *Loop

	clientConns map[ConnectionId]*Connection
	serverConns []*Connection

	connRegistry map[uintptr]*Connection
	nextConnID   uintptr

	curTime time.Time

	doneCh chan struct{}
}

func newReactorThread(r *Reactor, loop *Loop) *ReactorThread {
	return &ReactorThread{
		r:            r,
		loop:         loop,
		clientConns:  make(map[ConnectionId]*Connection),
		connRegistry: make(map[uintptr]*Connection),
		curTime:      time.Now(),
		doneCh:       make(chan struct{}),
	}
}

// run is the event-loop thread's body: NewReactor spawns it through
// Reactor.runAndClose, and run_thread's diagnostic naming is the zap
// "reactor" field on the logger it builds.
func (rt *ReactorThread) run() {
	defer close(rt.doneCh)
	defer rt.r.releaseMessengerRef()

	log := rt.r.log.With(zap.String("reactor", rt.r.name))
	ticker := time.NewTicker(rt.r.cfg.CoarseTimerGranularity)
	defer ticker.Stop()

	for {
		select {
		case <-rt.r.taskQueue.Wake():
			if rt.asyncHandler() {
				log.Debug("reactor thread observed closing, breaking loop")
				return
			}
		case <-ticker.C:
			rt.timerHandler()
		case ev := <-rt.loop.Events():
			rt.handleReadiness(ev)
		}
	}
}

// asyncHandler runs on the reactor thread when woken (§4.2). It returns true
// once it has observed closing and torn every connection down.
func (rt *ReactorThread) asyncHandler() bool {
	if rt.r.taskQueue.IsClosing() {
		rt.shutdownInternal()
		return true
	}
	tasks, ok := rt.r.taskQueue.Drain()
	if !ok {
		rt.shutdownInternal()
		return true
	}
	for _, t := range tasks {
		t.Run(rt)
	}
	return false
}

// timerHandler advances cur_time and reaps idle server connections.
func (rt *ReactorThread) timerHandler() {
	rt.curTime = time.Now()
	rt.scanIdleConnections()
}

// scanIdleConnections filters serverConns in place in a single pass: kept
// connections are compacted into the same backing array and reaped ones are
// skipped, so nothing is erased from the slice while it is being ranged.
func (rt *ReactorThread) scanIdleConnections() {
	keepalive := rt.r.cfg.ConnectionKeepaliveTime
	kept := rt.serverConns[:0]
	for _, c := range rt.serverConns {
		if c.Idle() && rt.curTime.Sub(c.LastActivityTime()) > keepalive {
			c.Shutdown(ConnectionTimeoutError(keepalive))
			if rt.r.metrics != nil {
				rt.r.metrics.ServerConnections.Dec()
			}
			continue
		}
		kept = append(kept, c)
	}
	rt.serverConns = kept
}

// shutdownInternal tears down every connection exactly once. The client map
// is ranged once, deleting each entry as it is shut down; Go permits
// deleting map entries during a range.
func (rt *ReactorThread) shutdownInternal() {
	for id, c := range rt.clientConns {
		c.Shutdown(ShutdownErr)
		delete(rt.clientConns, id)
		if rt.r.metrics != nil {
			rt.r.metrics.ClientConnections.Dec()
		}
	}
	for _, c := range rt.serverConns {
		c.Shutdown(ShutdownErr)
		if rt.r.metrics != nil {
			rt.r.metrics.ServerConnections.Dec()
		}
	}
	rt.serverConns = nil
	_ = rt.loop.Close()
}

// assignOutboundCall is AssignOutboundCallTask.run (§4.3).
func (rt *ReactorThread) assignOutboundCall(call *OutboundCall) {
	now := time.Now()
	if call.Controller.Timeout <= 0 {
		rt.r.log.Warn("outbound call has no timeout, using maximum representable deadline",
			zap.String("reactor", rt.r.name), zap.String("conn_id", call.ConnId.String()))
	}
	deadline := call.Deadline(now)

	conn, err := rt.findOrStartConnection(call.ConnId, deadline)
	if err != nil {
		call.complete(err)
		return
	}
	if call.Controller.Timeout > 0 {
		timeout := call.Controller.Timeout
		cancelable, err := rt.r.scheduler.Schedule(int64(timeout), func() {
			call.complete(CallTimeoutError(timeout))
		})
		if err == nil {
			call.setTimeoutCanceler(func() { _ = rt.r.scheduler.Cancel(cancelable) })
		}
	}

	if err := conn.QueueOutboundCall(call); err != nil {
		call.complete(err)
		return
	}
}

// findOrStartConnection is §4.3's eponymous routine.
func (rt *ReactorThread) findOrStartConnection(id ConnectionId, deadline time.Time) (*Connection, error) {
	if c, ok := rt.clientConns[id]; ok {
		return c, nil
	}

	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()
	conn, err := transport.Dial(ctx, id.RemoteAddr)
	if err != nil {
		return nil, NewNetworkError("connect failed", err)
	}

	connection := newClientConnection(id, conn)
	if err := rt.startConnectionNegotiation(connection, DirectionClient, deadline); err != nil {
		_ = conn.Close()
		return nil, err
	}

	rt.clientConns[id] = connection
	if rt.r.metrics != nil {
		rt.r.metrics.ClientConnections.Inc()
	}
	return connection, nil
}

// startConnectionNegotiation is §4.4's entry point.
func (rt *ReactorThread) startConnectionNegotiation(conn *Connection, dir Direction, deadline time.Time) error {
	if dir == DirectionServer {
		return rt.r.negotiation.StartServer(rt.r, conn, deadline)
	}
	return rt.r.negotiation.StartClient(rt.r, conn, deadline)
}

// completeConnectionNegotiation runs the task the negotiation bridge posts
// back once a worker finishes (§4.4).
func (rt *ReactorThread) completeConnectionNegotiation(conn *Connection, status error) {
	if status != nil {
		if rt.r.metrics != nil {
			rt.r.metrics.NegotiationFailures.Inc()
		}
		rt.destroyConnection(conn, status)
		return
	}
	if conn.ID().ServiceName == "" {
		rt.r.log.DPanic("empty service name after negotiation",
			zap.String("reactor", rt.r.name), zap.String("trace_id", conn.TraceID()))
		rt.destroyConnection(conn, NewIllegalStateError("empty service name after negotiation"))
		return
	}
	if err := conn.SetNonBlocking(true); err != nil {
		rt.r.log.DPanic("set non-blocking failed",
			zap.Error(err), zap.String("trace_id", conn.TraceID()))
		rt.destroyConnection(conn, NewIllegalStateError("set non-blocking failed"))
		return
	}
	conn.MarkNegotiationComplete()

	id := rt.nextConnID + 1
	rt.nextConnID = id
	rt.connRegistry[id] = conn
	_ = conn.EpollRegister(rt.loop, id)
}

// handleReadiness processes a poller readiness event. Wire framing itself
// is an external collaborator's concern (§1 Non-goals); the reactor drains
// the pool-backed buffer far enough to notice a dead peer.
func (rt *ReactorThread) handleReadiness(ev reactor.Event) {
	conn, ok := rt.connRegistry[ev.UserData]
	if !ok {
		return
	}
	conn.touch()
	if err := conn.drainReadable(); err != nil {
		rt.destroyConnection(conn, NewNetworkError("connection read failed", err))
	}
}

// destroyConnection is §4.6.
func (rt *ReactorThread) destroyConnection(conn *Connection, status error) {
	conn.Shutdown(status)
	switch conn.Direction() {
	case DirectionClient:
		if _, ok := rt.clientConns[conn.ID()]; ok {
			delete(rt.clientConns, conn.ID())
			if rt.r.metrics != nil {
				rt.r.metrics.ClientConnections.Dec()
			}
		} else {
			rt.r.log.DPanic("destroyConnection: client connection missing from clientConns",
				zap.String("reactor", rt.r.name), zap.String("trace_id", conn.TraceID()))
		}
	case DirectionServer:
		for i, c := range rt.serverConns {
			if c == conn {
				rt.serverConns = append(rt.serverConns[:i], rt.serverConns[i+1:]...)
				if rt.r.metrics != nil {
					rt.r.metrics.ServerConnections.Dec()
				}
				break
			}
		}
	}
}

// registerConnection is RegisterConnectionTask.run (§4.5): starts
// server-side negotiation with the configured deadline and tracks the
// connection in server_conns regardless of immediate negotiation outcome.
func (rt *ReactorThread) registerConnection(conn *Connection) {
	deadline := time.Now().Add(rt.r.cfg.ServerNegotiationTimeout)
	rt.serverConns = append(rt.serverConns, conn)
	if rt.r.metrics != nil {
		rt.r.metrics.ServerConnections.Inc()
	}
	if err := rt.startConnectionNegotiation(conn, DirectionServer, deadline); err != nil {
		rt.destroyConnection(conn, err)
	}
}
