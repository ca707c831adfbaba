// Copyright 2026 momentics@gmail.com
// License: Apache 2.0
//
// End-to-end reactor scenarios grounded in the same shapes the original's
// mt-rpc-test.cc exercises: queue-then-complete, shutdown racing in-flight
// negotiation, idle reap, and metrics sampling.

package rpc

import (
	"bufio"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/momentics/go-rpcreactor/internal/concurrency"
	"go.uber.org/zap"
)

func startEchoPeer(t *testing.T) net.Listener {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				r := bufio.NewReader(c)
				if _, err := r.ReadString('\n'); err != nil {
					return
				}
				if _, err := r.ReadString('\n'); err != nil {
					return
				}
				_, _ = c.Write([]byte("OK\n"))
				buf := make([]byte, 1)
				for {
					if _, err := c.Read(buf); err != nil {
						return
					}
				}
			}(conn)
		}
	}()
	return ln
}

func newTestReactor(t *testing.T) (*Reactor, func()) {
	pool := concurrency.NewThreadPool(2, -1)
	bridge := NewNegotiationBridge(pool, nil, zap.NewNop())
	cfg := DefaultConfig()
	cfg.CoarseTimerGranularity = 20 * time.Millisecond
	r, err := NewReactor("test-reactor", cfg, bridge, nil, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewReactor: %v", err)
	}
	return r, func() { pool.Close() }
}

func TestReactor_QueueOutboundCall_CompletesAfterNegotiation(t *testing.T) {
	ln := startEchoPeer(t)
	defer ln.Close()

	r, cleanup := newTestReactor(t)
	defer cleanup()
	defer r.Shutdown()

	call := NewOutboundCall(ConnectionId{
		RemoteAddr:  ln.Addr().String(),
		ServiceName: "svc",
		Credentials: "cred",
	}, CallController{Timeout: 2 * time.Second})

	r.QueueOutboundCall(call)

	if err := call.Wait(); err != nil {
		t.Fatalf("expected successful negotiation+dispatch, got %v", err)
	}

	snap, err := r.GetMetrics()
	if err != nil {
		t.Fatalf("GetMetrics: %v", err)
	}
	if snap.NumClientConnections != 1 {
		t.Fatalf("expected 1 client connection, got %d", snap.NumClientConnections)
	}
}

func TestReactor_FindOrStartConnection_ReusesConnection(t *testing.T) {
	ln := startEchoPeer(t)
	defer ln.Close()

	r, cleanup := newTestReactor(t)
	defer cleanup()
	defer r.Shutdown()

	id := ConnectionId{RemoteAddr: ln.Addr().String(), ServiceName: "svc", Credentials: "cred"}

	first := NewOutboundCall(id, CallController{Timeout: 2 * time.Second})
	r.QueueOutboundCall(first)
	if err := first.Wait(); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	second := NewOutboundCall(id, CallController{Timeout: 2 * time.Second})
	r.QueueOutboundCall(second)
	if err := second.Wait(); err != nil {
		t.Fatalf("second call failed: %v", err)
	}

	snap, _ := r.GetMetrics()
	if snap.NumClientConnections != 1 {
		t.Fatalf("expected connection reuse, got %d client connections", snap.NumClientConnections)
	}
}

func TestReactor_ShutdownFailsInFlightOutboundCalls(t *testing.T) {
	// A listener that accepts but never completes the negotiation preamble,
	// the "shutdown races negotiation" scenario.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn // accepted, never responds
		}
	}()

	r, cleanup := newTestReactor(t)
	defer cleanup()

	call := NewOutboundCall(ConnectionId{
		RemoteAddr:  ln.Addr().String(),
		ServiceName: "svc",
		Credentials: "cred",
	}, CallController{Timeout: 5 * time.Second})

	r.QueueOutboundCall(call)
	time.Sleep(50 * time.Millisecond) // let findOrStartConnection dial and submit negotiation

	r.Shutdown()

	if err := call.Wait(); err == nil {
		t.Fatal("expected shutdown to fail the in-flight outbound call")
	}
}

func TestReactor_ShutdownIsIdempotent(t *testing.T) {
	r, cleanup := newTestReactor(t)
	defer cleanup()

	r.Shutdown()
	r.Shutdown() // must not block or panic
}

func TestReactor_ScanIdleConnectionsReapsStaleServerConnections(t *testing.T) {
	pool := concurrency.NewThreadPool(2, -1)
	defer pool.Close()
	bridge := NewNegotiationBridge(pool, nil, zap.NewNop())

	cfg := DefaultConfig()
	cfg.CoarseTimerGranularity = 10 * time.Millisecond
	cfg.ConnectionKeepaliveTime = 30 * time.Millisecond

	r, err := NewReactor("idle-reap", cfg, bridge, nil, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewReactor: %v", err)
	}
	defer r.Shutdown()

	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()

	// The reactor's own negotiation bridge reads the preamble from
	// serverSide; this goroutine plays the remote peer writing it and
	// reading the ack, so it must never touch serverSide itself.
	go func() {
		_, _ = clientSide.Write([]byte("svc\ncred\n"))
		buf := make([]byte, 3)
		_, _ = clientSide.Read(buf)
	}()

	r.RegisterInboundSocket(newServerConnection(serverSide))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := r.GetMetrics()
		if err == nil && snap.NumServerConnections == 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("idle server connection was never reaped")
}

// TestReactor_HammerThenShutdown queues a burst of outbound calls from
// several goroutines against a live peer while Shutdown races them, the
// "hammer the messenger, then shut it down" scenario: every call must
// resolve (success or shutdown error) without the reactor deadlocking or
// panicking.
func TestReactor_HammerThenShutdown(t *testing.T) {
	ln := startEchoPeer(t)
	defer ln.Close()

	r, cleanup := newTestReactor(t)
	defer cleanup()

	id := ConnectionId{RemoteAddr: ln.Addr().String(), ServiceName: "svc", Credentials: "cred"}

	const goroutines = 4
	const callsEach = 25
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < callsEach; i++ {
				call := NewOutboundCall(id, CallController{Timeout: 2 * time.Second})
				r.QueueOutboundCall(call)
				_ = call.Wait() // success or shutdown error, either is fine here
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	r.Shutdown()
	wg.Wait()
}

// TestReactor_BurstQueuesAgainstSlowNegotiationThenFlushes piles many
// outbound calls up on a single connection still mid-negotiation; all of
// them must flush once negotiation completes instead of being dropped or
// reordered into failure.
func TestReactor_BurstQueuesAgainstSlowNegotiationThenFlushes(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	release := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
		<-release // hold the preamble ack back to keep negotiation in flight
		_, _ = conn.Write([]byte("OK\n"))
		buf := make([]byte, 1)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	r, cleanup := newTestReactor(t)
	defer cleanup()
	defer r.Shutdown()

	id := ConnectionId{RemoteAddr: ln.Addr().String(), ServiceName: "svc", Credentials: "cred"}

	const burst = 20
	calls := make([]*OutboundCall, burst)
	for i := range calls {
		calls[i] = NewOutboundCall(id, CallController{Timeout: 5 * time.Second})
		r.QueueOutboundCall(calls[i])
	}

	time.Sleep(50 * time.Millisecond) // let the burst queue up behind negotiation
	close(release)

	for i, call := range calls {
		if err := call.Wait(); err != nil {
			t.Fatalf("queued call %d failed: %v", i, err)
		}
	}
}

// TestReactor_AcceptDuringShutdown races inbound-socket registration against
// Shutdown from several goroutines; every socket must end up closed and the
// reactor must neither deadlock nor panic regardless of interleaving.
func TestReactor_AcceptDuringShutdown(t *testing.T) {
	r, cleanup := newTestReactor(t)
	defer cleanup()

	const goroutines = 8
	var wg sync.WaitGroup
	wg.Add(goroutines + 1)

	clients := make([]net.Conn, goroutines)
	servers := make([]net.Conn, goroutines)
	for i := 0; i < goroutines; i++ {
		clients[i], servers[i] = net.Pipe()
	}

	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			r.RegisterInboundSocket(newServerConnection(servers[i]))
		}(i)
	}
	go func() {
		defer wg.Done()
		r.Shutdown()
	}()
	wg.Wait()

	for i := range clients {
		buf := make([]byte, 1)
		_ = clients[i].SetReadDeadline(time.Now().Add(time.Second))
		if _, err := clients[i].Read(buf); err == nil {
			t.Fatalf("socket %d was never closed by shutdown", i)
		}
		clients[i].Close()
	}
}

func TestReactor_RegisterInboundSocketAfterShutdownIsDropped(t *testing.T) {
	r, cleanup := newTestReactor(t)
	defer cleanup()
	r.Shutdown()

	client, server := net.Pipe()
	defer client.Close()

	r.RegisterInboundSocket(newServerConnection(server))

	buf := make([]byte, 1)
	server.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := server.Read(buf); err == nil {
		t.Fatal("expected the dropped socket to be closed")
	}
}
