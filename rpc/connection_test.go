// Copyright 2026 momentics@gmail.com
// License: Apache 2.0

package rpc

import (
	"net"
	"testing"
	"time"
)

func TestConnection_QueueOutboundCallFlushesOnceReady(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	conn := newClientConnection(ConnectionId{RemoteAddr: "pipe"}, client)
	call := NewOutboundCall(conn.ID(), CallController{})
	if err := conn.QueueOutboundCall(call); err != nil {
		t.Fatalf("unexpected error queuing before ready: %v", err)
	}

	select {
	case <-call.done:
		t.Fatal("call completed before connection became ready")
	default:
	}

	conn.MarkNegotiationComplete()

	select {
	case <-call.done:
	case <-time.After(time.Second):
		t.Fatal("call never completed after MarkNegotiationComplete")
	}
	if err := call.Wait(); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestConnection_QueueOutboundCallAfterShutdownFails(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	conn := newClientConnection(ConnectionId{RemoteAddr: "pipe"}, client)
	conn.Shutdown(ShutdownErr)

	call := NewOutboundCall(conn.ID(), CallController{})
	if err := conn.QueueOutboundCall(call); err != ShutdownErr {
		t.Fatalf("expected ShutdownErr, got %v", err)
	}
}

func TestConnection_ShutdownIsIdempotentAndFailsPending(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	conn := newClientConnection(ConnectionId{RemoteAddr: "pipe"}, client)
	call := NewOutboundCall(conn.ID(), CallController{})
	_ = conn.QueueOutboundCall(call)

	conn.Shutdown(ErrEOFFromRemote)
	conn.Shutdown(ShutdownErr) // second call must be a no-op

	if err := call.Wait(); err != ErrEOFFromRemote {
		t.Fatalf("expected first shutdown status to stick, got %v", err)
	}
}

func TestConnection_IdleReflectsStateAndPendingCalls(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	conn := newClientConnection(ConnectionId{RemoteAddr: "pipe"}, client)
	if conn.Idle() {
		t.Fatal("connection should not be idle while negotiating")
	}
	conn.MarkNegotiationComplete()
	if !conn.Idle() {
		t.Fatal("ready connection with no pending calls should be idle")
	}
}
