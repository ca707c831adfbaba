// Copyright 2026 momentics@gmail.com
// License: Apache 2.0

package rpc

import (
	"testing"
	"time"
)

func TestOutboundCall_DeadlineNoTimeoutIsMaximal(t *testing.T) {
	call := NewOutboundCall(ConnectionId{RemoteAddr: "x:1"}, CallController{})
	now := time.Now()
	if d := call.Deadline(now); d.Before(now.Add(24 * time.Hour)) {
		t.Fatalf("expected maximal deadline for zero timeout, got %v", d)
	}
}

func TestOutboundCall_DeadlineWithTimeout(t *testing.T) {
	call := NewOutboundCall(ConnectionId{RemoteAddr: "x:1"}, CallController{Timeout: 5 * time.Second})
	now := time.Now()
	d := call.Deadline(now)
	if d.Sub(now) != 5*time.Second {
		t.Fatalf("expected deadline 5s from now, got %v", d.Sub(now))
	}
}

func TestOutboundCall_CompleteIsIdempotent(t *testing.T) {
	call := NewOutboundCall(ConnectionId{}, CallController{})
	call.complete(ErrEOFFromRemote)
	call.complete(nil) // must not panic on double-close and must not overwrite err

	if err := call.Wait(); err != ErrEOFFromRemote {
		t.Fatalf("expected first completion to stick, got %v", err)
	}
}

func TestOutboundCall_WaitBlocksUntilComplete(t *testing.T) {
	call := NewOutboundCall(ConnectionId{}, CallController{})
	done := make(chan error, 1)
	go func() { done <- call.Wait() }()

	select {
	case <-done:
		t.Fatal("Wait returned before complete was called")
	case <-time.After(20 * time.Millisecond):
	}

	call.complete(nil)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait never returned after complete")
	}
}
