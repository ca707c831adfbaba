// Copyright 2026 momentics@gmail.com
// License: Apache 2.0

package rpc

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestShutdownErr_Text(t *testing.T) {
	if got := ShutdownErr.Error(); got != "reactor is shutting down" {
		t.Fatalf("unexpected shutdown error text: %q", got)
	}
}

func TestErrMessengerShuttingDown_Text(t *testing.T) {
	if got := ErrMessengerShuttingDown.Error(); got != "Client RPC Messenger shutting down" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestConnectionTimeoutError_ContainsSeconds(t *testing.T) {
	err := ConnectionTimeoutError(10 * time.Minute)
	if msg := err.Error(); !strings.Contains(msg, "connection timed out after") || !strings.Contains(msg, "seconds") {
		t.Fatalf("unexpected text: %q", msg)
	}
}

func TestError_UnwrapReachesCause(t *testing.T) {
	cause := errors.New("dial refused")
	err := NewNetworkError("connect failed", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause, got %v", err)
	}
}

func TestError_KindsAreDistinct(t *testing.T) {
	kinds := map[ErrorKind]bool{
		KindNetwork:            true,
		KindServiceUnavailable: true,
		KindShutdown:           true,
		KindIllegalState:       true,
	}
	if len(kinds) != 4 {
		t.Fatal("expected four distinct error kinds")
	}
}
