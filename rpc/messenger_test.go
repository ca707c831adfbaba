// Copyright 2026 momentics@gmail.com
// License: Apache 2.0

package rpc

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func TestMessenger_AcceptorPoolDispatchesToReactors(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	m, err := NewMessenger(zap.NewNop(), metrics, nil, WithReactorCount(2))
	if err != nil {
		t.Fatalf("NewMessenger: %v", err)
	}
	defer m.Shutdown()

	pool, err := m.RegisterAcceptorPool("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("RegisterAcceptorPool: %v", err)
	}

	conn, err := net.Dial("tcp", pool.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("svc\ncred\n")); err != nil {
		t.Fatalf("write preamble: %v", err)
	}
	ack, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack != "OK\n" {
		t.Fatalf("unexpected ack %q", ack)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		var total int
		for _, r := range m.reactors {
			snap, _ := r.GetMetrics()
			total += snap.NumServerConnections
		}
		if total == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("accepted connection never registered with any reactor")
}

func TestMessenger_ShutdownIsIdempotent(t *testing.T) {
	m, err := NewMessenger(zap.NewNop(), nil, nil)
	if err != nil {
		t.Fatalf("NewMessenger: %v", err)
	}
	m.Shutdown()
	m.Shutdown()
}
