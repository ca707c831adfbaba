// File: rpc/negotiation.go
// Package rpc
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// NegotiationBridge submits a negotiation job to the external worker pool
// and, on completion, posts a CompleteConnectionNegotiation task back to
// the owning reactor — preserving the single-threaded mutation invariant
// even though negotiation itself blocks (§4.4, §9 "Off-loop blocking").

package rpc

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/momentics/go-rpcreactor/internal/concurrency"
	"go.uber.org/zap"
)

// Negotiator runs the pre-RPC handshake. SASL itself stays out of scope
// (§1); this is the minimal preamble exchange CompleteConnectionNegotiation
// needs a real producer for: a service-name/credentials line exchanged
// over the raw socket while it is still in blocking mode.
type Negotiator interface {
	NegotiateServer(conn net.Conn, deadline time.Time) (serviceName, credentials string, err error)
	NegotiateClient(conn net.Conn, id ConnectionId, deadline time.Time) error
}

// defaultNegotiator implements a minimal line-oriented preamble: the client
// writes "service\ncredentials\n" and the server echoes "OK\n", mirroring
// the original's ServerNegotiationTask/ClientNegotiationTask shape without
// implementing SASL.
type defaultNegotiator struct{}

func (defaultNegotiator) NegotiateServer(conn net.Conn, deadline time.Time) (string, string, error) {
	_ = conn.SetDeadline(deadline)
	defer conn.SetDeadline(time.Time{})

	r := bufio.NewReader(conn)
	service, err := r.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("negotiation: read service name: %w", err)
	}
	creds, err := r.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("negotiation: read credentials: %w", err)
	}
	if _, err := conn.Write([]byte("OK\n")); err != nil {
		return "", "", fmt.Errorf("negotiation: write ack: %w", err)
	}
	return trimNL(service), trimNL(creds), nil
}

func (defaultNegotiator) NegotiateClient(conn net.Conn, id ConnectionId, deadline time.Time) error {
	_ = conn.SetDeadline(deadline)
	defer conn.SetDeadline(time.Time{})

	if _, err := fmt.Fprintf(conn, "%s\n%s\n", id.ServiceName, id.Credentials); err != nil {
		return fmt.Errorf("negotiation: write preamble: %w", err)
	}
	r := bufio.NewReader(conn)
	ack, err := r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("negotiation: read ack: %w", err)
	}
	if trimNL(ack) != "OK" {
		return fmt.Errorf("negotiation: unexpected ack %q", ack)
	}
	return nil
}

func trimNL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// negotiationPool is the subset of the worker pool NegotiationBridge needs;
// satisfied by internal/concurrency.ThreadPool.
type negotiationPool interface {
	Submit(f func()) error
}

// NegotiationBridge adapts negotiation to the reactor's task queue.
type NegotiationBridge struct {
	pool       negotiationPool
	negotiator Negotiator
	log        *zap.Logger
}

// NewNegotiationBridge builds a bridge over pool using negotiator (or the
// default line-oriented preamble if nil).
func NewNegotiationBridge(pool negotiationPool, negotiator Negotiator, log *zap.Logger) *NegotiationBridge {
	if negotiator == nil {
		negotiator = defaultNegotiator{}
	}
	return &NegotiationBridge{pool: pool, negotiator: negotiator, log: log}
}

// StartServer submits server-side negotiation for conn, posting completion
// back to r once it finishes. Mirrors start_connection_negotiation (§4.4)
// for the SERVER direction.
func (b *NegotiationBridge) StartServer(r *Reactor, conn *Connection, deadline time.Time) error {
	return b.start(r, conn, func() (string, string, error) {
		return b.negotiator.NegotiateServer(conn.conn, deadline)
	})
}

// StartClient submits client-side negotiation for conn.
func (b *NegotiationBridge) StartClient(r *Reactor, conn *Connection, deadline time.Time) error {
	return b.start(r, conn, func() (string, string, error) {
		err := b.negotiator.NegotiateClient(conn.conn, conn.id, deadline)
		return conn.id.ServiceName, conn.id.Credentials, err
	})
}

func (b *NegotiationBridge) start(r *Reactor, conn *Connection, job func() (string, string, error)) error {
	err := b.pool.Submit(func() {
		service, _, jobErr := job()
		if jobErr == nil && service == "" {
			jobErr = NewIllegalStateError("empty service name after negotiation")
		}
		if jobErr == nil {
			conn.mu.Lock()
			if conn.id.ServiceName == "" {
				conn.id.ServiceName = service
			}
			conn.mu.Unlock()
		}
		r.scheduleCompleteNegotiation(conn, jobErr)
	})
	if err != nil {
		if errors.Is(err, concurrency.ErrExecutorClosed) {
			return ErrMessengerShuttingDown
		}
		return fmt.Errorf("%s: %w", ErrNegotiationThreadUnavailable.Error(), err)
	}
	return nil
}
