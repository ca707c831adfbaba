// File: transport/dialer.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Dial opens an outbound connection the way ReactorThread::StartConnect
// does: non-blocking connect, TCP_NODELAY set before the handshake so the
// negotiation preamble isn't held by Nagle's algorithm.

package transport

import (
	"context"
	"fmt"
	"net"
)

var dialer = net.Dialer{
	Control: setDialerSockOpts,
}

// Dial opens a non-blocking TCP connection to addr with TCP_NODELAY set.
// Connect failures surface as a plain error; ReactorThread wraps them in a
// "connect failed" network error for the caller.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return conn, nil
}
