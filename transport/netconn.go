// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package transport

import (
	"net"

	"github.com/momentics/go-rpcreactor/api"
)

// PooledConn wraps a net.Conn and borrows its read buffers from an
// api.BufferPool instead of allocating on every Read, so a Connection's
// steady-state traffic does not churn the garbage collector.
type PooledConn struct {
	conn net.Conn
	pool api.BufferPool
}

// NewPooledConn wraps conn, borrowing read buffers from pool.
func NewPooledConn(conn net.Conn, pool api.BufferPool) *PooledConn {
	return &PooledConn{conn: conn, pool: pool}
}

// ReadBuffer borrows a buffer of size bytes from the pool and fills it from the
// socket. The caller must Release the buffer once done with it.
func (n *PooledConn) ReadBuffer(size, numaPreferred int) (api.Buffer, int, error) {
	buf := n.pool.Get(size, numaPreferred)
	got, err := n.conn.Read(buf.Bytes())
	if err != nil {
		buf.Release()
		return nil, 0, err
	}
	return buf.Slice(0, got), got, nil
}

// Write writes buf directly to the socket.
func (n *PooledConn) Write(buf []byte) (int, error) {
	return n.conn.Write(buf)
}

// Close closes the underlying connection.
func (n *PooledConn) Close() error {
	return n.conn.Close()
}

// RemoteAddr returns the socket's remote address.
func (n *PooledConn) RemoteAddr() net.Addr {
	return n.conn.RemoteAddr()
}

// LocalAddr returns the socket's local address.
func (n *PooledConn) LocalAddr() net.Addr {
	return n.conn.LocalAddr()
}
