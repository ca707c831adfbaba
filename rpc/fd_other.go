//go:build !linux
// +build !linux

// File: rpc/fd_other.go
// Package rpc
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package rpc

import "net"

// registerConnFD is a no-op outside Linux: the IOCP/stub reactors in
// package reactor don't multiplex plain TCP readiness the way epoll does,
// so non-Linux connections fall back to their own synchronous I/O.
func registerConnFD(loop *Loop, conn net.Conn, userData uintptr) error {
	return nil
}
