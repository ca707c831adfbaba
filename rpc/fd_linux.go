//go:build linux
// +build linux

// File: rpc/fd_linux.go
// Package rpc
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package rpc

import (
	"net"
	"syscall"
)

// registerConnFD extracts conn's raw fd and registers it with loop. Only
// *net.TCPConn exposes SyscallConn; other net.Conn implementations (e.g. a
// test fake) simply aren't registered for epoll readiness and rely on
// their own synchronous I/O instead.
func registerConnFD(loop *Loop, conn net.Conn, userData uintptr) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	var regErr error
	err = rc.Control(func(fd uintptr) {
		regErr = loop.Register(fd, userData)
	})
	if err != nil {
		return err
	}
	return regErr
}
