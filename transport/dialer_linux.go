//go:build linux
// +build linux

// File: transport/dialer_linux.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// setDialerSockOpts sets TCP_NODELAY on the raw fd before connect completes,
// mirroring the original's CreateClientSocket which configures the socket
// ahead of StartConnect rather than after.
func setDialerSockOpts(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
