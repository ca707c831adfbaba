//go:build !linux
// +build !linux

// File: transport/dialer_other.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import "syscall"

// setDialerSockOpts is a no-op outside Linux; TCP_NODELAY is instead set by
// the caller via net.TCPConn.SetNoDelay once Dial returns.
func setDialerSockOpts(_, _ string, _ syscall.RawConn) error {
	return nil
}
