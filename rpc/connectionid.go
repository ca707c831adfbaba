// File: rpc/connectionid.go
// Package rpc
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package rpc

import "fmt"

// ConnectionId is the identity tuple keying the client connection cache:
// one outbound connection per distinct tuple per reactor. It is comparable
// so it can be used directly as a map key.
type ConnectionId struct {
	RemoteAddr  string
	ServiceName string
	Credentials string
}

func (c ConnectionId) String() string {
	return fmt.Sprintf("%s/%s/%s", c.RemoteAddr, c.ServiceName, c.Credentials)
}
