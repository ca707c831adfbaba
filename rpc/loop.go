// File: rpc/loop.go
// Package rpc
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Loop bridges the blocking reactor.EventReactor.Wait call onto a channel a
// single ReactorThread goroutine can select over alongside its task-queue
// wakeup and periodic timer. The poller goroutine never mutates connection
// state — it only forwards readiness notifications — so the single-mutator
// invariant described in §5 still holds: everything that touches a
// Connection runs on the ReactorThread goroutine.

package rpc

import (
	"github.com/momentics/go-rpcreactor/reactor"
)

// Loop owns the OS-level poller and republishes its readiness events onto a
// Go channel sized for a modest burst without blocking the poller.
type Loop struct {
	r       reactor.EventReactor
	events  chan reactor.Event
	closeCh chan struct{}
	doneCh  chan struct{}
}

// NewLoop creates the platform reactor and starts its forwarding goroutine.
func NewLoop() (*Loop, error) {
	r, err := reactor.NewReactor()
	if err != nil {
		return nil, err
	}
	l := &Loop{
		r:       r,
		events:  make(chan reactor.Event, 256),
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go l.pump()
	return l, nil
}

// Register associates fd with userData (typically a connection index/key)
// for future readiness notifications — the Go analogue of epoll_register.
func (l *Loop) Register(fd uintptr, userData uintptr) error {
	return l.r.Register(fd, userData)
}

// Events returns the channel of readiness notifications.
func (l *Loop) Events() <-chan reactor.Event {
	return l.events
}

func (l *Loop) pump() {
	defer close(l.doneCh)
	buf := make([]reactor.Event, 64)
	for {
		select {
		case <-l.closeCh:
			return
		default:
		}
		n, err := l.r.Wait(buf)
		if err != nil {
			continue
		}
		for i := 0; i < n; i++ {
			select {
			case l.events <- buf[i]:
			case <-l.closeCh:
				return
			}
		}
	}
}

// Close shuts down the poller and waits for the pump goroutine to exit.
func (l *Loop) Close() error {
	close(l.closeCh)
	err := l.r.Close()
	<-l.doneCh
	return err
}
