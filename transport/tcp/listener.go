// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"fmt"
	"net"
	"sync"
)

// AcceptorConfig configures an AcceptorPool.
type AcceptorConfig struct {
	Addr string // TCP address to bind (e.g., ":9001")

	// WorkerCPUs, if non-empty, pins one acceptor goroutine per CPU in the
	// list; otherwise a single unpinned acceptor goroutine is started.
	WorkerCPUs []int

	// OnAccept is called with every successfully accepted connection. It
	// must not block; RegisterInboundSocket hands off to a reactor and
	// returns immediately.
	OnAccept func(net.Conn)

	// OnError is called with the Accept error that ends an accept goroutine,
	// including the one Close causes; nil is a no-op.
	OnError func(error)
}

// AcceptorPool owns a bound listener and one or more accept-loop goroutines,
// the Go analogue of Kudu's AddAcceptorPool: the acceptor is a fixed-size
// collaborator the reactor discovers connections through, not part of the
// reactor's own run loop.
type AcceptorPool struct {
	ln net.Listener
	wg sync.WaitGroup

	closeOnce sync.Once
}

// NewAcceptorPool binds cfg.Addr and starts the configured number of accept
// goroutines. Returns an error if the bind fails.
func NewAcceptorPool(cfg *AcceptorConfig) (*AcceptorPool, error) {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("tcp: listen %s: %w", cfg.Addr, err)
	}
	p := &AcceptorPool{ln: ln}

	n := len(cfg.WorkerCPUs)
	if n == 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		cpu := -1
		if i < len(cfg.WorkerCPUs) {
			cpu = cfg.WorkerCPUs[i]
		}
		p.wg.Add(1)
		go p.acceptLoop(cpu, cfg.OnAccept, cfg.OnError)
	}
	return p, nil
}

// Addr returns the bound local address.
func (p *AcceptorPool) Addr() net.Addr {
	return p.ln.Addr()
}

// Close stops accepting and closes the listener. Idempotent.
func (p *AcceptorPool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.ln.Close()
	})
	p.wg.Wait()
	return err
}

func (p *AcceptorPool) acceptLoop(cpu int, onAccept func(net.Conn), onError func(error)) {
	defer p.wg.Done()
	if cpu >= 0 {
		setCPUAffinity(cpu)
	}
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onAccept != nil {
			onAccept(conn)
		}
	}
}
