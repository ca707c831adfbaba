// File: rpc/messenger.go
// Package rpc
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Messenger is the process-wide facade: an array of Reactors, the shared
// negotiation worker pool, and the acceptor pools that feed inbound sockets
// in. It distributes outbound calls and inbound sockets across its reactor
// array by a stable hash of the connection identity, mirroring the
// original's RememberOrDispatch-by-ConnectionId load spreading.

package rpc

import (
	"hash/fnv"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/momentics/go-rpcreactor/api"
	"github.com/momentics/go-rpcreactor/internal/concurrency"
	"github.com/momentics/go-rpcreactor/transport/tcp"
	"go.uber.org/zap"
)

// Messenger owns every reactor, the off-loop negotiation pool shared across
// them, and any acceptor pools registered against it.
type Messenger struct {
	cfg *Config
	log *zap.Logger

	reactors []*Reactor
	pool     *concurrency.ThreadPool
	metrics  *Metrics

	mu         sync.Mutex
	acceptors  []*tcp.AcceptorPool
	stopping   chan struct{}
	stopOnce   sync.Once
	stoppedWG  sync.WaitGroup

	probesMu  sync.Mutex
	probes    map[string]func() any
	reloadFns []func()
}

// NewMessenger builds NumReactors reactors sharing one negotiation pool, per
// the options supplied. negotiator may be nil to use the default preamble;
// metrics may be nil to skip Prometheus registration entirely.
func NewMessenger(log *zap.Logger, metrics *Metrics, negotiator Negotiator, opts ...MessengerOption) (*Messenger, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	m := &Messenger{
		cfg:      cfg,
		log:      log,
		metrics:  metrics,
		stopping: make(chan struct{}),
		probes:   make(map[string]func() any),
	}

	m.pool = concurrency.NewThreadPool(cfg.NegotiationWorkers, cfg.NegotiationNUMANode)
	bridge := NewNegotiationBridge(m.pool, negotiator, log)

	m.stoppedWG.Add(cfg.NumReactors)
	for i := 0; i < cfg.NumReactors; i++ {
		r, err := NewReactor(reactorName(i), cfg, bridge, m.metrics, log, m)
		if err != nil {
			_ = m.Shutdown()
			return nil, err
		}
		m.reactors = append(m.reactors, r)
	}
	return m, nil
}

func reactorName(i int) string {
	return "reactor-" + strconv.Itoa(i)
}

// reactorFor picks a reactor by a stable FNV hash of key: a ConnectionId
// string for outbound calls, or the remote address for inbound sockets with
// no established identity yet. Repeated lookups for the same key always
// land on the same reactor.
func (m *Messenger) reactorFor(key string) *Reactor {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	idx := int(h.Sum32()) % len(m.reactors)
	if idx < 0 {
		idx += len(m.reactors)
	}
	return m.reactors[idx]
}

// QueueOutboundCall dispatches call to the reactor owning call.ConnId.
func (m *Messenger) QueueOutboundCall(call *OutboundCall) {
	m.reactorFor(call.ConnId.String()).QueueOutboundCall(call)
}

// RegisterAcceptorPool binds addr and feeds every accepted socket into a
// reactor chosen by a hash of its remote address.
func (m *Messenger) RegisterAcceptorPool(addr string, workerCPUs []int) (*tcp.AcceptorPool, error) {
	pool, err := tcp.NewAcceptorPool(&tcp.AcceptorConfig{
		Addr:       addr,
		WorkerCPUs: workerCPUs,
		OnAccept:   m.dispatchInbound,
		OnError: func(err error) {
			m.log.Debug("acceptor pool stopped", zap.Error(err))
		},
	})
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.acceptors = append(m.acceptors, pool)
	m.mu.Unlock()
	return pool, nil
}

func (m *Messenger) dispatchInbound(conn net.Conn) {
	if m.metrics != nil {
		m.metrics.ConnectionsAccepted.Inc()
	}
	reactor := m.reactorFor(conn.RemoteAddr().String())
	reactor.RegisterInboundSocket(newServerConnection(conn))
}

// reactorStopped is called by a Reactor's own goroutine as it exits.
func (m *Messenger) reactorStopped(r *Reactor) {
	m.stoppedWG.Done()
}

// Shutdown stops every acceptor pool, shuts every reactor down, waits for
// all of them to finish tearing down, then closes the negotiation pool.
// Idempotent.
func (m *Messenger) Shutdown() error {
	m.stopOnce.Do(func() {
		close(m.stopping)
		m.mu.Lock()
		acceptors := m.acceptors
		m.mu.Unlock()
		for _, a := range acceptors {
			_ = a.Close()
		}

		var wg sync.WaitGroup
		for _, r := range m.reactors {
			wg.Add(1)
			go func(r *Reactor) {
				defer wg.Done()
				_ = r.Shutdown()
			}(r)
		}
		wg.Wait()
		m.pool.Close()
	})
	return nil
}

var _ api.GracefulShutdown = (*Messenger)(nil)

// GetConfig reports the messenger's live configuration, the Go analogue of
// the original's reflection-based config dump.
func (m *Messenger) GetConfig() map[string]any {
	return map[string]any{
		"num_reactors":              m.cfg.NumReactors,
		"server_negotiation_timeout": m.cfg.ServerNegotiationTimeout,
		"connection_keepalive_time":  m.cfg.ConnectionKeepaliveTime,
		"coarse_timer_granularity":   m.cfg.CoarseTimerGranularity,
		"negotiation_workers":        m.cfg.NegotiationWorkers,
		"negotiation_numa_node":      m.cfg.NegotiationNUMANode,
	}
}

// SetConfig applies connection_keepalive_time and server_negotiation_timeout
// (time.Duration values) to the live Config the reactors read; other keys,
// including pool sizing and reactor count, are ignored. It then fires every
// registered reload callback.
func (m *Messenger) SetConfig(cfg map[string]any) error {
	if v, ok := cfg["connection_keepalive_time"].(time.Duration); ok {
		m.cfg.ConnectionKeepaliveTime = v
	}
	if v, ok := cfg["server_negotiation_timeout"].(time.Duration); ok {
		m.cfg.ServerNegotiationTimeout = v
	}
	m.probesMu.Lock()
	fns := append([]func(){}, m.reloadFns...)
	m.probesMu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return nil
}

// Stats reports reactor connection counts alongside every registered probe,
// so debug and control consumers share one live snapshot.
func (m *Messenger) Stats() map[string]any {
	stats := map[string]any{"num_reactors": len(m.reactors)}
	for i, r := range m.reactors {
		if snap, err := r.GetMetrics(); err == nil {
			stats["reactor_"+strconv.Itoa(i)] = snap
		}
	}
	m.probesMu.Lock()
	defer m.probesMu.Unlock()
	for name, fn := range m.probes {
		stats[name] = fn()
	}
	return stats
}

// OnReload registers fn to run whenever SetConfig is called.
func (m *Messenger) OnReload(fn func()) {
	m.probesMu.Lock()
	m.reloadFns = append(m.reloadFns, fn)
	m.probesMu.Unlock()
}

// RegisterDebugProbe and RegisterProbe both feed the same probe table;
// Control and Debug are two views onto one diagnostic surface.
func (m *Messenger) RegisterDebugProbe(name string, fn func() any) {
	m.probesMu.Lock()
	m.probes[name] = fn
	m.probesMu.Unlock()
}

// RegisterProbe implements api.Debug by delegating to the same table
// RegisterDebugProbe fills.
func (m *Messenger) RegisterProbe(name string, fn func() any) {
	m.RegisterDebugProbe(name, fn)
}

// DumpState reports every registered probe's current value, the Go
// analogue of the original's introspection dump.
func (m *Messenger) DumpState() map[string]any {
	m.probesMu.Lock()
	defer m.probesMu.Unlock()
	state := make(map[string]any, len(m.probes))
	for name, fn := range m.probes {
		state[name] = fn()
	}
	return state
}

var _ api.Control = (*Messenger)(nil)
var _ api.Debug = (*Messenger)(nil)
