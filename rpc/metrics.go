// File: rpc/metrics.go
// Package rpc
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ReactorMetrics is the snapshot GetMetricsTask fills in, per §4.7.
type ReactorMetrics struct {
	NumClientConnections int
	NumServerConnections int
}

// Metrics is the process-wide counter/gauge set the reactor increments.
// Only the counters named in §1 and mt-rpc-test.cc are referenced
// concretely; everything else about metrics plumbing stays out of scope.
type Metrics struct {
	ConnectionsAccepted prometheus.Counter
	ConnectionsRejected prometheus.Counter
	NegotiationFailures prometheus.Counter
	ClientConnections   prometheus.Gauge
	ServerConnections   prometheus.Gauge
}

// NewMetrics registers the reactor's counters/gauges against reg. Pass
// prometheus.NewRegistry() in tests to avoid collisions with other
// Messengers in the same process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rpc_connections_accepted",
			Help: "Total inbound connections accepted by acceptor pools.",
		}),
		ConnectionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rpc_connections_rejected",
			Help: "Total inbound connections dropped before negotiation.",
		}),
		NegotiationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rpc_negotiation_failures",
			Help: "Total negotiation attempts that failed.",
		}),
		ClientConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rpc_client_connections",
			Help: "Current number of outbound connections across all reactors.",
		}),
		ServerConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rpc_server_connections",
			Help: "Current number of inbound connections across all reactors.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ConnectionsAccepted, m.ConnectionsRejected, m.NegotiationFailures, m.ClientConnections, m.ServerConnections)
	}
	return m
}
