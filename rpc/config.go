// File: rpc/config.go
// Package rpc
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package rpc

import "time"

// Config holds the reactor's fixed tuning parameters, mirroring the
// teacher's server.Config / ServerOption functional-options pattern.
type Config struct {
	// NumReactors is the size of a Messenger's reactor array.
	NumReactors int

	// ServerNegotiationTimeout bounds inbound negotiation; default 3s.
	ServerNegotiationTimeout time.Duration

	// ConnectionKeepaliveTime is the maximum idle duration before a
	// server-side connection is reaped.
	ConnectionKeepaliveTime time.Duration

	// CoarseTimerGranularity is the periodic timer's tick period.
	CoarseTimerGranularity time.Duration

	// NegotiationWorkers sizes the off-loop negotiation pool.
	NegotiationWorkers int

	// NegotiationNUMANode pins negotiation workers to a NUMA node, or -1
	// for no pinning.
	NegotiationNUMANode int
}

// DefaultConfig returns the configuration used when no options override it,
// matching the original's compiled-in defaults (§6 Configuration).
func DefaultConfig() *Config {
	return &Config{
		NumReactors:              1,
		ServerNegotiationTimeout: 3000 * time.Millisecond,
		ConnectionKeepaliveTime:  10 * time.Minute,
		CoarseTimerGranularity:   100 * time.Millisecond,
		NegotiationWorkers:       4,
		NegotiationNUMANode:      -1,
	}
}

// MessengerOption customizes a Config before a Messenger is built from it.
type MessengerOption func(*Config)

// WithReactorCount sets the size of the reactor array.
func WithReactorCount(n int) MessengerOption {
	return func(c *Config) { c.NumReactors = n }
}

// WithServerNegotiationTimeout overrides the inbound negotiation deadline.
func WithServerNegotiationTimeout(d time.Duration) MessengerOption {
	return func(c *Config) { c.ServerNegotiationTimeout = d }
}

// WithConnectionKeepaliveTime overrides the idle-reap threshold.
func WithConnectionKeepaliveTime(d time.Duration) MessengerOption {
	return func(c *Config) { c.ConnectionKeepaliveTime = d }
}

// WithCoarseTimerGranularity overrides the periodic timer's tick period.
func WithCoarseTimerGranularity(d time.Duration) MessengerOption {
	return func(c *Config) { c.CoarseTimerGranularity = d }
}

// WithNegotiationWorkers overrides the negotiation pool size and NUMA node.
func WithNegotiationWorkers(n, numaNode int) MessengerOption {
	return func(c *Config) {
		c.NegotiationWorkers = n
		c.NegotiationNUMANode = numaNode
	}
}
