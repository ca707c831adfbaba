// File: rpc/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package rpc implements the reactor core of an RPC transport: a pool of
// single-threaded event loops that own TCP connections, drive per-connection
// negotiation, dispatch outbound calls, accept inbound connections from
// AcceptorPools, and coordinate shutdown while calls and connections are in
// flight.
//
// A Messenger owns a fixed array of Reactors, each running its own
// ReactorThread goroutine. Every mutation of a Reactor's connection state
// happens exclusively on that goroutine; every other thread communicates
// with it by scheduling a ReactorTask through the Reactor's TaskQueue.
package rpc
