// File: internal/concurrency/thread_affinity.go
// Package concurrency
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ThreadAffinity adapts the package's platform-specific pinning primitives
// to api.Affinity, giving each executor worker a handle that remembers what
// it last pinned to instead of re-deriving it from the OS on every Get.

package concurrency

import (
	"sync"

	"github.com/momentics/go-rpcreactor/api"
)

// ThreadAffinity tracks the CPU/NUMA ids a goroutine pinned itself to.
type ThreadAffinity struct {
	mu     sync.Mutex
	cpuID  int
	numaID int
	pinned bool
}

// NewThreadAffinity returns an unpinned handle.
func NewThreadAffinity() *ThreadAffinity {
	return &ThreadAffinity{cpuID: -1, numaID: -1}
}

// Pin pins the calling goroutine's underlying OS thread to cpuID/numaID.
func (a *ThreadAffinity) Pin(cpuID, numaID int) error {
	PinCurrentThread(numaID, cpuID)
	a.mu.Lock()
	a.cpuID, a.numaID, a.pinned = cpuID, numaID, true
	a.mu.Unlock()
	return nil
}

// Unpin releases any pinning previously applied by Pin.
func (a *ThreadAffinity) Unpin() error {
	UnpinCurrentThread()
	a.mu.Lock()
	a.pinned = false
	a.mu.Unlock()
	return nil
}

// Get reports the last ids Pin applied, or the current NUMA node alone if
// this handle was never pinned.
func (a *ThreadAffinity) Get() (cpuID, numaID int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.pinned {
		return -1, CurrentNUMANodeID(), nil
	}
	return a.cpuID, a.numaID, nil
}

var _ api.Affinity = (*ThreadAffinity)(nil)
