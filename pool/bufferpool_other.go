//go:build !linux && !windows
// +build !linux,!windows

// File: pool/bufferpool_other.go
// Package pool
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Portable fallback buffer pool for platforms without a dedicated
// zero-copy allocator (darwin, bsd, etc). Backed by sync.Pool.

package pool

import (
	"sync"

	"github.com/momentics/go-rpcreactor/api"
)

type genericBuffer struct {
	data   []byte
	pool   *genericBufferPool
	numaId int
	used   bool
	mu     sync.Mutex
}

func (b *genericBuffer) Bytes() []byte { return b.data }

func (b *genericBuffer) Slice(start, end int) api.Buffer {
	if start < 0 || end > len(b.data) || start > end {
		panic("slice bounds out of range")
	}
	return &genericBuffer{data: b.data[start:end], pool: b.pool, numaId: b.numaId, used: true}
}

func (b *genericBuffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.used {
		return
	}
	b.pool.put(b)
	b.used = false
}

func (b *genericBuffer) Copy() []byte {
	dst := make([]byte, len(b.data))
	copy(dst, b.data)
	return dst
}

func (b *genericBuffer) NUMANode() int { return b.numaId }

type genericBufferPool struct {
	pool   sync.Pool
	numaId int
	stats  api.BufferPoolStats
}

func (bp *genericBufferPool) get(size int) *genericBuffer {
	if v := bp.pool.Get(); v != nil {
		buf := v.(*genericBuffer)
		if cap(buf.data) < size {
			buf.data = make([]byte, size)
		}
		buf.data = buf.data[:size]
		buf.used = true
		return buf
	}
	return &genericBuffer{data: make([]byte, size), pool: bp, numaId: bp.numaId, used: true}
}

func (bp *genericBufferPool) put(b *genericBuffer) {
	bp.pool.Put(b)
}

func (bp *genericBufferPool) Get(size int, numaPreferred int) api.Buffer {
	return bp.get(size)
}

func (bp *genericBufferPool) Put(b api.Buffer) {
	if gb, ok := b.(*genericBuffer); ok {
		bp.put(gb)
	}
}

func (bp *genericBufferPool) Stats() api.BufferPoolStats {
	return bp.stats
}

func newBufferPool(numaNode int) api.BufferPool {
	return &genericBufferPool{numaId: numaNode}
}
