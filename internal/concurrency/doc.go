// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// NUMA-aware, lock-free concurrency primitives backing the negotiation
// worker pool: CPU/NUMA pinning, an Executor with per-worker queues and a
// shared global queue, and a min-heap
// timer Scheduler. Cross-platform (Linux/Windows) via build tags.
package concurrency
