//go:build !windows && !(linux && cgo)
// +build !windows,!linux !windows,!cgo

// File: internal/concurrency/pin.go
// Author: momentics <momentics@gmail.com>
//
// Platform-generic symbol for CPU/NUMA pinning dispatcher.
// Built only where no platform file provides PinCurrentThread: pin_windows.go
// covers Windows and pin_linux.go covers Linux with cgo.

package concurrency

// PinCurrentThread pins the current OS thread to a given NUMA node and CPU core.
// This function is implemented per platform (Linux/Windows). On unsupported systems it is a no-op.
func PinCurrentThread(numaNode int, cpuID int) {}
