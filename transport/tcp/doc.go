// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp implements the acceptor pool: one or more goroutines calling
// Accept on a bound listener and handing raw connections off to a
// reactor-assignment callback. Affinity pinning of the accept goroutine is
// optional and platform-specific (see affinity_linux.go/affinity_windows.go).
package tcp
