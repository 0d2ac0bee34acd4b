// Package api holds the host-facing contracts of the muxtel library: the
// callback types through which the terminal server hands events back to the
// embedding terminal-multiplexer emulation, and the sentinel errors shared
// across packages.
//
// All callbacks are invoked on the server's event-loop goroutine. No two
// callbacks for the same server ever run concurrently, but a callback that
// blocks stalls delivery for every other line on that server, so callbacks
// must return quickly.
package api
