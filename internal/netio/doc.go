// Package netio wraps the raw non-blocking IPv4 socket operations the
// terminal server runs on: listen, accept, bounded reads, full-or-failed
// writes, and the self-pipe used to wake the event loop from other
// goroutines. Everything works on plain file descriptors so the sockets can
// be driven by the reactor rather than the net package's own poller.
package netio
