// Package server implements the Telnet terminal server: it accepts network
// connections in place of a terminal multiplexer's physical serial lines and
// hands the host emulation a small stable line number for each one.
//
// A Server owns one listening socket, one readiness reactor, and one event
// loop goroutine. The loop serializes every accept, read, and host callback
// for that server; callbacks therefore never run concurrently with each
// other, but they must not block. Send, SendFile, Disconnect, and Stop may be
// called from any goroutine. There is no internal buffering in either
// direction: a write the socket cannot take fails and it is the host's
// business what to do about it.
//
// Multiple independent Servers may coexist in one process; each owns its
// sockets and its loop outright.
package server
