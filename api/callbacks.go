// File: api/callbacks.go
// Package api defines the host callback contract.

package api

// ConnectCallback is invoked when a new connection has been accepted and
// assigned a line number. Returning false refuses the connection; the server
// then closes the socket and frees the line. The callback may already address
// the line (send a banner, negotiate options) before returning true.
type ConnectCallback func(line int) bool

// DisconnectCallback is invoked when a line is being torn down, either by the
// remote end closing, an I/O error, or an explicit Disconnect call. It runs
// while the line still exists in the table but must not disconnect the same
// line again.
type DisconnectCallback func(line int)

// ReceiveCallback delivers one decoded data byte from a line. Telnet command
// sequences never reach this callback; line endings arrive as a bare CR.
type ReceiveCallback func(line int, b byte)

// Callbacks bundles the three host callbacks. Receive is mandatory, the other
// two may be nil.
type Callbacks struct {
	Connect    ConnectCallback
	Disconnect DisconnectCallback
	Receive    ReceiveCallback
}
