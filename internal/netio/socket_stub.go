//go:build !linux

// File: internal/netio/socket_stub.go
// Stubs for platforms without a reactor; server startup fails before any of
// these could matter, but they keep the tree compiling everywhere.

package netio

import "github.com/muxtel/muxtel/api"

// Listen is unsupported on this platform.
func Listen(bind string, port uint16, backlog int) (int, error) {
	return -1, api.ErrUnsupported
}

// Accept is unsupported on this platform.
func Accept(lfd int) (int, string, error) {
	return -1, "", api.ErrUnsupported
}

// Read is unsupported on this platform.
func Read(fd int, p []byte) (int, error) {
	return 0, api.ErrUnsupported
}

// Write is unsupported on this platform.
func Write(fd int, p []byte) bool {
	return false
}

// Shutdown is a no-op on this platform.
func Shutdown(fd int) {}

// Close is a no-op on this platform.
func Close(fd int) error {
	return nil
}

// LocalPort is unsupported on this platform.
func LocalPort(fd int) (uint16, error) {
	return 0, api.ErrUnsupported
}

// IsWouldBlock always reports false on this platform.
func IsWouldBlock(err error) bool {
	return false
}

// Backlog returns a conventional listen backlog.
func Backlog() int {
	return 128
}

// Wakeup is unsupported on this platform.
type Wakeup struct{}

// NewWakeup is unsupported on this platform.
func NewWakeup() (*Wakeup, error) {
	return nil, api.ErrUnsupported
}

// Fd returns an invalid descriptor.
func (wk *Wakeup) Fd() int { return -1 }

// Kick is a no-op on this platform.
func (wk *Wakeup) Kick() {}

// Drain is a no-op on this platform.
func (wk *Wakeup) Drain() {}

// Close is a no-op on this platform.
func (wk *Wakeup) Close() {}
