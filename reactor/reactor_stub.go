//go:build !linux

// File: reactor/reactor_stub.go
// Stub factory for platforms without a reactor implementation.

package reactor

import "github.com/muxtel/muxtel/api"

// New returns an error on unsupported platforms.
func New() (Reactor, error) {
	return nil, api.ErrUnsupported
}
