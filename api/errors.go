// File: api/errors.go
// Package api defines sentinel errors shared across the library.

package api

import "errors"

// Errors reported by server construction and startup.
var (
	// ErrReceiveCallbackNil is returned when a server is built without the
	// mandatory receive callback.
	ErrReceiveCallbackNil = errors.New("receive callback must not be nil")

	// ErrUnsupported is returned on platforms without a readiness reactor.
	ErrUnsupported = errors.New("platform not supported")
)
