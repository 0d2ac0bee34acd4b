// File: server/options.go
// Functional options applied at server construction.

package server

import "log/slog"

// Option customizes server construction.
type Option func(*Config)

// WithLogger routes the server's logging to the given logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithMaxLines overrides the simultaneous connection limit.
func WithMaxLines(n int) Option {
	return func(c *Config) {
		c.MaxLines = n
	}
}

// WithRecvBufferSize overrides the per-recv scratch buffer size.
func WithRecvBufferSize(n int) Option {
	return func(c *Config) {
		c.RecvBufferSize = n
	}
}

// WithBacklog overrides the listen backlog.
func WithBacklog(n int) Option {
	return func(c *Config) {
		c.Backlog = n
	}
}
