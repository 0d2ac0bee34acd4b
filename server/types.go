// File: server/types.go
// Server configuration and the Server type itself.

package server

import (
	"log/slog"
	"sync"

	"github.com/eapache/queue"
	"github.com/muxtel/muxtel/api"
	"github.com/muxtel/muxtel/internal/netio"
	"github.com/muxtel/muxtel/reactor"
)

// Config holds the server-side configuration parameters.
type Config struct {
	Port           uint16       // TCP listening port
	BindAddr       string       // interface IP literal, "" for all interfaces
	MaxLines       int          // simultaneous connection limit
	RecvBufferSize int          // scratch buffer for one non-blocking recv
	Backlog        int          // listen(2) backlog
	Logger         *slog.Logger // nil means slog.Default()
}

// DefaultConfig returns the standard Telnet front-end defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:           23,
		BindAddr:       "",
		MaxLines:       64,
		RecvBufferSize: 1024,
		Backlog:        netio.Backlog(),
	}
}

// Server is the terminal server front-end. Create one with NewServer, then
// Start and eventually Stop it. The zero value is not usable.
type Server struct {
	cfg *Config
	cb  api.Callbacks
	log *slog.Logger

	// mu guards the line table, per-line state, and the lifecycle flags.
	// It is never held while a host callback runs.
	mu       sync.Mutex
	lines    *lineTable
	running  bool
	stopping bool

	listenFd int
	port     uint16
	rx       reactor.Reactor
	wake     *netio.Wakeup

	// closeQ holds descriptors of torn-down lines until the event loop
	// finishes its current readiness batch; closing them mid-batch would let
	// the kernel reuse an fd number that stale events still reference.
	closeQ *queue.Queue

	loopDone chan struct{}
	recvBuf  []byte
}
