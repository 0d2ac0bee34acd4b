// File: server/server.go
// Server lifecycle and the host-facing line operations.

package server

import (
	"errors"
	"log/slog"

	"github.com/eapache/queue"
	"github.com/muxtel/muxtel/api"
	"github.com/muxtel/muxtel/internal/netio"
	"github.com/muxtel/muxtel/reactor"
)

// ErrAlreadyRunning is returned by Start on a server that is already running.
var ErrAlreadyRunning = errors.New("server already running")

// NewServer builds a server with the given configuration and host callbacks.
// The receive callback is mandatory; connect and disconnect may be nil. The
// server does not listen until Start is called.
func NewServer(cfg *Config, cb api.Callbacks, opts ...Option) (*Server, error) {
	if cb.Receive == nil {
		return nil, api.ErrReceiveCallbackNil
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.MaxLines <= 0 {
		return nil, errors.New("max lines must be positive")
	}
	if cfg.RecvBufferSize <= 0 {
		cfg.RecvBufferSize = DefaultConfig().RecvBufferSize
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		cb:       cb,
		log:      log,
		lines:    newLineTable(cfg.MaxLines),
		listenFd: -1,
		closeQ:   queue.New(),
	}, nil
}

// Start binds the listening socket, wires the reactor, and launches the event
// loop. Any OS failure unwinds the partial state, is logged with the
// underlying error, and aborts the start; a server that was already running
// is unaffected and gets ErrAlreadyRunning.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	rx, err := reactor.New()
	if err != nil {
		s.log.Error("telnet reactor setup failed", "err", err)
		return err
	}
	lfd, err := netio.Listen(s.cfg.BindAddr, s.cfg.Port, s.cfg.Backlog)
	if err != nil {
		rx.Close()
		s.log.Error("telnet server socket setup failed", "err", err)
		return err
	}
	port, err := netio.LocalPort(lfd)
	if err != nil {
		rx.Close()
		netio.Close(lfd)
		s.log.Error("telnet server socket setup failed", "err", err)
		return err
	}
	wake, err := netio.NewWakeup()
	if err != nil {
		rx.Close()
		netio.Close(lfd)
		s.log.Error("telnet wake pipe setup failed", "err", err)
		return err
	}
	if err := rx.Register(lfd); err == nil {
		err = rx.Register(wake.Fd())
	}
	if err != nil {
		rx.Close()
		netio.Close(lfd)
		wake.Close()
		s.log.Error("telnet reactor registration failed", "err", err)
		return err
	}

	s.rx = rx
	s.listenFd = lfd
	s.port = port
	s.wake = wake
	s.recvBuf = make([]byte, s.cfg.RecvBufferSize)
	s.stopping = false
	s.running = true
	s.loopDone = make(chan struct{})
	go s.loop()

	s.log.Info("telnet server listening",
		"addr", s.cfg.BindAddr, "port", port, "maxLines", s.cfg.MaxLines)
	return nil
}

// Stop disconnects every line through the normal path (running the disconnect
// callbacks to completion), then stops and joins the event loop, which tears
// down the listening socket on its way out. Safe to call from any goroutine
// except a host callback; idempotent.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	nums := s.lines.connected()
	s.mu.Unlock()

	for _, n := range nums {
		s.Disconnect(n)
	}

	s.mu.Lock()
	s.stopping = true
	wake := s.wake
	done := s.loopDone
	s.mu.Unlock()

	s.log.Debug("waiting for telnet event loop to stop")
	wake.Kick()
	<-done
}

// Running reports whether the event loop is up.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Port reports the bound listening port. With Config.Port zero this is the
// kernel-assigned port.
func (s *Server) Port() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// MaxLines reports the configured line limit.
func (s *Server) MaxLines() int {
	return s.cfg.MaxLines
}

// IsLineConnected reports whether a line currently has a connection.
func (s *Server) IsLineConnected(num int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.get(num) != nil
}

// RemoteAddr returns the client address of a connected line.
func (s *Server) RemoteAddr(num int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lines.get(num)
	if l == nil {
		return "", false
	}
	return l.remoteAddr, true
}

// Send transmits terminal data to a line. It reports false for an unknown or
// closing line and for a write the socket could not take in full; nothing is
// buffered or retried.
func (s *Server) Send(num int, data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lines.get(num)
	if l == nil || l.closing {
		return false
	}
	return l.engine.Send(data)
}

// SendFile streams a text file to a line as a banner, each line terminated
// with CRLF. It blocks the calling goroutine until the file is sent, so keep
// banners short. The server mutex is not held during the transfer.
func (s *Server) SendFile(num int, path string) bool {
	s.mu.Lock()
	l := s.lines.get(num)
	if l == nil || l.closing {
		s.mu.Unlock()
		return false
	}
	e := l.engine
	s.mu.Unlock()
	return e.SendFile(path)
}

// SetLocalEcho asks a line's client to enable or disable its local echo.
// Like NegotiateGoAhead, this is meant to be called from the connect callback
// or later from the loop's callbacks; see protocol.Engine.SetLocalEcho for
// the negotiation it starts.
func (s *Server) SetLocalEcho(num int, clientEcho bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lines.get(num)
	if l == nil || l.closing {
		return
	}
	l.engine.SetLocalEcho(clientEcho)
}

// NegotiateGoAhead starts the SUPPRESS-GO-AHEAD negotiation in both
// directions for a line. Call it once when the connection starts.
func (s *Server) NegotiateGoAhead(num int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lines.get(num)
	if l == nil || l.closing {
		return
	}
	l.engine.SuppressGoAhead()
}

// Disconnect tears down one line: the disconnect callback runs while the
// line still exists, then the engine is dropped, the socket shut down, and
// the table entry removed. The actual close(2) is deferred to the event
// loop's batch boundary. Calling it again for the same line, including from
// inside the disconnect callback's window, is a no-op.
func (s *Server) Disconnect(num int) {
	s.mu.Lock()
	l := s.lines.get(num)
	if l == nil || l.closing {
		s.mu.Unlock()
		return
	}
	l.closing = true
	cb := s.cb.Disconnect
	s.mu.Unlock()

	// Callback sees the line intact; the mutex is released so the callback
	// may use the server, just not re-disconnect this line.
	if cb != nil {
		cb(num)
	}

	s.mu.Lock()
	if s.rx != nil {
		_ = s.rx.Unregister(l.fd)
	}
	netio.Shutdown(l.fd)
	s.lines.remove(num)
	l.engine = nil
	s.closeQ.Add(l.fd)
	wake := s.wake
	s.mu.Unlock()

	if wake != nil {
		wake.Kick()
	}
	s.log.Debug("telnet line disconnected", "line", num)
}
