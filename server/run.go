// File: server/run.go
// The event loop: accept readiness, read readiness, and teardown.

package server

import (
	"log/slog"

	"github.com/muxtel/muxtel/internal/netio"
	"github.com/muxtel/muxtel/protocol"
	"github.com/muxtel/muxtel/reactor"
)

// maxEvents bounds one readiness batch.
const maxEvents = 64

// loop is the server's event loop. It alone drives accepts, reads, and
// therefore every host callback except those run by an external Disconnect
// or Stop. It exits when Stop kicks the wake pipe with the stopping flag set,
// tearing down the listening socket and reactor on the way out.
func (s *Server) loop() {
	defer close(s.loopDone)
	events := make([]reactor.Event, maxEvents)

	for {
		n, err := s.rx.Wait(events)
		if err != nil {
			s.log.Error("telnet reactor wait failed", "err", err)
			break
		}
		for i := 0; i < n; i++ {
			ev := events[i]
			switch ev.Fd {
			case s.wake.Fd():
				s.wake.Drain()
			case s.listenFd:
				if ev.Type&reactor.EventRead != 0 {
					s.acceptReady()
				}
			default:
				if ev.Type&reactor.EventRead != 0 {
					s.readReady(ev.Fd)
				}
				if ev.Type&reactor.EventError != 0 {
					s.hangup(ev.Fd)
				}
			}
		}
		s.drainCloses()
		if s.isStopping() {
			break
		}
	}
	s.teardown()
}

// acceptReady handles one connection request: accept, reserve the lowest
// free line, let the connect callback veto, and only then register the
// socket with the reactor. The line is in the table before the callback runs
// so the callback can already send a banner or negotiate options on it.
func (s *Server) acceptReady() {
	fd, addr, err := netio.Accept(s.listenFd)
	if err != nil {
		if !netio.IsWouldBlock(err) {
			s.log.Warn("telnet accept failed", "err", err)
		}
		return
	}

	s.mu.Lock()
	num, ok := s.lines.reserve()
	if !ok {
		s.mu.Unlock()
		// Out of lines is a rejection, not an error: close before any
		// callback ever hears about the connection.
		s.log.Warn("telnet accept rejected, no free lines", "remote", addr)
		netio.Close(fd)
		return
	}
	l := &line{num: num, fd: fd, remoteAddr: addr}
	l.engine = protocol.NewEngine(num, l, s.cb.Receive, s.log.With(slog.Int("line", num)))
	s.lines.insert(l)
	s.mu.Unlock()

	if s.cb.Connect != nil && !s.cb.Connect(num) {
		s.mu.Lock()
		s.lines.remove(num)
		s.mu.Unlock()
		netio.Close(fd)
		s.log.Warn("telnet accept refused by connect callback", "line", num, "remote", addr)
		return
	}

	if err := s.rx.Register(fd); err != nil {
		s.log.Warn("telnet client socket registration failed", "line", num, "err", err)
		// The connect callback already accepted this line, so it is torn
		// down through the normal path, disconnect callback included.
		s.Disconnect(num)
		return
	}
	s.log.Info("telnet connection accepted", "line", num, "remote", addr)
}

// readReady performs one bounded non-blocking recv for a ready socket and
// feeds the bytes one at a time through the line's Telnet engine. A closed
// or broken connection degrades to that line's disconnect, never further.
func (s *Server) readReady(fd int) {
	s.mu.Lock()
	l := s.lines.bySock(fd)
	if l == nil || l.closing {
		// Stale event for a socket torn down earlier in this batch.
		s.mu.Unlock()
		return
	}
	num, engine := l.num, l.engine
	s.mu.Unlock()

	n, err := netio.Read(fd, s.recvBuf)
	switch {
	case err != nil:
		if netio.IsWouldBlock(err) {
			return
		}
		s.log.Warn("telnet read failed", "line", num, "err", err)
		s.Disconnect(num)
	case n == 0:
		s.log.Warn("telnet unexpected disconnect", "line", num)
		s.Disconnect(num)
	default:
		for _, b := range s.recvBuf[:n] {
			engine.Feed(b)
		}
	}
}

// hangup routes an error/hangup readiness event to the owning line.
func (s *Server) hangup(fd int) {
	s.mu.Lock()
	l := s.lines.bySock(fd)
	s.mu.Unlock()
	if l == nil {
		return
	}
	s.log.Warn("telnet connection error", "line", l.num)
	s.Disconnect(l.num)
}

// drainCloses closes the descriptors queued by Disconnect, after the current
// readiness batch is fully dispatched.
func (s *Server) drainCloses() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.closeQ.Length() > 0 {
		fd := s.closeQ.Remove().(int)
		_ = netio.Close(fd)
	}
}

func (s *Server) isStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

// teardown disconnects anything still connected (normally Stop already did),
// then releases the listening socket, wake pipe, and reactor.
func (s *Server) teardown() {
	s.mu.Lock()
	nums := s.lines.connected()
	s.mu.Unlock()
	for _, n := range nums {
		s.Disconnect(n)
	}
	s.drainCloses()

	netio.Close(s.listenFd)
	s.wake.Close()
	s.rx.Close()

	// The loop may be exiting on its own after a reactor failure, not only
	// via Stop, so the running flag is cleared here rather than there.
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.log.Info("telnet server stopped")
}
