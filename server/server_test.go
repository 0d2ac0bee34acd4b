//go:build linux

package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eapache/queue"
	"github.com/muxtel/muxtel/api"
	"github.com/muxtel/muxtel/internal/netio"
	"github.com/muxtel/muxtel/reactor"
)

// host records callback activity for assertions.
type host struct {
	connects    chan int
	disconnects chan int
	data        chan byte
	refuse      atomic.Bool
	onConnect   func(line int) bool
}

func newHost() *host {
	return &host{
		connects:    make(chan int, 64),
		disconnects: make(chan int, 64),
		data:        make(chan byte, 4096),
	}
}

func (h *host) callbacks() api.Callbacks {
	return api.Callbacks{
		Connect: func(line int) bool {
			if h.onConnect != nil && !h.onConnect(line) {
				return false
			}
			if h.refuse.Load() {
				return false
			}
			h.connects <- line
			return true
		},
		Disconnect: func(line int) {
			h.disconnects <- line
		},
		Receive: func(line int, b byte) {
			h.data <- b
		},
	}
}

func startServer(t *testing.T, h *host, opts ...Option) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Port = 0
	cfg.BindAddr = "127.0.0.1"
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewServer(cfg, h.callbacks(), opts...)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

func dial(t *testing.T, s *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", s.Port()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitLine(t *testing.T, ch chan int) int {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for callback")
		return -1
	}
}

func waitByte(t *testing.T, ch chan byte) byte {
	t.Helper()
	select {
	case b := <-ch:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for received byte")
		return 0
	}
}

func expectQuiet(t *testing.T, ch chan byte) {
	t.Helper()
	select {
	case b := <-ch:
		t.Fatalf("unexpected byte delivered: %#x", b)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNewServerRequiresReceiveCallback(t *testing.T) {
	_, err := NewServer(nil, api.Callbacks{})
	if err != api.ErrReceiveCallbackNil {
		t.Errorf("err = %v, want ErrReceiveCallbackNil", err)
	}
}

func TestStartTwice(t *testing.T) {
	h := newHost()
	s := startServer(t, h)
	if err := s.Start(); err != ErrAlreadyRunning {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}
	if !s.Running() {
		t.Error("server not running after failed double start")
	}
}

// Scenario: the host disables the client's local echo right after connect;
// exactly one IAC WILL ECHO goes out on the wire.
func TestLocalEchoOnTheWire(t *testing.T) {
	h := newHost()
	s := startServer(t, h)
	conn := dial(t, s)

	num := waitLine(t, h.connects)
	s.SetLocalEcho(num, false)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 3)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("reading negotiation: %v", err)
	}
	if buf[0] != 255 || buf[1] != 251 || buf[2] != 1 {
		t.Fatalf("wire bytes = %v, want [255 251 1]", buf)
	}

	// Nothing further until the client answers.
	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if n, _ := conn.Read(buf); n != 0 {
		t.Fatalf("unexpected extra negotiation traffic: %v", buf[:n])
	}
}

// Scenario: the client sends "A\r\n"; the host sees 'A' and the CR, the LF
// is swallowed.
func TestReceiveLineEnding(t *testing.T) {
	h := newHost()
	s := startServer(t, h)
	conn := dial(t, s)
	waitLine(t, h.connects)

	if _, err := conn.Write([]byte{0x41, 0x0D, 0x0A}); err != nil {
		t.Fatal(err)
	}
	if b := waitByte(t, h.data); b != 'A' {
		t.Errorf("first byte = %#x, want 'A'", b)
	}
	if b := waitByte(t, h.data); b != 0x0D {
		t.Errorf("second byte = %#x, want CR", b)
	}
	expectQuiet(t, h.data)
}

func TestSendReachesClient(t *testing.T) {
	h := newHost()
	s := startServer(t, h)
	conn := dial(t, s)
	num := waitLine(t, h.connects)

	if !s.Send(num, []byte("READY\r\n")) {
		t.Fatal("Send failed")
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 7)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("client read: %v", err)
	}
	if string(buf) != "READY\r\n" {
		t.Errorf("client got %q", buf)
	}

	if s.Send(99, []byte("x")) {
		t.Error("Send to an unconnected line succeeded")
	}
}

// The connect callback may already address the line: it streams a banner
// file before accepting.
func TestBannerFromConnectCallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motd.txt")
	if err := os.WriteFile(path, []byte("welcome\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := newHost()
	var srv *Server
	h.onConnect = func(line int) bool {
		return srv.SendFile(line, path)
	}

	// Built by hand so srv is assigned before the loop goroutine exists.
	cfg := DefaultConfig()
	cfg.Port = 0
	cfg.BindAddr = "127.0.0.1"
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewServer(cfg, h.callbacks())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv = s
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(s.Stop)
	conn := dial(t, srv)
	waitLine(t, h.connects)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, len("welcome\r\n"))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("client read: %v", err)
	}
	if string(buf) != "welcome\r\n" {
		t.Errorf("banner = %q, want \"welcome\\r\\n\"", buf)
	}
}

// Scenario: with every line occupied, the next connection is closed before
// any line is assigned and before the connect callback runs.
func TestRejectWhenFull(t *testing.T) {
	h := newHost()
	s := startServer(t, h, WithMaxLines(1))

	first := dial(t, s)
	defer first.Close()
	waitLine(t, h.connects)

	second := dial(t, s)
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := second.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("second connection read = %v, want EOF", err)
	}
	if len(h.connects) != 0 {
		t.Error("connect callback ran for the rejected connection")
	}
	if len(h.disconnects) != 0 {
		t.Error("disconnect callback ran for the rejected connection")
	}
}

func TestConnectCallbackRefusal(t *testing.T) {
	h := newHost()
	h.refuse.Store(true)
	s := startServer(t, h)

	conn := dial(t, s)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("refused connection read = %v, want EOF", err)
	}
	if len(h.disconnects) != 0 {
		t.Error("disconnect callback ran for a refused connection")
	}

	// The reserved line was freed: the next client gets line 0.
	h.refuse.Store(false)
	dial(t, s)
	if num := waitLine(t, h.connects); num != 0 {
		t.Errorf("line after refusal = %d, want 0", num)
	}
}

// Scenario: double Disconnect. The second call is a no-op and the disconnect
// callback fires exactly once.
func TestDisconnectIdempotent(t *testing.T) {
	h := newHost()
	s := startServer(t, h)
	conn := dial(t, s)
	num := waitLine(t, h.connects)

	s.Disconnect(num)
	s.Disconnect(num)

	if got := waitLine(t, h.disconnects); got != num {
		t.Errorf("disconnect callback for line %d, want %d", got, num)
	}
	select {
	case got := <-h.disconnects:
		t.Errorf("disconnect callback fired twice, second for line %d", got)
	case <-time.After(100 * time.Millisecond):
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("client read after disconnect = %v, want EOF", err)
	}
	if s.IsLineConnected(num) {
		t.Error("line still marked connected")
	}
}

func TestRemoteDisconnectFreesLine(t *testing.T) {
	h := newHost()
	s := startServer(t, h)
	conn := dial(t, s)
	num := waitLine(t, h.connects)

	conn.Close()
	if got := waitLine(t, h.disconnects); got != num {
		t.Errorf("disconnect callback for line %d, want %d", got, num)
	}

	// The number is reusable.
	dial(t, s)
	if got := waitLine(t, h.connects); got != num {
		t.Errorf("reused line = %d, want %d", got, num)
	}
}

func TestStopDrainsAllLines(t *testing.T) {
	h := newHost()
	s := startServer(t, h)
	c1 := dial(t, s)
	c2 := dial(t, s)
	waitLine(t, h.connects)
	waitLine(t, h.connects)

	s.Stop()

	if s.Running() {
		t.Error("server still running after Stop")
	}
	if got := len(h.disconnects); got != 2 {
		t.Errorf("disconnect callbacks after Stop = %d, want 2", got)
	}
	for _, c := range []net.Conn{c1, c2} {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, err := c.Read(make([]byte, 1)); err != io.EOF {
			t.Errorf("client read after Stop = %v, want EOF", err)
		}
	}

	// Stop again is a no-op.
	s.Stop()
}

// Scenario: the client sends a burst several times the receive buffer and
// closes immediately. Every byte still arrives, in order, before the
// disconnect callback fires.
func TestCloseAfterBurstDeliversAllBytes(t *testing.T) {
	h := newHost()
	s := startServer(t, h)
	conn := dial(t, s)
	num := waitLine(t, h.connects)

	const total = 8192
	burst := make([]byte, total)
	for i := range burst {
		burst[i] = byte(i%200 + 32) // printable range, no CR/NUL/IAC
	}
	if _, err := conn.Write(burst); err != nil {
		t.Fatal(err)
	}
	conn.Close()

	for i := 0; i < total; i++ {
		if b := waitByte(t, h.data); b != burst[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, b, burst[i])
		}
	}
	if got := waitLine(t, h.disconnects); got != num {
		t.Errorf("disconnect callback for line %d, want %d", got, num)
	}
}

// registerFail is a reactor whose Register always fails, to exercise the
// error path after a connection has been accepted.
type registerFail struct{}

func (registerFail) Register(fd int) error { return errors.New("register failed") }

func (registerFail) Unregister(fd int) error { return nil }

func (registerFail) Wait(ev []reactor.Event) (int, error) { return 0, errors.New("not waitable") }

func (registerFail) Close() error { return nil }

// Scenario: the connect callback accepts the line but reactor registration
// fails. The line is torn down through the normal path, so the host still
// gets its disconnect callback.
func TestRegisterFailureRunsDisconnectCallback(t *testing.T) {
	h := newHost()
	lfd, err := netio.Listen("127.0.0.1", 0, 8)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { netio.Close(lfd) })
	port, err := netio.LocalPort(lfd)
	if err != nil {
		t.Fatal(err)
	}

	s := &Server{
		cfg:      DefaultConfig(),
		cb:       h.callbacks(),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		lines:    newLineTable(4),
		listenFd: lfd,
		rx:       registerFail{},
		closeQ:   queue.New(),
	}

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	s.acceptReady()
	s.drainCloses()

	num := waitLine(t, h.connects)
	if got := waitLine(t, h.disconnects); got != num {
		t.Errorf("disconnect callback for line %d, want %d", got, num)
	}
	if s.IsLineConnected(num) {
		t.Error("line still in the table after failed registration")
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("client read = %v, want EOF", err)
	}
}

// brokenWait is a reactor whose blocking wait fails immediately.
type brokenWait struct{}

func (brokenWait) Register(fd int) error { return nil }

func (brokenWait) Unregister(fd int) error { return nil }

func (brokenWait) Wait(ev []reactor.Event) (int, error) { return 0, errors.New("wait failed") }

func (brokenWait) Close() error { return nil }

// Scenario: the reactor dies under the event loop. The loop tears itself
// down, Running flips false, and a later Stop or stray wake is harmless.
func TestStopAfterLoopFailure(t *testing.T) {
	h := newHost()
	lfd, err := netio.Listen("127.0.0.1", 0, 8)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	wake, err := netio.NewWakeup()
	if err != nil {
		t.Fatal(err)
	}

	// Teardown closes the listen socket and wake pipe, so no cleanups here.
	s := &Server{
		cfg:      DefaultConfig(),
		cb:       h.callbacks(),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		lines:    newLineTable(4),
		listenFd: lfd,
		rx:       brokenWait{},
		wake:     wake,
		closeQ:   queue.New(),
		loopDone: make(chan struct{}),
		running:  true,
	}
	go s.loop()
	<-s.loopDone

	if s.Running() {
		t.Error("Running still true after the loop failed")
	}
	s.Stop()
	wake.Kick()
}

func TestRemoteAddr(t *testing.T) {
	h := newHost()
	s := startServer(t, h)
	conn := dial(t, s)
	num := waitLine(t, h.connects)

	addr, ok := s.RemoteAddr(num)
	if !ok {
		t.Fatal("RemoteAddr reported no connection")
	}
	if addr != conn.LocalAddr().String() {
		t.Errorf("RemoteAddr = %q, client says %q", addr, conn.LocalAddr())
	}
	if _, ok := s.RemoteAddr(99); ok {
		t.Error("RemoteAddr for unconnected line reported ok")
	}
}
