//go:build linux

// File: internal/netio/wakeup_linux.go
// Self-pipe used to wake the event loop from another goroutine.

package netio

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Wakeup is a non-blocking self-pipe. The read end sits in the reactor's
// watch set; Kick from any goroutine makes the loop's wait return. The pipe
// is internally locked so that Kick racing Close can never write to a
// descriptor number the kernel has already handed to someone else.
type Wakeup struct {
	mu   sync.Mutex
	r, w int
}

// NewWakeup creates the pipe with both ends non-blocking.
func NewWakeup() (*Wakeup, error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("wake pipe: %w", err)
	}
	return &Wakeup{r: p[0], w: p[1]}, nil
}

// Fd returns the read-end descriptor for reactor registration, or -1 once
// the pipe is closed.
func (wk *Wakeup) Fd() int {
	wk.mu.Lock()
	defer wk.mu.Unlock()
	return wk.r
}

// Kick makes a pending or future Wait on the loop return. A full pipe is
// fine: the loop has wakes queued already. A closed pipe is a no-op.
func (wk *Wakeup) Kick() {
	wk.mu.Lock()
	defer wk.mu.Unlock()
	if wk.w < 0 {
		return
	}
	_, _ = unix.Write(wk.w, []byte{0})
}

// Drain consumes every queued wake token. Called by the loop after the read
// end reports ready.
func (wk *Wakeup) Drain() {
	wk.mu.Lock()
	defer wk.mu.Unlock()
	if wk.r < 0 {
		return
	}
	var buf [64]byte
	for {
		n, err := unix.Read(wk.r, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Close releases both pipe ends. Idempotent.
func (wk *Wakeup) Close() {
	wk.mu.Lock()
	defer wk.mu.Unlock()
	if wk.r >= 0 {
		_ = unix.Close(wk.r)
		_ = unix.Close(wk.w)
	}
	wk.r, wk.w = -1, -1
}
