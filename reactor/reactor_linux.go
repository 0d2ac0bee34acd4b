//go:build linux

// File: reactor/reactor_linux.go
// Linux epoll(7)-based reactor implementation and factory.

package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// epollReactor implements Reactor using Linux epoll.
type epollReactor struct {
	epfd int
}

// New constructs the platform reactor for Linux.
func New() (Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &epollReactor{epfd: epfd}, nil
}

// Register adds a descriptor to the epoll watch list. Registration is
// level-triggered: the loop does one bounded read per notification and relies
// on being re-notified while data remains.
func (r *epollReactor) Register(fd int) error {
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLRDHUP,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	return nil
}

// Unregister removes a descriptor from the epoll watch list.
func (r *epollReactor) Unregister(fd int) error {
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

// Wait blocks for readiness events and translates them into Events.
func (r *epollReactor) Wait(events []Event) (int, error) {
	raw := make([]unix.EpollEvent, len(events))
	n, err := unix.EpollWait(r.epfd, raw, -1)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	for i := 0; i < n; i++ {
		var t EventType
		// A peer shutdown (EPOLLRDHUP) is read readiness, not an error:
		// buffered data must still be drained until recv reports EOF.
		if raw[i].Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0 {
			t |= EventRead
		}
		if raw[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			t |= EventError
		}
		events[i] = Event{Fd: int(raw[i].Fd), Type: t}
	}
	return n, nil
}

// Close releases the epoll instance.
func (r *epollReactor) Close() error {
	return unix.Close(r.epfd)
}
