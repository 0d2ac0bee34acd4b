//go:build linux

// File: internal/netio/socket_linux.go
// Non-blocking socket operations over raw descriptors.

package netio

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Listen creates the master listening socket: non-blocking TCP over IPv4,
// bound to the given interface and port. The port is held exclusively:
// SO_REUSEADDR is deliberately not set, so a second server on the same port
// fails at bind rather than stealing connections.
func Listen(bind string, port uint16, backlog int) (int, error) {
	ip, err := ParseIPv4(bind)
	if err != nil {
		return -1, err
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return -1, fmt.Errorf("socket create: %w", err)
	}
	sa := &unix.SockaddrInet4{Port: int(port), Addr: ip}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("bind %s: %w", FormatAddr(ip, int(port)), err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("listen %s: %w", FormatAddr(ip, int(port)), err)
	}
	return fd, nil
}

// Accept takes one pending connection off the listening socket. The new
// socket is created non-blocking. The remote address is returned formatted
// for logging. A wrapped EAGAIN means nothing was pending after all.
func Accept(lfd int) (int, string, error) {
	fd, sa, err := unix.Accept4(lfd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return -1, "", fmt.Errorf("accept: %w", err)
	}
	addr := ""
	if sa4, ok := sa.(*unix.SockaddrInet4); ok {
		addr = FormatAddr(sa4.Addr, sa4.Port)
	}
	return fd, addr, nil
}

// Read performs one non-blocking read. n of zero with a nil error means the
// peer closed the connection.
func Read(fd int, p []byte) (int, error) {
	return unix.Read(fd, p)
}

// Write performs one non-blocking write and reports whether the whole buffer
// went out. A short or failed write is a failure; nothing is queued.
func Write(fd int, p []byte) bool {
	n, err := unix.Write(fd, p)
	return err == nil && n == len(p)
}

// Shutdown signals end-of-stream in both directions without releasing the
// descriptor.
func Shutdown(fd int) {
	_ = unix.Shutdown(fd, unix.SHUT_RDWR)
}

// Close releases a descriptor.
func Close(fd int) error {
	return unix.Close(fd)
}

// LocalPort reports the port a socket is actually bound to, which is how a
// server started on port 0 learns its kernel-assigned port.
func LocalPort(fd int) (uint16, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return 0, fmt.Errorf("getsockname: %w", err)
	}
	sa4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return 0, fmt.Errorf("getsockname: not an IPv4 socket")
	}
	return uint16(sa4.Port), nil
}

// IsWouldBlock reports whether an error (possibly wrapped) is the
// non-blocking "try again" condition.
func IsWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

// Backlog returns the default listen backlog.
func Backlog() int {
	return unix.SOMAXCONN
}
