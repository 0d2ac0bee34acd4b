// File: internal/netio/addr.go
// IPv4 address parsing and formatting helpers.

package netio

import (
	"fmt"
	"net"
	"strconv"
)

// ParseIPv4 turns a bind-address string into 4-byte form. The empty string
// means all interfaces (0.0.0.0). Interfaces are addressed by IP literal, not
// by name.
func ParseIPv4(s string) ([4]byte, error) {
	var out [4]byte
	if s == "" {
		return out, nil
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return out, fmt.Errorf("invalid bind address %q", s)
	}
	v4 := ip.To4()
	if v4 == nil {
		return out, fmt.Errorf("bind address %q is not IPv4", s)
	}
	copy(out[:], v4)
	return out, nil
}

// FormatAddr renders an IPv4 address and port as "a.b.c.d:port".
func FormatAddr(ip [4]byte, port int) string {
	return net.JoinHostPort(net.IP(ip[:]).String(), strconv.Itoa(port))
}
