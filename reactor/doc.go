// Package reactor provides the readiness-notification primitive under the
// terminal server's event loop: register non-blocking sockets, then wait for
// read readiness and error conditions. One loop draining one Reactor
// serializes all events for one server.
//
// Linux uses epoll(7); other platforms get a stub constructor that reports
// the platform as unsupported.
package reactor
