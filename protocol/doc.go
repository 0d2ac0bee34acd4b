// Package protocol implements the Telnet NVT protocol for a single terminal
// line: decoding the inbound IAC-escaped byte stream into plain data bytes for
// the host, generating option-negotiation replies, and encoding outbound host
// data.
//
// The implementation conforms to RFC 854/855/857/858 but negotiates exactly
// two options, ECHO and SUPPRESS-GO-AHEAD. Every other option offered or
// requested by the peer is declined. Suboption negotiation and the 8-bit
// binary transmission mode are not implemented and never agreed to.
package protocol
