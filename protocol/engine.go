// File: protocol/engine.go
// Per-line Telnet state machine: stream decoding and option negotiation.

package protocol

import (
	"bufio"
	"log/slog"
	"os"

	"github.com/muxtel/muxtel/api"
)

// SocketWriter is the raw non-blocking write the engine replies through. The
// write either completes in full or fails; nothing is buffered or retried.
type SocketWriter interface {
	SocketWrite(p []byte) bool
}

// OptionState tracks one side of one negotiable option.
type OptionState uint8

const (
	OptionDisabled OptionState = iota
	OptionEnabled
	OptionNegotiating
)

// String returns a printable option state for logs.
func (s OptionState) String() string {
	switch s {
	case OptionDisabled:
		return "disabled"
	case OptionEnabled:
		return "enabled"
	case OptionNegotiating:
		return "negotiating"
	}
	return "invalid"
}

// phase is the decoder position within an IAC escape or CR sequence.
type phase uint8

const (
	phaseNormal phase = iota
	phaseCR
	phaseIAC
	phaseWill
	phaseWont
	phaseDo
	phaseDont
)

// Engine decodes one connection's inbound Telnet stream into plain data bytes
// and owns that connection's negotiation state. It is driven one byte at a
// time by the server's event loop and is not safe for concurrent Feed calls.
type Engine struct {
	line int
	w    SocketWriter
	recv api.ReceiveCallback
	log  *slog.Logger

	phase phase

	// localEcho is OUR side of the ECHO option. Enabled means we offered to
	// echo (IAC WILL ECHO) and the client agreed, which is the Telnet way of
	// turning the client's local echo off. See SetLocalEcho.
	localEcho OptionState
	localSGA  OptionState
	remoteSGA OptionState
}

// NewEngine builds the engine for one line. The writer sends raw bytes on the
// line's socket and recv delivers decoded data bytes to the host.
func NewEngine(line int, w SocketWriter, recv api.ReceiveCallback, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		line:  line,
		w:     w,
		recv:  recv,
		log:   log,
		phase: phaseNormal,
	}
}

// LocalEcho reports our side of the ECHO option.
func (e *Engine) LocalEcho() OptionState { return e.localEcho }

// LocalSGA reports our side of the SUPPRESS-GO-AHEAD option.
func (e *Engine) LocalSGA() OptionState { return e.localSGA }

// RemoteSGA reports the client's side of the SUPPRESS-GO-AHEAD option.
func (e *Engine) RemoteSGA() OptionState { return e.remoteSGA }

// Feed advances the state machine by one received byte. Plain data bytes are
// delivered through the receive callback; command sequences are consumed and
// may generate replies on the socket.
//
// Telnet is conflicted about line endings: some clients send CR LF for the
// ENTER key, others CR alone or CR NUL. There is no option to negotiate this
// away, so the state machine resolves it: NUL bytes are always swallowed, and
// an LF immediately following a CR is swallowed too. Either way the host sees
// exactly one CR per line ending.
func (e *Engine) Feed(b byte) {
	if e.phase == phaseNormal && b != IAC {
		// Normal text. NULs are dropped; a CR is delivered now and arms the
		// CR-pairing state for the next byte.
		if b != chNUL {
			e.recv(e.line, b)
		}
		if b == chCR {
			e.phase = phaseCR
		}
		return
	}
	e.phase = e.next(b)
}

// next runs one transition for every state except plain Normal text.
func (e *Engine) next(b byte) phase {
	switch e.phase {

	// Only an IAC routes here from Normal.
	case phaseNormal:
		return phaseIAC

	// The byte before this one was a CR. LF and NUL complete the line ending
	// and are dropped; anything else is ordinary data (the CR itself was
	// already delivered).
	case phaseCR:
		if b != chNUL && b != chLF {
			e.recv(e.line, b)
		}
		return phaseNormal

	// The byte before this one was an IAC. WILL/WONT/DO/DONT take an option
	// argument; a doubled IAC is a literal 255 data byte; the remaining
	// single-byte commands are consumed without effect.
	case phaseIAC:
		switch b {
		case WILL:
			return phaseWill
		case WONT:
			return phaseWont
		case DO:
			return phaseDo
		case DONT:
			return phaseDont
		case IAC:
			e.recv(e.line, b)
			return phaseNormal
		case NOP, DM, BRK, IP, AO, AYT, EC, EL, GA:
			e.log.Debug("telnet command ignored", "command", CommandName(b))
			return phaseNormal
		default:
			e.log.Warn("telnet unimplemented command received", "command", CommandName(b))
			return phaseNormal
		}

	// IAC WILL/WONT/DO/DONT consume exactly one option byte.
	case phaseWill:
		e.handleWill(b)
		return phaseNormal
	case phaseWont:
		e.handleWont(b)
		return phaseNormal
	case phaseDo:
		e.handleDo(b)
		return phaseNormal
	case phaseDont:
		e.handleDont(b)
		return phaseNormal
	}

	// A new phase without a transition above is a programming error; resync.
	e.log.Error("telnet state machine in unknown phase", "phase", int(e.phase))
	return phaseNormal
}

// handleWill processes "IAC WILL option": either a reply to a DO we sent or an
// unsolicited offer from the client to enable an option on its end.
func (e *Engine) handleWill(opt byte) {
	e.log.Debug("telnet received WILL", "option", OptionName(opt))
	switch opt {
	case OptSGA:
		// Skip the DO reply if we are mid-negotiation ourselves, otherwise
		// the two ends chase each other's confirmations forever.
		if e.remoteSGA != OptionNegotiating {
			e.sendCommand(DO, OptSGA)
		}
		e.remoteSGA = OptionEnabled
		e.log.Debug("telnet client suppress go-ahead enabled")
	default:
		e.log.Debug("telnet option declined", "option", OptionName(opt))
		e.sendCommand(DONT, opt)
	}
}

// handleWont processes "IAC WONT option", the client refusing an option. The
// only option we ever ask the client for is SGA, and we cannot operate in the
// half-duplex mode its refusal implies, so that refusal is a fatal protocol
// condition. The connection is left up regardless; go-ahead signaling is
// simply unsupported from here on.
func (e *Engine) handleWont(opt byte) {
	switch opt {
	case OptSGA:
		e.log.Error("telnet suppress go-ahead declined by client, half-duplex unsupported")
		e.remoteSGA = OptionDisabled
	default:
		e.log.Warn("telnet received unexpected WONT", "option", OptionName(opt))
	}
}

// handleDo processes "IAC DO option", the client asking us to enable an
// option on our end.
func (e *Engine) handleDo(opt byte) {
	e.log.Debug("telnet received DO", "option", OptionName(opt))
	switch opt {
	case OptSGA:
		if e.localSGA != OptionNegotiating {
			e.sendCommand(WILL, OptSGA)
		}
		e.localSGA = OptionEnabled
		e.log.Debug("telnet local suppress go-ahead enabled")

	case OptEcho:
		// Only treat this as the answer to our own WILL/WONT if one is
		// outstanding. An unsolicited DO ECHO is confirmed or refused from
		// the current state, never renegotiated, so no loop can start.
		switch e.localEcho {
		case OptionNegotiating:
			e.localEcho = OptionEnabled
			e.log.Debug("telnet client local echo disabled")
		case OptionEnabled:
			e.sendCommand(WILL, OptEcho)
		case OptionDisabled:
			e.sendCommand(WONT, OptEcho)
		}

	default:
		e.log.Warn("telnet received unexpected DO", "option", OptionName(opt))
		e.sendCommand(WONT, opt)
	}
}

// handleDont processes "IAC DONT option", the client asking us to disable an
// option on our end.
func (e *Engine) handleDont(opt byte) {
	e.log.Debug("telnet received DONT", "option", OptionName(opt))
	switch opt {
	case OptSGA:
		// Same fatal-but-non-terminating condition as handleWont.
		e.log.Error("telnet suppress go-ahead refused by client, half-duplex unsupported")
		e.localSGA = OptionDisabled
	case OptEcho:
		e.localEcho = OptionDisabled
		e.log.Debug("telnet client local echo enabled")
	default:
		e.log.Warn("telnet received unexpected DONT", "option", OptionName(opt))
	}
}

// SetLocalEcho asks the client to enable or disable its local echo.
//
// Telnet has no direct way to say that. Sending DO ECHO would ask the client
// to echo our output back to us, which is not it at all (RFC 857). What works
// is the inverse: offering IAC WILL ECHO tells the client we will handle
// echoing, and every reasonable client stops echoing locally once it accepts
// with DO ECHO. IAC WONT ECHO withdraws the offer and restores the client's
// local echo. The Telnet default is no echo on either end, so clients start
// out echoing locally.
func (e *Engine) SetLocalEcho(clientEcho bool) {
	// A previous offer is still unanswered; don't stack another.
	if e.localEcho == OptionNegotiating {
		return
	}
	if clientEcho {
		if e.localEcho == OptionDisabled {
			return
		}
		e.sendCommand(WONT, OptEcho)
	} else {
		if e.localEcho == OptionEnabled {
			return
		}
		e.sendCommand(WILL, OptEcho)
	}
	// The DO or DONT answer lands in handleDo/handleDont.
	e.localEcho = OptionNegotiating
}

// SuppressGoAhead negotiates SUPPRESS-GO-AHEAD in both directions. Go-ahead
// turn signaling is a half-duplex holdover that remains the Telnet default,
// so this runs once at session start. Some clients (PuTTY, for one) offer or
// request SGA on their own before we get here; the Negotiating checks in
// handleWill/handleDo keep that from turning into a negotiation loop.
func (e *Engine) SuppressGoAhead() {
	if e.localSGA != OptionEnabled {
		e.sendCommand(WILL, OptSGA)
		e.localSGA = OptionNegotiating
	}
	if e.remoteSGA != OptionEnabled {
		e.sendCommand(DO, OptSGA)
		e.remoteSGA = OptionNegotiating
	}
}

// Send transmits host terminal data to the client. Proper binary support
// would stuff NULs after bare CRs and escape IAC bytes in the data; this
// server doesn't negotiate binary mode, so neither applies.
func (e *Engine) Send(data []byte) bool {
	return e.w.SocketWrite(data)
}

// SendFile streams a text file to the client line by line, each line
// terminated with CRLF. Used for message-of-the-day banners on connect. Any
// error gives up immediately and returns false.
func (e *Engine) SendFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		e.log.Warn("telnet banner file open failed", "path", path, "err", err)
		return false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if !e.Send(sc.Bytes()) || !e.Send([]byte{chCR, chLF}) {
			return false
		}
	}
	if err := sc.Err(); err != nil {
		e.log.Warn("telnet banner file read failed", "path", path, "err", err)
		return false
	}
	return true
}

// sendCommand writes a three-byte IAC escape sequence to the client.
func (e *Engine) sendCommand(cmd, opt byte) {
	if !e.w.SocketWrite([]byte{IAC, cmd, opt}) {
		e.log.Warn("telnet failed to send command",
			"command", CommandName(cmd), "option", OptionName(opt))
		return
	}
	e.log.Debug("telnet sent command",
		"command", CommandName(cmd), "option", OptionName(opt))
}
