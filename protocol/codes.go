// File: protocol/codes.go
// Telnet command and option codes, with printable names for logging.
// See https://www.iana.org/assignments/telnet-options/telnet-options.xhtml

package protocol

import "fmt"

// Telnet command codes.
const (
	IAC  byte = 255 // Interpret As Command
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250 // Subnegotiation Begin
	GA   byte = 249 // Go Ahead
	EL   byte = 248 // Erase Line
	EC   byte = 247 // Erase Character
	AYT  byte = 246 // Are You There
	AO   byte = 245 // Abort Output
	IP   byte = 244 // Interrupt Process
	BRK  byte = 243 // Break
	DM   byte = 242 // Data Mark
	NOP  byte = 241 // No Operation
	SE   byte = 240 // Subnegotiation End
)

// Telnet option codes. Only OptEcho and OptSGA are ever agreed to; the rest
// exist so declined negotiations log a readable name.
const (
	OptBinary      byte = 0
	OptEcho        byte = 1
	OptReconnect   byte = 2
	OptSGA         byte = 3
	OptAMSN        byte = 4
	OptStatus      byte = 5
	OptTimingMark  byte = 6
	OptRCTE        byte = 7
	OptOutLineWid  byte = 8
	OptOutPageSiz  byte = 9
	OptNAOCRD      byte = 10
	OptNAOHTS      byte = 11
	OptNAOHTD      byte = 12
	OptNAOFFD      byte = 13
	OptNAOVTS      byte = 14
	OptNAOVTD      byte = 15
	OptNAOLFD      byte = 16
	OptExtendASCII byte = 17
	OptLogout      byte = 18
	OptBM          byte = 19
	OptDET         byte = 20
	OptSUPDUP      byte = 21
	OptSUPDUPOut   byte = 22
	OptSendLoc     byte = 23
	OptTermType    byte = 24
	OptEOR         byte = 25
	OptTUID        byte = 26
	OptOutMrk      byte = 27
	OptTTYLoc      byte = 28
	Opt3270Regime  byte = 29
	OptX3Pad       byte = 30
	OptNAWS        byte = 31
	OptTermSpeed   byte = 32
	OptRemFlowCtl  byte = 33
	OptLinemode    byte = 34
	OptXDispLoc    byte = 35
	OptEnviron     byte = 36
	OptAuthen      byte = 37
	OptEncrypt     byte = 38
	OptNewEnviron  byte = 39
	OptTN3270E     byte = 40
	OptXAuth       byte = 41
	OptCharset     byte = 42
	OptRSP         byte = 43
	OptComPort     byte = 44
	OptSuppEcho    byte = 45
	OptStartTLS    byte = 46
	OptKermit      byte = 47
	OptSendURL     byte = 48
	OptForwardX    byte = 49
	OptEXOPL       byte = 255
)

// ASCII control characters the line-ending logic cares about.
const (
	chNUL byte = 0x00
	chLF  byte = 0x0A
	chCR  byte = 0x0D
)

var commandNames = map[byte]string{
	IAC:  "IAC",
	DONT: "DONT",
	DO:   "DO",
	WONT: "WONT",
	WILL: "WILL",
	SB:   "SB",
	GA:   "GA",
	EL:   "EL",
	EC:   "EC",
	AYT:  "AYT",
	AO:   "AO",
	IP:   "IP",
	BRK:  "BRK",
	DM:   "DM",
	NOP:  "NOP",
	SE:   "SE",
}

var optionNames = map[byte]string{
	OptBinary:      "TRANSMIT-BINARY",
	OptEcho:        "ECHO",
	OptReconnect:   "RECONNECTION",
	OptSGA:         "SUPPRESS-GO-AHEAD",
	OptAMSN:        "AMSN",
	OptStatus:      "STATUS",
	OptTimingMark:  "TIMING-MARK",
	OptRCTE:        "RCTE",
	OptOutLineWid:  "OUTPUT-LINE-WIDTH",
	OptOutPageSiz:  "OUTPUT-PAGE-SIZE",
	OptNAOCRD:      "NAOCRD",
	OptNAOHTS:      "NAOHTS",
	OptNAOHTD:      "NAOHTD",
	OptNAOFFD:      "NAOFFD",
	OptNAOVTS:      "NAOVTS",
	OptNAOVTD:      "NAOVTD",
	OptNAOLFD:      "NAOLFD",
	OptExtendASCII: "EXTEND-ASCII",
	OptLogout:      "LOGOUT",
	OptBM:          "BM",
	OptDET:         "DET",
	OptSUPDUP:      "SUPDUP",
	OptSUPDUPOut:   "SUPDUP-OUTPUT",
	OptSendLoc:     "SEND-LOCATION",
	OptTermType:    "TERMINAL-TYPE",
	OptEOR:         "END-OF-RECORD",
	OptTUID:        "TUID",
	OptOutMrk:      "OUTMRK",
	OptTTYLoc:      "TTYLOC",
	Opt3270Regime:  "3270-REGIME",
	OptX3Pad:       "X.3-PAD",
	OptNAWS:        "NAWS",
	OptTermSpeed:   "TERMINAL-SPEED",
	OptRemFlowCtl:  "TOGGLE-FLOW-CONTROL",
	OptLinemode:    "LINEMODE",
	OptXDispLoc:    "X-DISPLAY-LOCATION",
	OptEnviron:     "ENVIRON",
	OptAuthen:      "AUTHENTICATION",
	OptEncrypt:     "ENCRYPT",
	OptNewEnviron:  "NEW-ENVIRON",
	OptTN3270E:     "TN3270E",
	OptXAuth:       "XAUTH",
	OptCharset:     "CHARSET",
	OptRSP:         "RSP",
	OptComPort:     "COM-PORT-OPTION",
	OptSuppEcho:    "SUPPRESS-ECHO",
	OptStartTLS:    "START-TLS",
	OptKermit:      "KERMIT",
	OptSendURL:     "SEND-URL",
	OptForwardX:    "FORWARD-X",
	OptEXOPL:       "EXTENDED-OPTIONS-LIST",
}

// CommandName returns the printable name of a Telnet command byte.
func CommandName(cmd byte) string {
	if s, ok := commandNames[cmd]; ok {
		return s
	}
	return fmt.Sprintf("0x%02X", cmd)
}

// OptionName returns the printable name of a Telnet option byte.
func OptionName(opt byte) string {
	if s, ok := optionNames[opt]; ok {
		return s
	}
	return fmt.Sprintf("0x%02X", opt)
}
