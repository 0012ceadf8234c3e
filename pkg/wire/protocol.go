// Package wire implements the Bitcoin P2P wire format: message framing,
// checksums, and the CompactSize-based binary codec payload types build on.
package wire

import "encoding/binary"

// Magic identifies the network a message belongs to. Four bytes, compared
// byte-for-byte against the start of every frame.
type Magic [4]byte

// Well-known network magics. Regtest is used by the test suite.
var (
	MainNet = Magic{0xf9, 0xbe, 0xb4, 0xd9}
	TestNet = Magic{0x0b, 0x11, 0x09, 0x07}
	RegTest = Magic{0xfa, 0xbf, 0xb5, 0xda}
)

// MagicFromUint32 builds a Magic from the big-endian uint32 form a config
// file writes it in (e.g. 0xf9beb4d9 for MainNet), so P2P.Magic can
// override the named network a deployment otherwise picks by name.
func MagicFromUint32(v uint32) Magic {
	var m Magic
	binary.BigEndian.PutUint32(m[:], v)
	return m
}

// Command names a message type. Wire-encoded as 12 NUL-padded ASCII bytes.
type Command string

// Commands implemented by this engine.
const (
	CmdVersion     Command = "version"
	CmdVerAck      Command = "verack"
	CmdPing        Command = "ping"
	CmdPong        Command = "pong"
	CmdAddr        Command = "addr"
	CmdGetAddr     Command = "getaddr"
	CmdInv         Command = "inv"
	CmdGetData     Command = "getdata"
	CmdGetHeaders  Command = "getheaders"
	CmdGetBlocks   Command = "getblocks"
	CmdSendHeaders Command = "sendheaders"
	CmdHeaders     Command = "headers"
	CmdBlock       Command = "block"
	CmdReject      Command = "reject"
)

// ServiceFlag advertises capabilities in a version message.
type ServiceFlag uint64

// NodeNetwork is the only service bit this engine advertises or requires.
const NodeNetwork ServiceFlag = 1

// MinimalPeerVersion is the lowest protocol version this engine will
// accept from a peer when deciding whether it accepts them as a peer.
const MinimalPeerVersion uint32 = 70001

// HeaderSize is the size, in bytes, of a message header:
// magic(4) + command(12) + length(4) + checksum(4).
const HeaderSize = 24

// CommandSize is the fixed, NUL-padded width of the command field.
const CommandSize = 12

// MaxPayloadLength bounds an individual payload; larger declared lengths
// mark the peer as desynced/malicious.
const MaxPayloadLength = 32 * 1024 * 1024

// RingBufferCapacity is the fixed per-peer stream buffer size.
const RingBufferCapacity = 64 * 1024
