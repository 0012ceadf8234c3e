package wire

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"
)

// ErrOversizedPayload is returned when a header declares a payload larger
// than this engine is willing to buffer for a single peer.
var ErrOversizedPayload = errors.New("wire: payload length exceeds capacity")

// ErrChecksumMismatch marks a frame whose checksum does not match its
// payload. The caller drops the frame and resumes scanning past the magic
// that introduced it.
var ErrChecksumMismatch = errors.New("wire: checksum mismatch")

// ErrShortHeader is returned by decode when fewer than HeaderSize bytes are
// available; callers should wait for more data rather than treat this as
// fatal.
var ErrShortHeader = errors.New("wire: short header")

// Message is a single framed wire message: header fields plus payload.
type Message struct {
	Magic    Magic
	Command  Command
	Length   uint32
	Checksum uint32
	Payload  []byte
}

// NewMessage builds a Message with Length and Checksum computed from
// payload.
func NewMessage(magic Magic, cmd Command, payload []byte) *Message {
	return &Message{
		Magic:    magic,
		Command:  cmd,
		Length:   uint32(len(payload)),
		Checksum: checksum(payload),
		Payload:  payload,
	}
}

// checksum is the first four bytes of double-SHA-256(payload), interpreted
// as a little-endian uint32.
func checksum(payload []byte) uint32 {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return binary.LittleEndian.Uint32(second[:4])
}

// Encode writes the wire representation of m to w: magic, NUL-padded
// command, length, checksum, payload.
func (m *Message) Encode(w io.Writer) error {
	var cmdBuf [CommandSize]byte
	copy(cmdBuf[:], m.Command)

	bw := NewBinWriter(w)
	bw.WriteLE(m.Magic)
	bw.WriteLE(cmdBuf)
	bw.WriteLE(m.Length)
	bw.WriteLE(m.Checksum)
	if len(m.Payload) > 0 {
		bw.WriteLE(m.Payload)
	}
	return bw.Err
}

// Decode reads a complete message from r. Callers that only have a partial
// buffer should use RingBuffer.Feed instead, which never blocks on a
// reader and handles resynchronization.
func (m *Message) Decode(r io.Reader) error {
	br := NewBinReader(r)
	br.ReadLE(&m.Magic)

	var cmdBuf [CommandSize]byte
	br.ReadLE(&cmdBuf)
	m.Command = Command(bytes.TrimRight(cmdBuf[:], "\x00"))

	br.ReadLE(&m.Length)
	br.ReadLE(&m.Checksum)
	if br.Err != nil {
		return br.Err
	}

	if m.Length > MaxPayloadLength {
		return ErrOversizedPayload
	}

	m.Payload = make([]byte, m.Length)
	if m.Length > 0 {
		br.ReadLE(m.Payload)
		if br.Err != nil {
			return br.Err
		}
	}

	if checksum(m.Payload) != m.Checksum {
		return ErrChecksumMismatch
	}
	return nil
}

// decodeHeader parses just the 24-byte header from buf, without touching
// the payload. Used by RingBuffer during the scan loop.
func decodeHeader(buf []byte) (magic Magic, cmd Command, length, cksum uint32) {
	copy(magic[:], buf[0:4])
	cmd = Command(bytes.TrimRight(buf[4:4+CommandSize], "\x00"))
	length = binary.LittleEndian.Uint32(buf[16:20])
	cksum = binary.LittleEndian.Uint32(buf[20:24])
	return
}
