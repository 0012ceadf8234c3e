package payload

import (
	"bytes"

	"github.com/chainward/btcp2p/pkg/wire"
)

// VerAck is the empty payload of a `verack` message.
type VerAck struct{}

// Encode returns the (empty) wire representation of a verack.
func (VerAck) Encode() []byte { return nil }

// Ping carries a nonce the peer must echo back in a pong.
type Ping struct {
	Nonce uint64
}

// Encode writes p as the payload of a ping message.
func (p Ping) Encode() []byte {
	buf := &bytes.Buffer{}
	wire.NewBinWriter(buf).WriteLE(p.Nonce)
	return buf.Bytes()
}

// DecodePing parses a ping (or pong, same shape) payload.
func DecodePing(payload []byte) (*Ping, error) {
	r := wire.NewBinReader(bytes.NewReader(payload))
	p := &Ping{}
	r.ReadLE(&p.Nonce)
	if r.Err != nil {
		return nil, r.Err
	}
	return p, nil
}

// Pong echoes the nonce from the ping it answers.
type Pong struct {
	Nonce uint64
}

// Encode writes p as the payload of a pong message.
func (p Pong) Encode() []byte {
	buf := &bytes.Buffer{}
	wire.NewBinWriter(buf).WriteLE(p.Nonce)
	return buf.Bytes()
}

// DecodePong parses a pong payload.
func DecodePong(payload []byte) (*Pong, error) {
	r := wire.NewBinReader(bytes.NewReader(payload))
	p := &Pong{}
	r.ReadLE(&p.Nonce)
	if r.Err != nil {
		return nil, r.Err
	}
	return p, nil
}

// GetAddr requests the recipient's known-good addresses.
type GetAddr struct{}

// Encode returns the (empty) wire representation of a getaddr.
func (GetAddr) Encode() []byte { return nil }

// SendHeaders announces that the sender prefers unsolicited `headers`
// messages over `inv` for new blocks. This engine encodes it but never
// emits it in response to a peer's own sendheaders.
type SendHeaders struct{}

// Encode returns the (empty) wire representation of a sendheaders.
func (SendHeaders) Encode() []byte { return nil }
