package payload

import (
	"bytes"

	"github.com/chainward/btcp2p/pkg/wire"
)

// Version is the payload of a `version` message: the first message sent on
// every connection.
type Version struct {
	ProtocolVersion uint32
	Services        uint64
	Timestamp       int64
	AddrRecv        NetAddr
	AddrFrom        NetAddr
	Nonce           uint64
	UserAgent       string
	StartHeight     uint32
	Relay           bool
}

// Encode writes v as the payload of a version message.
func (v Version) Encode() []byte {
	buf := &bytes.Buffer{}
	w := wire.NewBinWriter(buf)
	w.WriteLE(v.ProtocolVersion)
	w.WriteLE(v.Services)
	w.WriteLE(v.Timestamp)
	v.AddrRecv.encode(w, false)
	v.AddrFrom.encode(w, false)
	w.WriteLE(v.Nonce)
	w.WriteVarString(v.UserAgent)
	w.WriteLE(v.StartHeight)
	w.WriteLE(v.Relay)
	return buf.Bytes()
}

// DecodeVersion parses a version message payload.
func DecodeVersion(payload []byte) (*Version, error) {
	r := wire.NewBinReader(bytes.NewReader(payload))
	v := &Version{}
	r.ReadLE(&v.ProtocolVersion)
	r.ReadLE(&v.Services)
	r.ReadLE(&v.Timestamp)
	v.AddrRecv = decodeNetAddr(r, false)
	v.AddrFrom = decodeNetAddr(r, false)
	r.ReadLE(&v.Nonce)
	v.UserAgent = r.VarString()
	r.ReadLE(&v.StartHeight)
	r.ReadLE(&v.Relay)
	if r.Err != nil {
		return nil, r.Err
	}
	return v, nil
}
