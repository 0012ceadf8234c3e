package payload

import (
	"bytes"

	"github.com/chainward/btcp2p/pkg/wire"
)

// Reject tells the sender that a previous message was refused.
type Reject struct {
	Command string
	Code    uint8
	Reason  string
	Data    wire.Uint256
}

// Encode writes rj as a reject message payload.
func (rj Reject) Encode() []byte {
	buf := &bytes.Buffer{}
	w := wire.NewBinWriter(buf)
	w.WriteVarString(rj.Command)
	w.WriteLE(rj.Code)
	w.WriteVarString(rj.Reason)
	if rj.Data != (wire.Uint256{}) {
		w.WriteLE(rj.Data)
	}
	return buf.Bytes()
}

// DecodeReject parses a reject message payload. Data is best-effort: not
// every reject carries the trailing hash.
func DecodeReject(payload []byte) (*Reject, error) {
	r := wire.NewBinReader(bytes.NewReader(payload))
	rj := &Reject{}
	rj.Command = r.VarString()
	r.ReadLE(&rj.Code)
	rj.Reason = r.VarString()
	if r.Err != nil {
		return nil, r.Err
	}
	r.ReadLE(&rj.Data) // ignore error: trailing hash is optional
	return rj, nil
}
