package payload

import (
	"bytes"

	"github.com/chainward/btcp2p/pkg/wire"
)

// Addr carries a batch of known network addresses, each with a timestamp
//.
type Addr struct {
	Addrs []NetAddr
}

// Encode writes a as the payload of an addr message.
func (a Addr) Encode() []byte {
	buf := &bytes.Buffer{}
	w := wire.NewBinWriter(buf)
	w.WriteVarUint(uint64(len(a.Addrs)))
	for _, na := range a.Addrs {
		na.encode(w, true)
	}
	return buf.Bytes()
}

// DecodeAddr parses an addr message payload.
func DecodeAddr(payload []byte) (*Addr, error) {
	r := wire.NewBinReader(bytes.NewReader(payload))
	n := r.VarUint()
	a := &Addr{}
	for i := uint64(0); i < n; i++ {
		a.Addrs = append(a.Addrs, decodeNetAddr(r, true))
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return a, nil
}
