package payload

import (
	"bytes"

	"github.com/chainward/btcp2p/pkg/wire"
)

// InvType identifies what an inventory vector refers to.
type InvType uint32

// Inventory object types.
const (
	InvError InvType = 0
	InvTx    InvType = 1
	InvBlock InvType = 2
)

// InvVector names one object a peer has or wants.
type InvVector struct {
	Type InvType
	Hash wire.Uint256
}

func encodeInv(w *wire.BinWriter, items []InvVector) {
	w.WriteVarUint(uint64(len(items)))
	for _, it := range items {
		w.WriteLE(it.Type)
		w.WriteLE(it.Hash)
	}
}

func decodeInv(r *wire.BinReader) []InvVector {
	n := r.VarUint()
	items := make([]InvVector, 0, n)
	for i := uint64(0); i < n; i++ {
		var it InvVector
		r.ReadLE(&it.Type)
		r.ReadLE(&it.Hash)
		items = append(items, it)
	}
	return items
}

// Inv advertises objects the sender has.
type Inv struct {
	Items []InvVector
}

// Encode writes inv as an inv message payload.
func (inv Inv) Encode() []byte {
	buf := &bytes.Buffer{}
	encodeInv(wire.NewBinWriter(buf), inv.Items)
	return buf.Bytes()
}

// DecodeInv parses an inv message payload.
func DecodeInv(payload []byte) (*Inv, error) {
	r := wire.NewBinReader(bytes.NewReader(payload))
	items := decodeInv(r)
	if r.Err != nil {
		return nil, r.Err
	}
	return &Inv{Items: items}, nil
}

// GetData requests the full objects named by Items.
type GetData struct {
	Items []InvVector
}

// Encode writes gd as a getdata message payload.
func (gd GetData) Encode() []byte {
	buf := &bytes.Buffer{}
	encodeInv(wire.NewBinWriter(buf), gd.Items)
	return buf.Bytes()
}

// DecodeGetData parses a getdata message payload.
func DecodeGetData(payload []byte) (*GetData, error) {
	r := wire.NewBinReader(bytes.NewReader(payload))
	items := decodeInv(r)
	if r.Err != nil {
		return nil, r.Err
	}
	return &GetData{Items: items}, nil
}

// NewGetDataBlock builds a single-item getdata requesting a block.
func NewGetDataBlock(hash wire.Uint256) GetData {
	return GetData{Items: []InvVector{{Type: InvBlock, Hash: hash}}}
}
