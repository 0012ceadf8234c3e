package payload

import (
	"bytes"

	"github.com/chainward/btcp2p/pkg/wire"
)

// BlockHeader is the 80-byte fixed header every block and every entry of a
// headers message carries. Grounded on the teacher's _pkg.dev/wire/payload
// BlockBase shape, trimmed to the fields this engine's chain-store adapter
// actually needs: a hash-chaining header, not full validation.
type BlockHeader struct {
	Version    uint32
	PrevBlock  wire.Uint256
	MerkleRoot wire.Uint256
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
}

func (h BlockHeader) encode(w *wire.BinWriter) {
	w.WriteLE(h.Version)
	w.WriteLE(h.PrevBlock)
	w.WriteLE(h.MerkleRoot)
	w.WriteLE(h.Timestamp)
	w.WriteLE(h.Bits)
	w.WriteLE(h.Nonce)
}

func decodeBlockHeader(r *wire.BinReader) BlockHeader {
	var h BlockHeader
	r.ReadLE(&h.Version)
	r.ReadLE(&h.PrevBlock)
	r.ReadLE(&h.MerkleRoot)
	r.ReadLE(&h.Timestamp)
	r.ReadLE(&h.Bits)
	r.ReadLE(&h.Nonce)
	return h
}

// Hash returns the double-SHA-256 of the fixed 80-byte header encoding,
// the block/header identifier used throughout the chain-store adapter.
func (h BlockHeader) Hash() wire.Uint256 {
	buf := &bytes.Buffer{}
	h.encode(wire.NewBinWriter(buf))
	return wire.DoubleSHA256(buf.Bytes())
}

// Headers carries a batch of block headers, each followed by a transaction
// count this engine always expects to be zero.
type Headers struct {
	Headers []BlockHeader
}

// Encode writes hs as a headers message payload.
func (hs Headers) Encode() []byte {
	buf := &bytes.Buffer{}
	w := wire.NewBinWriter(buf)
	w.WriteVarUint(uint64(len(hs.Headers)))
	for _, h := range hs.Headers {
		h.encode(w)
		w.WriteVarUint(0) // tx count, always zero: no tx relay
	}
	return buf.Bytes()
}

// DecodeHeaders parses a headers message payload.
func DecodeHeaders(payload []byte) (*Headers, error) {
	r := wire.NewBinReader(bytes.NewReader(payload))
	n := r.VarUint()
	hs := &Headers{}
	for i := uint64(0); i < n; i++ {
		hs.Headers = append(hs.Headers, decodeBlockHeader(r))
		r.VarUint() // discard tx count
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return hs, nil
}

// Block is a full block: header plus raw transaction bytes. Transaction
// contents are opaque to this engine: it only needs the header to chain
// and hands the whole payload to the chain-store adapter.
type Block struct {
	Header BlockHeader
	TxData []byte // opaque, forwarded to chain store as-is
}

// Encode writes b as a block message payload.
func (b Block) Encode() []byte {
	buf := &bytes.Buffer{}
	w := wire.NewBinWriter(buf)
	b.Header.encode(w)
	w.WriteLE(b.TxData)
	return buf.Bytes()
}

// DecodeBlock parses a block message payload.
func DecodeBlock(payload []byte) (*Block, error) {
	r := wire.NewBinReader(bytes.NewReader(payload))
	b := &Block{Header: decodeBlockHeader(r)}
	if r.Err != nil {
		return nil, r.Err
	}
	b.TxData = append([]byte(nil), payload[80:]...)
	return b, nil
}

// Hash is the block's identifying hash: its header hash.
func (b Block) Hash() wire.Uint256 {
	return b.Header.Hash()
}
