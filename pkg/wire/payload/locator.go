package payload

import (
	"bytes"

	"github.com/chainward/btcp2p/pkg/wire"
)

// locator writes a block-locator payload shared by getheaders and
// getblocks: protocol version, hash list, and a stop hash.
func encodeLocator(w *wire.BinWriter, version uint32, hashes []wire.Uint256, hashStop wire.Uint256) {
	w.WriteLE(version)
	w.WriteVarUint(uint64(len(hashes)))
	for _, h := range hashes {
		w.WriteLE(h)
	}
	w.WriteLE(hashStop)
}

func decodeLocator(r *wire.BinReader) (version uint32, hashes []wire.Uint256, hashStop wire.Uint256) {
	r.ReadLE(&version)
	n := r.VarUint()
	hashes = make([]wire.Uint256, 0, n)
	for i := uint64(0); i < n; i++ {
		var h wire.Uint256
		r.ReadLE(&h)
		hashes = append(hashes, h)
	}
	r.ReadLE(&hashStop)
	return
}

// GetHeaders requests headers starting after the best-known hash in
// Locator.
type GetHeaders struct {
	Version  uint32
	Locator  []wire.Uint256
	HashStop wire.Uint256
}

// Encode writes gh as a getheaders message payload.
func (gh GetHeaders) Encode() []byte {
	buf := &bytes.Buffer{}
	encodeLocator(wire.NewBinWriter(buf), gh.Version, gh.Locator, gh.HashStop)
	return buf.Bytes()
}

// DecodeGetHeaders parses a getheaders message payload.
func DecodeGetHeaders(payload []byte) (*GetHeaders, error) {
	r := wire.NewBinReader(bytes.NewReader(payload))
	v, h, stop := decodeLocator(r)
	if r.Err != nil {
		return nil, r.Err
	}
	return &GetHeaders{Version: v, Locator: h, HashStop: stop}, nil
}

// GetBlocks requests block inventory the same way getheaders requests
// headers; same wire shape, distinct command name.
type GetBlocks struct {
	Version  uint32
	Locator  []wire.Uint256
	HashStop wire.Uint256
}

// Encode writes gb as a getblocks message payload.
func (gb GetBlocks) Encode() []byte {
	buf := &bytes.Buffer{}
	encodeLocator(wire.NewBinWriter(buf), gb.Version, gb.Locator, gb.HashStop)
	return buf.Bytes()
}

// DecodeGetBlocks parses a getblocks message payload.
func DecodeGetBlocks(payload []byte) (*GetBlocks, error) {
	r := wire.NewBinReader(bytes.NewReader(payload))
	v, h, stop := decodeLocator(r)
	if r.Err != nil {
		return nil, r.Err
	}
	return &GetBlocks{Version: v, Locator: h, HashStop: stop}, nil
}
