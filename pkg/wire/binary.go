package wire

import (
	"encoding/binary"
	"io"
)

// BinReader is a convenience wrapper around an io.Reader that latches the
// first error it sees, so a struct with many fields can be decoded as a
// sequence of unchecked calls followed by a single Err check.
//
// Grounded on the teacher's pkg/wire/util.BinReader (CityOfZion-era
// neo-go), generalized to the Bitcoin CompactSize scheme.
type BinReader struct {
	R   io.Reader
	Err error
}

// NewBinReader wraps r.
func NewBinReader(r io.Reader) *BinReader {
	return &BinReader{R: r}
}

// ReadLE reads v from the underlying reader in little-endian order.
func (r *BinReader) ReadLE(v interface{}) {
	if r.Err != nil {
		return
	}
	r.Err = binary.Read(r.R, binary.LittleEndian, v)
}

// ReadBE reads v from the underlying reader in big-endian order. Used for
// port numbers in network address records, per the Bitcoin wire format.
func (r *BinReader) ReadBE(v interface{}) {
	if r.Err != nil {
		return
	}
	r.Err = binary.Read(r.R, binary.BigEndian, v)
}

// VarUint reads a CompactSize-encoded unsigned integer.
func (r *BinReader) VarUint() uint64 {
	if r.Err != nil {
		return 0
	}
	var b uint8
	r.ReadLE(&b)
	switch b {
	case 0xfd:
		var v uint16
		r.ReadLE(&v)
		return uint64(v)
	case 0xfe:
		var v uint32
		r.ReadLE(&v)
		return uint64(v)
	case 0xff:
		var v uint64
		r.ReadLE(&v)
		return v
	default:
		return uint64(b)
	}
}

// VarBytes reads a CompactSize-prefixed byte slice.
func (r *BinReader) VarBytes() []byte {
	n := r.VarUint()
	if r.Err != nil || n == 0 {
		return nil
	}
	b := make([]byte, n)
	r.ReadLE(b)
	return b
}

// VarString reads a CompactSize-prefixed string.
func (r *BinReader) VarString() string {
	return string(r.VarBytes())
}

// BinWriter is the encoding counterpart of BinReader.
type BinWriter struct {
	W   io.Writer
	Err error
}

// NewBinWriter wraps w.
func NewBinWriter(w io.Writer) *BinWriter {
	return &BinWriter{W: w}
}

// WriteLE writes v in little-endian order.
func (w *BinWriter) WriteLE(v interface{}) {
	if w.Err != nil {
		return
	}
	w.Err = binary.Write(w.W, binary.LittleEndian, v)
}

// WriteBE writes v in big-endian order.
func (w *BinWriter) WriteBE(v interface{}) {
	if w.Err != nil {
		return
	}
	w.Err = binary.Write(w.W, binary.BigEndian, v)
}

// WriteVarUint writes n using the CompactSize encoding.
func (w *BinWriter) WriteVarUint(n uint64) {
	if w.Err != nil {
		return
	}
	switch {
	case n < 0xfd:
		w.WriteLE(uint8(n))
	case n <= 0xffff:
		w.WriteLE(uint8(0xfd))
		w.WriteLE(uint16(n))
	case n <= 0xffffffff:
		w.WriteLE(uint8(0xfe))
		w.WriteLE(uint32(n))
	default:
		w.WriteLE(uint8(0xff))
		w.WriteLE(n)
	}
}

// WriteVarBytes writes b as a CompactSize-prefixed byte slice.
func (w *BinWriter) WriteVarBytes(b []byte) {
	w.WriteVarUint(uint64(len(b)))
	if len(b) == 0 {
		return
	}
	w.WriteLE(b)
}

// WriteVarString writes s as a CompactSize-prefixed string.
func (w *BinWriter) WriteVarString(s string) {
	w.WriteVarBytes([]byte(s))
}
