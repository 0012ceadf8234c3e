// Package payload implements the typed message variants carried inside a
// wire.Message payload: encode/decode for each command this engine
// speaks. Grounded on the teacher's _pkg.dev/wire/payload (CityOfZion-era
// neo-go) for the CompactSize/struct-field shape, adapted field-for-field
// to the Bitcoin wire format this engine speaks.
package payload

import (
	"net"

	"github.com/chainward/btcp2p/pkg/wire"
)

// NetAddr is a single network address record, as carried inside a version
// message and an addr message. Port is big-endian on the wire.
type NetAddr struct {
	Timestamp uint32 // absent from the version message's own embedded addrs
	Services  uint64
	IP        net.IP // IPv4 is carried v4-mapped; a decoded IPv6 record keeps its 16 bytes
	Port      uint16
}

// encode writes the 4-in-6-mapped IP + big-endian port record.
// withTimestamp controls whether the leading timestamp field is present:
// version messages omit it, addr messages include it.
func (a NetAddr) encode(w *wire.BinWriter, withTimestamp bool) {
	if withTimestamp {
		w.WriteLE(a.Timestamp)
	}
	w.WriteLE(a.Services)

	var ipv6 [16]byte
	copy(ipv6[:10], []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	ipv6[10] = 0xff
	ipv6[11] = 0xff
	ip4 := a.IP.To4()
	if ip4 == nil {
		ip4 = net.IPv4zero.To4()
	}
	copy(ipv6[12:], ip4)
	w.WriteLE(ipv6)
	w.WriteBE(a.Port)
}

func decodeNetAddr(r *wire.BinReader, withTimestamp bool) NetAddr {
	var a NetAddr
	if withTimestamp {
		r.ReadLE(&a.Timestamp)
	}
	r.ReadLE(&a.Services)

	var ipv6 [16]byte
	r.ReadLE(&ipv6)
	a.IP = net.IP(append([]byte(nil), ipv6[:]...))

	r.ReadBE(&a.Port)
	return a
}

// IsIPv4 reports whether a carries a genuine IPv4 address.
func (a NetAddr) IsIPv4() bool {
	return a.IP.To4() != nil
}
