// Package network implements the peer slot table and per-peer handshake,
// ping, and message-dispatch state machine. Grounded on the shape of the teacher's own peer/server split
// (_pkg.dev/server) and on the peer-state idioms surveyed across the pack
// (con-quistador-dusk-blockchain pkg/p2p/peer/peermgr, jayschwa-tulva
// peer.go): a small state struct mutated only by message handlers and
// timer callbacks running on one goroutine.
package network

import (
	"fmt"
	"net"
	"time"

	"github.com/chainward/btcp2p/pkg/candidate"
	"github.com/chainward/btcp2p/pkg/chainstore"
	"github.com/chainward/btcp2p/pkg/wire"
)

// SlotState is a peer slot's lifecycle stage.
type SlotState int

// Slot states.
const (
	SlotEmpty SlotState = iota
	SlotDialing
	SlotHandshaking
	SlotReady
	SlotClosing
)

func (s SlotState) String() string {
	switch s {
	case SlotEmpty:
		return "empty"
	case SlotDialing:
		return "dialing"
	case SlotHandshaking:
		return "handshaking"
	case SlotReady:
		return "ready"
	case SlotClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// LatencyRingSize is the number of ping/pong samples kept per peer; the
// ring is "fully tested" once it holds this many.
const LatencyRingSize = 5

// LatencyRing is a bounded, overwrite-oldest ring of round-trip samples.
type LatencyRing struct {
	samples [LatencyRingSize]time.Duration
	count   int
	next    int
}

// Push records a new sample, evicting the oldest once full.
func (r *LatencyRing) Push(d time.Duration) {
	r.samples[r.next] = d
	r.next = (r.next + 1) % LatencyRingSize
	if r.count < LatencyRingSize {
		r.count++
	}
}

// Full reports whether the ring has accumulated LatencyRingSize samples
// ("fully tested", glossary).
func (r *LatencyRing) Full() bool {
	return r.count == LatencyRingSize
}

// Mean returns the average of the recorded samples, or zero if empty.
func (r *LatencyRing) Mean() time.Duration {
	if r.count == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < r.count; i++ {
		sum += r.samples[i]
	}
	return sum / time.Duration(r.count)
}

// Peer is one slot in the fixed-size outbound peer table.
type Peer struct {
	Index      int
	Generation uint64 // bumped by Reset; lets stale callbacks no-op
	Candidate  *candidate.Candidate
	Addr       net.IP
	Port       uint16
	Conn       net.Conn
	Started    time.Time
	State      SlotState

	TheyAcceptedUs bool
	WeAcceptThem   bool
	HandshakeStart time.Time

	PingNonce      uint64
	PingSentAt     time.Time
	PongReceivedAt time.Time
	Latencies      LatencyRing

	Buffer    *wire.RingBuffer
	LastHeard time.Time

	Requesting wire.Uint256 // zero = no outstanding block request

	HeightHint       uint32
	ProtocolVersion  uint32
	Services         uint64
	UnknownCommands  int
	SentSendHeaders  bool
	ReceivedSendHdrs bool
}

// NewPeer constructs an empty slot at index i.
func NewPeer(i int) *Peer {
	return &Peer{Index: i, State: SlotEmpty}
}

// Handshaken reports whether both handshake booleans are set.
func (p *Peer) Handshaken() bool {
	return p.TheyAcceptedUs && p.WeAcceptThem
}

// Reset clears a slot back to empty and bumps its generation, so any
// callback still in flight from the previous occupant can recognize it is
// stale.
func (p *Peer) Reset() {
	gen := p.Generation + 1
	*p = Peer{Index: p.Index, Generation: gen, State: SlotEmpty}
}

// Bind attaches a freshly dialing connection to this slot for candidate c.
func (p *Peer) Bind(conn net.Conn, c *candidate.Candidate, magic wire.Magic, now time.Time) {
	p.Conn = conn
	p.Candidate = c
	p.Addr = c.IP
	p.Port = c.Port
	p.Started = now
	p.State = SlotDialing
	p.Buffer = wire.NewRingBuffer(magic, wire.RingBufferCapacity)
}

// Key identifies the candidate this slot is bound to, or "" if empty. Used
// by candidate.Registry.BestNonPeer's bound-set.
func (p *Peer) Key() string {
	if p.Candidate == nil {
		return ""
	}
	return p.Candidate.Key()
}

// String renders a short diagnostic identifier, e.g. for log fields.
func (p *Peer) String() string {
	if p.Addr == nil {
		return fmt.Sprintf("slot#%d(empty)", p.Index)
	}
	return fmt.Sprintf("slot#%d(%s:%d)", p.Index, p.Addr, p.Port)
}

// Host is the set of engine-wide facilities the peer FSM needs but does
// not own: the candidate registry, the chain store, and the handful of
// config values and cross-slot actions spec §4.3's post-handshake hook
// and message table require. pkg/node implements this interface; pkg/
// network only depends on it, keeping the peer FSM unit-testable without
// the whole event loop.
type Host interface {
	Registry() *candidate.Registry
	Chain() chainstore.Store
	IBDMode() bool
	MinimalPeerVersion() uint32
	GetAddrThreshold() int
	UserAgent() string
	ProtocolVersion() uint32
	Services() uint64
	Magic() wire.Magic
	Now() time.Time
	// ReplacePeer is the universal cancellation primitive: close the socket and dial a fresh candidate into the slot.
	ReplacePeer(p *Peer)
	// Log records a peer-scoped event; implementations use structured
	// logging.
	Log(level string, msg string, fields map[string]interface{})
}
