// Package connmgr owns peer sockets: dialing, closing, and replacing
//. Grounded on the teacher's pkg/connmgr.Connmgr — this
// keeps its actionch/single-consumer idiom in spirit (all state mutation
// happens in one place) but replaces the internal goroutine+channel loop
// with callbacks delivered to pkg/node's own event loop, since spec §5
// mandates exactly one loop for the whole engine rather than one per
// subsystem.
package connmgr

import (
	"net"
	"time"

	"github.com/chainward/btcp2p/pkg/candidate"
	"github.com/chainward/btcp2p/pkg/network"
	"github.com/chainward/btcp2p/pkg/wire"
)

// DialResult is delivered asynchronously once a dial attempt completes,
// success or failure.
type DialResult struct {
	SlotIndex  int
	Generation uint64
	Candidate  *candidate.Candidate
	Conn       net.Conn
	Err        error
}

// CloseResult is delivered once a socket close completes. The slot must
// not be re-dialed until this arrives.
type CloseResult struct {
	SlotIndex  int
	Generation uint64
}

// ReadResult is delivered for every segment read from a peer's socket, or
// once with a non-nil Err on EOF/read error.
type ReadResult struct {
	SlotIndex  int
	Generation uint64
	Data       []byte
	Err        error
}

// Connmgr dials, closes, and replaces peer connections. It owns no peer
// state itself; it only
// performs I/O and reports completions on the channels supplied at
// construction.
type Connmgr struct {
	Magic       wire.Magic
	DialTimeout time.Duration

	dials  chan DialResult
	closes chan CloseResult
	reads  chan ReadResult
}

// New builds a connection manager. The three channels are the sole
// interface back to the event loop.
func New(magic wire.Magic, dialTimeout time.Duration) *Connmgr {
	return &Connmgr{
		Magic:       magic,
		DialTimeout: dialTimeout,
		dials:       make(chan DialResult, 64),
		closes:      make(chan CloseResult, 64),
		reads:       make(chan ReadResult, 256),
	}
}

// Dials is the channel dial completions arrive on.
func (c *Connmgr) Dials() <-chan DialResult { return c.dials }

// Closes is the channel close completions arrive on.
func (c *Connmgr) Closes() <-chan CloseResult { return c.closes }

// Reads is the channel read segments (and terminal read errors) arrive on.
func (c *Connmgr) Reads() <-chan ReadResult { return c.reads }

// DialInto starts an asynchronous connect to cand for slotIndex/generation
// and returns immediately; the result arrives on Dials().
func (c *Connmgr) DialInto(slotIndex int, generation uint64, cand *candidate.Candidate) {
	addr := cand.Key()
	go func() {
		conn, err := net.DialTimeout("tcp4", addr, c.DialTimeout)
		c.dials <- DialResult{SlotIndex: slotIndex, Generation: generation, Candidate: cand, Conn: conn, Err: err}
	}()
}

// StartReading launches the read loop for a freshly connected peer. It
// pushes every segment (and the terminal error) to Reads() and exits once
// the connection errors or is closed. Grounded on the single-reader-
// goroutine-per-connection idiom used throughout the pack's peer
// implementations (e.g. con-quistador-dusk-blockchain's peermgr).
func (c *Connmgr) StartReading(slotIndex int, generation uint64, conn net.Conn) {
	go func() {
		buf := make([]byte, 16*1024)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				segment := append([]byte(nil), buf[:n]...)
				c.reads <- ReadResult{SlotIndex: slotIndex, Generation: generation, Data: segment}
			}
			if err != nil {
				c.reads <- ReadResult{SlotIndex: slotIndex, Generation: generation, Err: err}
				return
			}
		}
	}()
}

// Close starts an asynchronous close of conn; completion arrives on
// Closes(). Closing an already-closed connection is safe: net.Conn.Close
// is idempotent-enough for this engine's purposes.
func (c *Connmgr) Close(slotIndex int, generation uint64, conn net.Conn) {
	go func() {
		if conn != nil {
			_ = conn.Close()
		}
		c.closes <- CloseResult{SlotIndex: slotIndex, Generation: generation}
	}()
}

// ConnectToBestCandidate implements connect_to_best_candidate_as_peer
//: pick the best unbound candidate and dial it into slot. If
// the registry has nothing eligible, the caller must defer — the next
// scheduler tick retries.
func ConnectToBestCandidate(cm *Connmgr, registry *candidate.Registry, slot *network.Peer, bound map[string]bool) error {
	best, err := registry.BestNonPeer(bound)
	if err != nil {
		return err
	}
	slot.Reset()
	slot.Candidate = best
	slot.State = network.SlotDialing
	cm.DialInto(slot.Index, slot.Generation, best)
	return nil
}
