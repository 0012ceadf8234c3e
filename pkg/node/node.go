// Package node wires components C1-C8 into the single event loop spec §5
// mandates: one goroutine consumes connection-manager
// completions and scheduler ticks, and is the only thing that ever
// mutates the peer table, candidate registry, or chain-store handle.
// Grounded on the teacher's pkg/connmgr actionch/loop idiom, generalized
// from "one loop per subsystem" to "one loop for the whole engine," the
// tradeoff spec §9 explicitly calls out as preferred.
package node

import (
	"net"
	"time"

	"github.com/chainward/btcp2p/pkg/admin"
	"github.com/chainward/btcp2p/pkg/candidate"
	"github.com/chainward/btcp2p/pkg/chainstore"
	"github.com/chainward/btcp2p/pkg/config"
	"github.com/chainward/btcp2p/pkg/connmgr"
	"github.com/chainward/btcp2p/pkg/network"
	"github.com/chainward/btcp2p/pkg/scheduler"
	"github.com/chainward/btcp2p/pkg/wire"
	"go.uber.org/zap"
)

// Node owns every loop-private piece of state and is the single
// implementation of network.Host in this module.
type Node struct {
	cfg    config.Config
	magic  wire.Magic
	log    *zap.Logger
	silent map[string]bool

	registry *candidate.Registry
	chain    chainstore.Store
	cm       *connmgr.Connmgr
	wheel    *scheduler.Wheel
	adminLn  *admin.Listener

	peers   []*network.Peer
	ibdMode bool

	now    func() time.Time
	killCh chan struct{}
	tick   *time.Ticker
}

// New builds a Node. chain is the external chain-store adapter; this module ships internal/memchain as a runnable stand-in.
func New(cfg config.Config, magic wire.Magic, chain chainstore.Store, logger *zap.Logger) *Node {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxSlots := cfg.P2P.MaxOutgoing
	if cfg.P2P.MaxOutgoingIBD > maxSlots {
		maxSlots = cfg.P2P.MaxOutgoingIBD
	}
	peers := make([]*network.Peer, maxSlots)
	for i := range peers {
		peers[i] = network.NewPeer(i)
	}

	silent := make(map[string]bool, len(cfg.P2P.SilentIncomingMessageCommands))
	for _, c := range cfg.P2P.SilentIncomingMessageCommands {
		silent[c] = true
	}

	return &Node{
		cfg:      cfg,
		magic:    magic,
		log:      logger,
		silent:   silent,
		registry: candidate.NewRegistry(time.Duration(cfg.Tolerances.LatencyMS) * time.Millisecond),
		chain:    chain,
		cm:       connmgr.New(magic, 5*time.Second),
		wheel:    scheduler.New(time.Now),
		peers:    peers,
		now:      time.Now,
		killCh:   make(chan struct{}, 1),
	}
}

// SetClock overrides the loop's notion of the current time, so tests can
// drive the peer FSM and scheduler deterministically instead of sleeping.
// It replaces the scheduler's tick source too, since both must agree on
// "now" for liveness sweeps to observe consistent ages.
func (n *Node) SetClock(now func() time.Time) {
	n.now = now
	n.wheel = scheduler.New(now)
}

// Bootstrap seeds the candidate registry from a list of "ip:port" strings,
// standing in for the out-of-scope DNS-seed/seed-file/address-book
// collaborator.
func (n *Node) Bootstrap(seeds []string) {
	for _, s := range seeds {
		host, portStr, err := net.SplitHostPort(s)
		if err != nil {
			n.log.Warn("bad seed address", zap.String("seed", s), zap.Error(err))
			continue
		}
		ip := net.ParseIP(host).To4()
		if ip == nil {
			n.log.Warn("non-IPv4 seed skipped", zap.String("seed", s))
			continue
		}
		port := parsePort(portStr)
		n.registry.Upsert(ip, port, 0, n.now())
	}
}

func parsePort(s string) uint16 {
	var p uint16
	for _, r := range s {
		if r < '0' || r > '9' {
			return p
		}
		p = p*10 + uint16(r-'0')
	}
	return p
}

// activeSlotCount is the number of peer slots currently in play: wider
// during IBD.
func (n *Node) activeSlotCount() int {
	if n.ibdMode {
		return n.cfg.P2P.MaxOutgoingIBD
	}
	return n.cfg.P2P.MaxOutgoing
}

// Start binds the admin listener, registers scheduler tasks, and fires
// the first connect attempt for every active slot. Run must be called
// afterward to drive the loop.
func (n *Node) Start() error {
	addr := adminAddr(n.cfg.Admin.OperationPort)
	ln, err := admin.Listen(addr, n.cfg.Admin.Backlog, n.Stop)
	if err != nil {
		return err
	}
	n.adminLn = ln

	n.registerTasks()

	for i := 0; i < n.activeSlotCount(); i++ {
		n.connectToBestCandidate(n.peers[i])
	}

	n.tick = time.NewTicker(100 * time.Millisecond)
	return nil
}

// Stop requests an orderly shutdown of the event loop.
func (n *Node) Stop() {
	select {
	case n.killCh <- struct{}{}:
	default:
	}
}

// Run drives the single event loop until Stop is called. This is the only
// place peer state, the candidate registry, or the chain-store handle are
// touched.
func (n *Node) Run() {
	defer func() {
		if n.tick != nil {
			n.tick.Stop()
		}
		if n.adminLn != nil {
			n.adminLn.Close()
		}
	}()

	for {
		select {
		case <-n.killCh:
			return
		case <-n.tick.C:
			n.wheel.Tick()
		case res := <-n.cm.Dials():
			n.handleDial(res)
		case res := <-n.cm.Closes():
			n.handleClose(res)
		case res := <-n.cm.Reads():
			n.handleRead(res)
		}
	}
}

func (n *Node) handleDial(res connmgr.DialResult) {
	p := n.peers[res.SlotIndex]
	if p.Generation != res.Generation {
		return // stale: slot was recycled since this dial started
	}
	if res.Err != nil {
		n.log.Debug("dial failed", zap.String("peer", p.String()), zap.Error(res.Err))
		n.registry.Disable(res.Candidate)
		n.connectToBestCandidate(p)
		return
	}
	p.Bind(res.Conn, res.Candidate, n.magic, n.now())
	p.State = network.SlotHandshaking
	n.cm.StartReading(p.Index, p.Generation, res.Conn)
	if err := p.SendVersion(n); err != nil {
		n.ReplacePeer(p)
	}
}

func (n *Node) handleClose(res connmgr.CloseResult) {
	p := n.peers[res.SlotIndex]
	if p.Generation != res.Generation {
		return
	}
	p.Reset()
	n.connectToBestCandidate(p)
}

func (n *Node) handleRead(res connmgr.ReadResult) {
	p := n.peers[res.SlotIndex]
	if p.Generation != res.Generation {
		return
	}
	if res.Err != nil {
		n.log.Debug("peer read ended", zap.String("peer", p.String()), zap.Error(res.Err))
		n.ReplacePeer(p)
		return
	}
	if err := p.FeedBytes(n, res.Data); err != nil {
		n.ReplacePeer(p)
	}
}

// connectToBestCandidate implements connect_to_best_candidate_as_peer
//: pick the best unbound candidate for this slot and dial it,
// or defer to the next scheduler tick if the registry has nothing left.
func (n *Node) connectToBestCandidate(p *network.Peer) {
	bound := n.boundCandidates(p)
	if err := connmgr.ConnectToBestCandidate(n.cm, n.registry, p, bound); err != nil {
		n.log.Debug("no candidate available, deferring", zap.Int("slot", p.Index))
	}
}

func (n *Node) boundCandidates(exclude *network.Peer) map[string]bool {
	bound := make(map[string]bool, len(n.peers))
	for _, p := range n.peers {
		if p == exclude {
			continue
		}
		if key := p.Key(); key != "" {
			bound[key] = true
		}
	}
	return bound
}

func adminAddr(port int) string {
	return "0.0.0.0:" + itoa(port)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
