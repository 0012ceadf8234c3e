package node

import (
	"math/rand"
	"time"

	"github.com/chainward/btcp2p/pkg/network"
	"go.uber.org/zap"
)

// registerTasks installs every periodic task this engine runs, each one
// a thin wrapper around a method below so the wheel only ever holds a
// name, a period, and a closure.
func (n *Node) registerTasks() {
	p := n.cfg.Periods
	n.wheel.Schedule("ping_peers", time.Duration(p.PingPeersMS)*time.Millisecond, false, n.pingPeers)
	n.wheel.Schedule("check_peers_connectivity", time.Duration(p.CheckConnectivityMS)*time.Millisecond, false, n.checkPeersConnectivity)
	n.wheel.Schedule("exchange_data_with_peers", time.Duration(p.ExchangeDataMS)*time.Millisecond, false, n.exchangeDataWithPeers)
	n.wheel.Schedule("reset_ibd_mode", time.Duration(p.ResetIBDModeMS)*time.Millisecond, false, n.resetIBDMode)
	n.wheel.Schedule("print_node_status", time.Duration(p.PrintStatusMS)*time.Millisecond, false, n.printNodeStatus)
	n.wheel.Schedule("save_chain_data", time.Duration(p.SaveChainDataMS)*time.Millisecond, false, n.saveChainData)
	n.wheel.Schedule("autoexit", time.Duration(p.AutoexitMS)*time.Millisecond, true, n.Stop)
}

// pingPeers re-pings every handshaken peer. A peer whose previous ping
// went unanswered has `now - ping_sent_at` pushed into its latency ring as
// a synthetic sample, so a stuck peer's candidate score decays the same
// way a slow-but-answering one would, rather than being torn down here;
// check_peers_connectivity is what acts on sustained unresponsiveness.
func (n *Node) pingPeers() {
	now := n.now()
	for _, p := range n.peers {
		if !p.Handshaken() {
			continue
		}
		if !p.PingSentAt.IsZero() && p.PongReceivedAt.Before(p.PingSentAt) {
			n.log.Debug("ping unanswered", zap.String("peer", p.String()))
			p.Latencies.Push(now.Sub(p.PingSentAt))
			if p.Latencies.Full() && p.Candidate != nil {
				n.registry.RecordLatency(p.Candidate, p.Latencies.Mean())
			}
		}
		if err := pingPeer(p, n, rand.Uint64()); err != nil {
			n.log.Debug("ping send failed", zap.String("peer", p.String()), zap.Error(err))
		}
	}
}

// pingPeer is a small indirection over the exported network.Peer.SendPing.
func pingPeer(p *network.Peer, h network.Host, nonce uint64) error {
	return p.SendPing(h, nonce)
}

// checkPeersConnectivity sweeps every slot for liveness violations: a
// handshake that never completed, a peer past its configured maximum
// lifetime, or (logged only) a peer whose mean latency has drifted past
// tolerance. Empty slots are retried here too, covering both startup and
// any slot that a deferred dial left behind.
func (n *Node) checkPeersConnectivity() {
	now := n.now()
	handshakeTolerance := time.Duration(n.cfg.Tolerances.HandshakeMS) * time.Millisecond
	peerLife := time.Duration(n.cfg.Tolerances.PeerLifeMS) * time.Millisecond

	active := n.activeSlotCount()
	for i := 0; i < active; i++ {
		p := n.peers[i]
		switch p.State {
		case network.SlotEmpty:
			n.connectToBestCandidate(p)
		case network.SlotDialing, network.SlotHandshaking:
			if !p.Handshaken() && !p.HandshakeStart.IsZero() && now.Sub(p.HandshakeStart) > handshakeTolerance {
				n.log.Debug("handshake timed out", zap.String("peer", p.String()))
				if p.Candidate != nil {
					n.registry.Disable(p.Candidate)
				}
				n.ReplacePeer(p)
			}
		case network.SlotReady:
			if peerLife > 0 && now.Sub(p.Started) > peerLife {
				n.log.Debug("peer reached its maximum lifetime", zap.String("peer", p.String()))
				n.ReplacePeer(p)
				continue
			}
			if p.Latencies.Full() && n.registry.LatencyTolerance > 0 && p.Latencies.Mean() > n.registry.LatencyTolerance {
				n.log.Debug("peer latency outside tolerance", zap.String("peer", p.String()), zap.Duration("mean", p.Latencies.Mean()))
			}
		}
	}
}

// exchangeDataWithPeers assigns outstanding block fetches to idle
// handshaken peers and asks any peer advertising a taller chain for more
// headers.
func (n *Node) exchangeDataWithPeers() {
	_, tipHeight := n.chain.Tip()

	var idle []*network.Peer
	for _, p := range n.peers {
		if p.State != network.SlotReady || !p.Handshaken() {
			continue
		}
		if p.Requesting.IsZero() {
			idle = append(idle, p)
		}
		if p.HeightHint > tipHeight {
			tipHash, _ := n.chain.Tip()
			if err := p.SendGetHeaders(n, n.cfg.P2P.ProtocolVersion, tipHash); err != nil {
				n.log.Debug("getheaders send failed", zap.String("peer", p.String()), zap.Error(err))
			}
		}
	}
	if len(idle) == 0 {
		return
	}
	missing := n.chain.MissingBlocks(len(idle))
	for i, hash := range missing {
		if err := idle[i].SendGetDataBlock(n, hash); err != nil {
			n.log.Debug("getdata send failed", zap.String("peer", idle[i].String()), zap.Error(err))
		}
	}
}

// resetIBDMode recomputes whether this node still considers itself to be
// doing an initial block download, by comparing how much of the known
// chain is fully materialized locally against the configured threshold.
func (n *Node) resetIBDMode() {
	_, tipHeight := n.chain.Tip()
	maxFull := n.chain.MaxFullBlockHeight()
	ratio := 1.0
	if tipHeight > 0 {
		ratio = float64(maxFull) / float64(tipHeight)
	}
	wasIBD := n.ibdMode
	n.ibdMode = ratio <= n.cfg.P2P.IBDModeAvailabilityThreshold
	if wasIBD != n.ibdMode {
		n.log.Info("ibd mode changed", zap.Bool("ibd", n.ibdMode), zap.Float64("ratio", ratio))
	}
}

// printNodeStatus logs a snapshot of fleet health.
func (n *Node) printNodeStatus() {
	s := n.Status()
	n.log.Info("node status",
		zap.Int("peers_ready", s.PeersReady),
		zap.Int("peers_total", s.PeersTotal),
		zap.Int("candidates", s.Candidates),
		zap.Uint32("tip_height", s.TipHeight),
		zap.Uint32("max_full_height", s.MaxFullHeight),
		zap.Bool("ibd_mode", s.IBDMode),
	)
}

// saveChainData flushes the chain store's buffered state.
func (n *Node) saveChainData() {
	if err := n.chain.Save(); err != nil {
		n.log.Warn("chain save failed", zap.Error(err))
	}
}
