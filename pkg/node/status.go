package node

import "github.com/chainward/btcp2p/pkg/network"

// Status is a point-in-time snapshot of fleet health, suitable for
// logging or exposing over a future status endpoint.
type Status struct {
	PeersReady    int
	PeersTotal    int
	Candidates    int
	TipHeight     uint32
	MaxFullHeight uint32
	IBDMode       bool
}

// Status builds a Status snapshot from the current loop-owned state.
func (n *Node) Status() Status {
	var ready int
	for _, p := range n.peers {
		if p.State == network.SlotReady {
			ready++
		}
	}
	_, tipHeight := n.chain.Tip()
	return Status{
		PeersReady:    ready,
		PeersTotal:    len(n.peers),
		Candidates:    n.registry.Len(),
		TipHeight:     tipHeight,
		MaxFullHeight: n.chain.MaxFullBlockHeight(),
		IBDMode:       n.ibdMode,
	}
}
