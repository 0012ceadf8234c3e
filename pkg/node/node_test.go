package node

import (
	"net"
	"testing"
	"time"

	"github.com/chainward/btcp2p/internal/memchain"
	"github.com/chainward/btcp2p/pkg/config"
	"github.com/chainward/btcp2p/pkg/network"
	"github.com/chainward/btcp2p/pkg/wire"
	"github.com/chainward/btcp2p/pkg/wire/payload"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func noisePeriods() config.Periods {
	// Disable every scheduler task by default; individual tests re-enable
	// only the one they're exercising, keeping assertions deterministic.
	return config.Periods{}
}

func readFrame(t *testing.T, conn net.Conn) *wire.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	rb := wire.NewRingBuffer(wire.RegTest, wire.RingBufferCapacity)
	msgs, err := rb.Feed(buf[:n])
	require.NoError(t, err)
	require.NotEmpty(t, msgs)
	return msgs[0]
}

func writeFrame(t *testing.T, conn net.Conn, cmd wire.Command, body []byte) {
	t.Helper()
	msg := wire.NewMessage(wire.RegTest, cmd, body)
	buf := &writeBufT{}
	require.NoError(t, msg.Encode(buf))
	_, err := conn.Write(buf.b)
	require.NoError(t, err)
}

type writeBufT struct{ b []byte }

func (w *writeBufT) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

// TestNodeDialsHandshakesAndReachesReady exercises the full loop: a
// bootstrapped candidate gets dialed, the node completes a version/verack
// handshake with a fake peer, and the slot reaches SlotReady.
func TestNodeDialsHandshakesAndReachesReady(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := config.Default()
	cfg.P2P.MaxOutgoing = 1
	cfg.P2P.MaxOutgoingIBD = 1
	cfg.P2P.GetAddrThreshold = 0 // keep the handshake exchange minimal
	cfg.Admin.OperationPort = 0
	cfg.Periods = noisePeriods()

	chain := memchain.New(payload.BlockHeader{})
	n := New(cfg, wire.RegTest, chain, zap.NewNop())
	n.Bootstrap([]string{ln.Addr().String()})
	require.NoError(t, n.Start())
	go n.Run()
	defer n.Stop()

	peerConn, err := ln.Accept()
	require.NoError(t, err)
	defer peerConn.Close()

	versionMsg := readFrame(t, peerConn)
	require.Equal(t, wire.CmdVersion, versionMsg.Command)

	v := payload.Version{ProtocolVersion: 70015, Services: 1, UserAgent: "/fake:1.0/"}
	writeFrame(t, peerConn, wire.CmdVersion, v.Encode())
	writeFrame(t, peerConn, wire.CmdVerAck, (payload.VerAck{}).Encode())

	verackMsg := readFrame(t, peerConn)
	require.Equal(t, wire.CmdVerAck, verackMsg.Command)

	require.Eventually(t, func() bool {
		return n.peers[0].State == network.SlotReady
	}, 2*time.Second, 10*time.Millisecond)
}

// TestNodeAdminKillStopsLoop confirms the admin "KILL" command reaches
// Node.Stop and unblocks Run.
func TestNodeAdminKillStopsLoop(t *testing.T) {
	cfg := config.Default()
	cfg.P2P.MaxOutgoing = 1
	cfg.P2P.MaxOutgoingIBD = 1
	cfg.Admin.OperationPort = 0
	cfg.Periods = noisePeriods()

	chain := memchain.New(payload.BlockHeader{})
	n := New(cfg, wire.RegTest, chain, zap.NewNop())
	require.NoError(t, n.Start())

	done := make(chan struct{})
	go func() {
		n.Run()
		close(done)
	}()

	conn, err := net.Dial("tcp", n.adminLn.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("KILL"))
	require.NoError(t, err)
	conn.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("node did not stop after KILL")
	}
}

// TestNodeStatusReportsFleetHealth checks the Status snapshot pulls from
// the chain store and registry rather than stale defaults.
func TestNodeStatusReportsFleetHealth(t *testing.T) {
	cfg := config.Default()
	cfg.P2P.MaxOutgoing = 2
	cfg.P2P.MaxOutgoingIBD = 2
	cfg.Admin.OperationPort = 0
	cfg.Periods = noisePeriods()

	chain := memchain.New(payload.BlockHeader{})
	n := New(cfg, wire.RegTest, chain, zap.NewNop())
	n.Bootstrap([]string{"10.0.0.1:8333", "10.0.0.2:8333"})

	s := n.Status()
	require.Equal(t, 2, s.PeersTotal)
	require.Equal(t, 0, s.PeersReady)
	require.Equal(t, 2, s.Candidates)
	require.False(t, s.IBDMode)
}
