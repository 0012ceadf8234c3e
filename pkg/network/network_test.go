package network

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/chainward/btcp2p/pkg/candidate"
	"github.com/chainward/btcp2p/pkg/chainstore"
	"github.com/chainward/btcp2p/pkg/wire"
	"github.com/chainward/btcp2p/pkg/wire/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChain is the minimal chainstore.Store stand-in used by these tests.
type fakeChain struct {
	tip        wire.Uint256
	height     uint32
	maxFull    uint32
	headers    []payload.BlockHeader
	blocks     []payload.Block
}

func (f *fakeChain) Tip() (wire.Uint256, uint32)         { return f.tip, f.height }
func (f *fakeChain) MaxFullBlockHeight() uint32          { return f.maxFull }
func (f *fakeChain) MissingBlocks(limit int) []wire.Uint256 { return nil }
func (f *fakeChain) SubmitHeader(h payload.BlockHeader) (chainstore.Status, error) {
	f.headers = append(f.headers, h)
	return chainstore.StatusNew, nil
}
func (f *fakeChain) SubmitBlock(b payload.Block) (chainstore.Status, error) {
	f.blocks = append(f.blocks, b)
	return chainstore.StatusNew, nil
}
func (f *fakeChain) Save() error { return nil }

type fakeHost struct {
	registry        *candidate.Registry
	chain           *fakeChain
	ibd             bool
	minVersion      uint32
	getaddrThresh   int
	replacedPeers   []*Peer
	now             time.Time
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		registry:      candidate.NewRegistry(100 * time.Millisecond),
		chain:         &fakeChain{},
		minVersion:    70001,
		getaddrThresh: 1000,
		now:           time.Now(),
	}
}

func (f *fakeHost) Registry() *candidate.Registry { return f.registry }
func (f *fakeHost) Chain() chainstore.Store        { return f.chain }
func (f *fakeHost) IBDMode() bool                  { return f.ibd }
func (f *fakeHost) MinimalPeerVersion() uint32      { return f.minVersion }
func (f *fakeHost) GetAddrThreshold() int           { return f.getaddrThresh }
func (f *fakeHost) UserAgent() string               { return "/test:0.1/" }
func (f *fakeHost) ProtocolVersion() uint32         { return 70015 }
func (f *fakeHost) Services() uint64                { return 1 }
func (f *fakeHost) Magic() wire.Magic               { return wire.TestNet }
func (f *fakeHost) Now() time.Time                  { return f.now }
func (f *fakeHost) ReplacePeer(p *Peer)              { f.replacedPeers = append(f.replacedPeers, p) }
func (f *fakeHost) Log(level, msg string, fields map[string]interface{}) {}

func newTestPeer(t *testing.T, conn net.Conn) (*Peer, *fakeHost) {
	t.Helper()
	h := newFakeHost()
	c := &candidate.Candidate{IP: net.ParseIP("10.0.0.1"), Port: 8333}
	p := NewPeer(0)
	p.Bind(conn, c, wire.TestNet, h.now)
	p.State = SlotHandshaking
	return p, h
}

func readMessage(t *testing.T, conn net.Conn) *wire.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	m := &wire.Message{}
	require.NoError(t, m.Decode(conn))
	return m
}

func writeMessage(t *testing.T, conn net.Conn, cmd wire.Command, body []byte) {
	t.Helper()
	m := wire.NewMessage(wire.TestNet, cmd, body)
	buf := &bytes.Buffer{}
	require.NoError(t, m.Encode(buf))
	_, err := conn.Write(buf.Bytes())
	require.NoError(t, err)
}

// TestHandshakeScenario is spec §8 S1: feed version then verack, expect
// our version sent, our verack sent after theirs, then ping, and getaddr
// iff candidates < threshold.
func TestHandshakeScenario(t *testing.T) {
	ours, theirs := net.Pipe()
	defer ours.Close()
	defer theirs.Close()

	p, h := newTestPeer(t, ours)
	h.getaddrThresh = 5 // registry starts empty: 0 < 5, so getaddr should fire

	go func() {
		require.NoError(t, p.SendVersion(h))
	}()
	m := readMessage(t, theirs)
	assert.Equal(t, wire.CmdVersion, m.Command)

	// net.Pipe is unbuffered: every write needs a concurrent reader.
	v := payload.Version{ProtocolVersion: 70015, StartHeight: 100}
	go writeMessage(t, theirs, wire.CmdVersion, v.Encode())

	time.Sleep(50 * time.Millisecond)
	segment := make([]byte, 4096)
	ours.SetReadDeadline(time.Now().Add(time.Second))
	n, rerr := ours.Read(segment)
	require.NoError(t, rerr)
	require.NoError(t, p.FeedBytes(h, segment[:n]))

	assert.True(t, p.WeAcceptThem)
	assert.False(t, p.Handshaken()) // no verack yet

	go writeMessage(t, theirs, wire.CmdVerAck, nil)
	n, rerr = ours.Read(segment)
	require.NoError(t, rerr)
	// FeedBytes writes our replies, so it runs while this goroutine reads them.
	fed := make(chan error, 1)
	go func() { fed <- p.FeedBytes(h, segment[:n]) }()

	// Our verack should now be on the wire, followed by getaddr and ping.
	m = readMessage(t, theirs)
	assert.Equal(t, wire.CmdVerAck, m.Command)
	m = readMessage(t, theirs)
	assert.Equal(t, wire.CmdGetAddr, m.Command)
	m = readMessage(t, theirs)
	assert.Equal(t, wire.CmdPing, m.Command)
	require.NoError(t, <-fed)

	assert.True(t, p.Handshaken()) // property 5: both booleans true
}

// TestPingPongLatency is spec §8 S2: a matching pong records a latency
// sample; after LatencyRingSize samples the candidate's avg latency is
// set.
func TestPingPongLatency(t *testing.T) {
	ours, theirs := net.Pipe()
	defer ours.Close()
	defer theirs.Close()

	p, h := newTestPeer(t, ours)
	p.Candidate = &candidate.Candidate{IP: net.ParseIP("10.0.0.1"), Port: 8333}

	for i := 0; i < LatencyRingSize; i++ {
		sent := make(chan struct{})
		go func() { _ = p.SendPing(h, 777); close(sent) }()
		m := readMessage(t, theirs)
		require.Equal(t, wire.CmdPing, m.Command)
		<-sent // PingSentAt is recorded before the clock moves

		h.now = h.now.Add(50 * time.Millisecond)
		go writeMessage(t, theirs, wire.CmdPong, payload.Pong{Nonce: 777}.Encode())
		segment := make([]byte, 256)
		ours.SetReadDeadline(time.Now().Add(time.Second))
		n, err := ours.Read(segment)
		require.NoError(t, err)
		require.NoError(t, p.FeedBytes(h, segment[:n]))
	}

	assert.True(t, p.Latencies.Full())
	assert.Equal(t, 50*time.Millisecond, p.Candidate.AvgLatency)
}

// TestStaleNonceIgnored is spec §8 property 9: a pong with a stale nonce
// does not update latency or clear the pending ping.
func TestStaleNonceIgnored(t *testing.T) {
	ours, theirs := net.Pipe()
	defer ours.Close()
	defer theirs.Close()
	p, h := newTestPeer(t, ours)

	p.PingNonce = 1
	p.PingSentAt = h.now

	go func() {
		writeMessage(t, theirs, wire.CmdPong, payload.Pong{Nonce: 999}.Encode())
	}()
	segment := make([]byte, 256)
	ours.SetReadDeadline(time.Now().Add(time.Second))
	n, err := ours.Read(segment)
	require.NoError(t, err)
	require.NoError(t, p.FeedBytes(h, segment[:n]))

	assert.True(t, p.PongReceivedAt.IsZero())
	assert.False(t, p.Latencies.Full())
}

// TestChecksumMismatchDropsFrameOnly is spec §8 S5: a bad-checksum frame
// is dropped and a following valid ping is still answered with a pong.
func TestChecksumMismatchDropsFrameOnly(t *testing.T) {
	ours, theirs := net.Pipe()
	defer ours.Close()
	defer theirs.Close()
	p, h := newTestPeer(t, ours)

	bad := wire.NewMessage(wire.TestNet, wire.CmdPing, []byte{1, 2, 3})
	bad.Checksum = 0xdeadbeef
	badBuf := &bytes.Buffer{}
	require.NoError(t, bad.Encode(badBuf))

	good := wire.NewMessage(wire.TestNet, wire.CmdPing, payload.Ping{Nonce: 5}.Encode())
	goodBuf := &bytes.Buffer{}
	require.NoError(t, good.Encode(goodBuf))

	stream := append(badBuf.Bytes(), goodBuf.Bytes()...)

	go func() {
		m := readMessage(t, theirs) // our pong reply
		assert.Equal(t, wire.CmdPong, m.Command)
	}()

	err := p.FeedBytes(h, stream)
	assert.NoError(t, err)
}

// TestPostHandshakeReplacesUselessIBDPeer covers the post-handshake hook's
// IBD branch: a peer whose advertised height trails the local
// max-full-block height is replaced rather than kept.
func TestPostHandshakeReplacesUselessIBDPeer(t *testing.T) {
	ours, theirs := net.Pipe()
	defer ours.Close()
	defer theirs.Close()
	p, h := newTestPeer(t, ours)
	h.ibd = true
	h.chain.maxFull = 1000
	p.HeightHint = 10

	p.WeAcceptThem = true
	p.TheyAcceptedUs = true
	go p.onHandshakeComplete(h)
	time.Sleep(20 * time.Millisecond)

	require.Len(t, h.replacedPeers, 1)
	assert.Same(t, p, h.replacedPeers[0])
}
