package payload

import (
	"net"
	"testing"

	"github.com/chainward/btcp2p/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestVersionRoundTrip checks that encode/decode are inverse for the
// version message.
func TestVersionRoundTrip(t *testing.T) {
	v := Version{
		ProtocolVersion: 70015,
		Services:        1,
		Timestamp:       1_700_000_000,
		AddrRecv:        NetAddr{Services: 1, IP: net.ParseIP("10.0.0.2"), Port: 8333},
		AddrFrom:        NetAddr{Services: 1, IP: net.ParseIP("10.0.0.1"), Port: 8333},
		Nonce:           0xdeadbeef,
		UserAgent:       "/chainward:0.1/",
		StartHeight:     100,
		Relay:           true,
	}
	decoded, err := DecodeVersion(v.Encode())
	require.NoError(t, err)
	assert.Equal(t, v.ProtocolVersion, decoded.ProtocolVersion)
	assert.Equal(t, v.UserAgent, decoded.UserAgent)
	assert.Equal(t, v.StartHeight, decoded.StartHeight)
	assert.True(t, v.AddrFrom.IP.Equal(decoded.AddrFrom.IP))
	assert.Equal(t, v.AddrFrom.Port, decoded.AddrFrom.Port)
}

func TestAddrRoundTrip(t *testing.T) {
	a := Addr{Addrs: []NetAddr{
		{Timestamp: 111, Services: 1, IP: net.ParseIP("1.2.3.4"), Port: 1},
		{Timestamp: 222, Services: 1, IP: net.ParseIP("5.6.7.8"), Port: 2},
	}}
	decoded, err := DecodeAddr(a.Encode())
	require.NoError(t, err)
	require.Len(t, decoded.Addrs, 2)
	assert.True(t, decoded.Addrs[0].IP.Equal(net.ParseIP("1.2.3.4")))
	assert.Equal(t, uint32(222), decoded.Addrs[1].Timestamp)
}

func TestGetHeadersRoundTrip(t *testing.T) {
	tip := wire.DoubleSHA256([]byte("tip"))
	gh := GetHeaders{Version: 70015, Locator: []wire.Uint256{tip}, HashStop: wire.Uint256{}}
	decoded, err := DecodeGetHeaders(gh.Encode())
	require.NoError(t, err)
	require.Len(t, decoded.Locator, 1)
	assert.Equal(t, tip, decoded.Locator[0])
	assert.True(t, decoded.HashStop.IsZero())
}

func TestGetDataRoundTrip(t *testing.T) {
	h := wire.DoubleSHA256([]byte("block"))
	gd := NewGetDataBlock(h)
	decoded, err := DecodeGetData(gd.Encode())
	require.NoError(t, err)
	require.Len(t, decoded.Items, 1)
	assert.Equal(t, InvBlock, decoded.Items[0].Type)
	assert.Equal(t, h, decoded.Items[0].Hash)
}

func TestHeadersRoundTrip(t *testing.T) {
	h1 := BlockHeader{Version: 1, Timestamp: 100}
	h2 := BlockHeader{Version: 1, PrevBlock: h1.Hash(), Timestamp: 200}
	hs := Headers{Headers: []BlockHeader{h1, h2}}

	decoded, err := DecodeHeaders(hs.Encode())
	require.NoError(t, err)
	require.Len(t, decoded.Headers, 2)
	assert.Equal(t, h1.Hash(), decoded.Headers[0].Hash())
	assert.Equal(t, h1.Hash(), decoded.Headers[1].PrevBlock)
}

func TestPingPongRoundTrip(t *testing.T) {
	p := Ping{Nonce: 42}
	decoded, err := DecodePing(p.Encode())
	require.NoError(t, err)
	assert.Equal(t, p.Nonce, decoded.Nonce)

	pg := Pong{Nonce: 42}
	decodedPong, err := DecodePong(pg.Encode())
	require.NoError(t, err)
	assert.Equal(t, pg.Nonce, decodedPong.Nonce)
}
