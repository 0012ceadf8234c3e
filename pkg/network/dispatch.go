package network

import (
	"math/rand"

	"github.com/chainward/btcp2p/pkg/wire"
	"github.com/chainward/btcp2p/pkg/wire/payload"
)

// send encodes and writes a message, then runs the per-command post-send
// hook that records timestamps. Writes are
// synchronous from the caller's perspective (net.Conn.Write blocks until
// the kernel accepts the bytes) but spec §4.5's guarantee — that these
// timestamps reflect completion, not enqueue — still holds: they are set
// only after Write returns successfully.
func (p *Peer) send(h Host, cmd wire.Command, body []byte) error {
	msg := wire.NewMessage(h.Magic(), cmd, body)
	buf := &writeBuf{}
	if err := msg.Encode(buf); err != nil {
		return err
	}
	if _, err := p.Conn.Write(buf.Bytes()); err != nil {
		h.Log("warn", "write failed", map[string]interface{}{"peer": p.String(), "cmd": string(cmd), "err": err.Error()})
		return err
	}

	now := h.Now()
	switch cmd {
	case wire.CmdVersion:
		p.HandshakeStart = now
	case wire.CmdPing:
		p.PingSentAt = now
	}
	return nil
}

// SendVersion emits our version message and records handshake_start.
func (p *Peer) SendVersion(h Host) error {
	v := payload.Version{
		ProtocolVersion: h.ProtocolVersion(),
		Services:        h.Services(),
		Timestamp:       h.Now().Unix(),
		AddrRecv:        payload.NetAddr{IP: p.Addr, Port: p.Port},
		Nonce:           rand.Uint64(),
		UserAgent:       h.UserAgent(),
	}
	return p.send(h, wire.CmdVersion, v.Encode())
}

func (p *Peer) sendVerack(h Host) error {
	return p.send(h, wire.CmdVerAck, (payload.VerAck{}).Encode())
}

func (p *Peer) sendGetAddr(h Host) error {
	return p.send(h, wire.CmdGetAddr, (payload.GetAddr{}).Encode())
}

// SendPing issues a ping with the given nonce, recording it as the
// outstanding one pong handling checks against. Exported so the
// scheduler's periodic re-ping task can drive it directly, not just the
// post-handshake hook below.
func (p *Peer) SendPing(h Host, nonce uint64) error {
	p.PingNonce = nonce
	return p.send(h, wire.CmdPing, payload.Ping{Nonce: nonce}.Encode())
}

func (p *Peer) sendPong(h Host, nonce uint64) error {
	return p.send(h, wire.CmdPong, payload.Pong{Nonce: nonce}.Encode())
}

// SendGetHeaders requests headers anchored at hash with no stop hash.
func (p *Peer) SendGetHeaders(h Host, version uint32, tip wire.Uint256) error {
	gh := payload.GetHeaders{Version: version, Locator: []wire.Uint256{tip}}
	return p.send(h, wire.CmdGetHeaders, gh.Encode())
}

// SendGetDataBlock requests a single block and marks it as the peer's
// outstanding request.
func (p *Peer) SendGetDataBlock(h Host, hash wire.Uint256) error {
	if err := p.send(h, wire.CmdGetData, payload.NewGetDataBlock(hash).Encode()); err != nil {
		return err
	}
	p.Requesting = hash
	return nil
}

// FeedBytes appends a freshly-read segment to the peer's stream buffer,
// extracts every complete frame, and dispatches each in
// order. A buffer overflow or oversized payload declaration marks the peer
// desynced/malicious; the caller must replace it.
func (p *Peer) FeedBytes(h Host, segment []byte) error {
	p.LastHeard = h.Now()
	msgs, err := p.Buffer.Feed(segment)
	for _, m := range msgs {
		p.Dispatch(h, m)
	}
	if err != nil {
		h.Log("warn", "peer desynced", map[string]interface{}{"peer": p.String(), "err": err.Error()})
		return err
	}
	return nil
}

// Dispatch decodes a validated frame and runs the matching handler. Decoding errors and unknown commands are peer-
// local: they are logged/counted and never propagated as a failure that
// would tear down the process.
func (p *Peer) Dispatch(h Host, msg *wire.Message) {
	switch msg.Command {
	case wire.CmdVersion:
		p.onVersion(h, msg.Payload)
	case wire.CmdVerAck:
		p.onVerAck(h)
	case wire.CmdPing:
		p.onPing(h, msg.Payload)
	case wire.CmdPong:
		p.onPong(h, msg.Payload)
	case wire.CmdAddr:
		p.onAddr(h, msg.Payload)
	case wire.CmdGetAddr:
		// No-op: this engine only dials out, so it has nothing of
		// its own to answer a getaddr with beyond what Dispatch already
		// logs.
		h.Log("debug", "getaddr received", map[string]interface{}{"peer": p.String()})
	case wire.CmdHeaders:
		p.onHeaders(h, msg.Payload)
	case wire.CmdBlock:
		p.onBlock(h, msg.Payload)
	case wire.CmdInv:
		// Currently ignored, documented extension point.
		h.Log("debug", "inv received", map[string]interface{}{"peer": p.String()})
	case wire.CmdSendHeaders:
		p.ReceivedSendHdrs = true
		h.Log("debug", "sendheaders received", map[string]interface{}{"peer": p.String()})
	case wire.CmdReject:
		p.onReject(h, msg.Payload)
	case wire.CmdGetHeaders, wire.CmdGetBlocks, wire.CmdGetData:
		// This engine never accepts incoming peers beyond the admin port
		// and issues no data in response to these;
		// logged like any other inbound command.
		h.Log("debug", "request received", map[string]interface{}{"peer": p.String(), "cmd": string(msg.Command)})
	default:
		p.UnknownCommands++
		h.Log("debug", "unknown command dropped", map[string]interface{}{"peer": p.String(), "cmd": string(msg.Command)})
	}
}

func (p *Peer) onVersion(h Host, body []byte) {
	v, err := payload.DecodeVersion(body)
	if err != nil {
		h.Log("warn", "bad version payload", map[string]interface{}{"peer": p.String(), "err": err.Error()})
		return
	}
	p.ProtocolVersion = v.ProtocolVersion
	p.Services = v.Services
	p.HeightHint = v.StartHeight

	if v.ProtocolVersion >= h.MinimalPeerVersion() {
		p.WeAcceptThem = true
	}
	if p.Handshaken() {
		p.onHandshakeComplete(h)
	}
}

func (p *Peer) onVerAck(h Host) {
	p.TheyAcceptedUs = true
	_ = p.sendVerack(h)
	if p.Handshaken() {
		p.onHandshakeComplete(h)
	}
}

// onHandshakeComplete runs the post-handshake hook: replace a
// peer that is useless for IBD sync, otherwise request more addresses if
// the registry is thin and kick off the first ping.
func (p *Peer) onHandshakeComplete(h Host) {
	p.State = SlotReady

	if h.IBDMode() {
		maxFullHeight := h.Chain().MaxFullBlockHeight()
		if p.HeightHint < maxFullHeight {
			h.Log("info", "replacing peer useless for IBD sync", map[string]interface{}{"peer": p.String(), "height": p.HeightHint})
			h.ReplacePeer(p)
			return
		}
	}

	if h.Registry().Len() < h.GetAddrThreshold() {
		_ = p.sendGetAddr(h)
	}
	_ = p.SendPing(h, rand.Uint64())
}

func (p *Peer) onPing(h Host, body []byte) {
	ping, err := payload.DecodePing(body)
	if err != nil {
		h.Log("warn", "bad ping payload", map[string]interface{}{"peer": p.String()})
		return
	}
	_ = p.sendPong(h, ping.Nonce)
}

func (p *Peer) onPong(h Host, body []byte) {
	pong, err := payload.DecodePong(body)
	if err != nil {
		h.Log("warn", "bad pong payload", map[string]interface{}{"peer": p.String()})
		return
	}
	if pong.Nonce != p.PingNonce {
		h.Log("debug", "stale pong nonce ignored", map[string]interface{}{"peer": p.String()})
		return
	}
	now := h.Now()
	p.PongReceivedAt = now
	sample := now.Sub(p.PingSentAt)
	p.Latencies.Push(sample)
	if p.Latencies.Full() && p.Candidate != nil {
		h.Registry().RecordLatency(p.Candidate, p.Latencies.Mean())
	}
}

func (p *Peer) onAddr(h Host, body []byte) {
	a, err := payload.DecodeAddr(body)
	if err != nil {
		h.Log("warn", "bad addr payload", map[string]interface{}{"peer": p.String()})
		return
	}
	for _, na := range a.Addrs {
		if !na.IsIPv4() {
			continue // spec §1 Non-goals: IPv6
		}
		ts := h.Now()
		if na.Timestamp != 0 {
			ts = unixTime(na.Timestamp)
		}
		h.Registry().InsertFromAddr(na.IP, na.Port, na.Services, ts)
	}
}

func (p *Peer) onHeaders(h Host, body []byte) {
	hs, err := payload.DecodeHeaders(body)
	if err != nil {
		h.Log("warn", "bad headers payload", map[string]interface{}{"peer": p.String()})
		return
	}
	for _, hdr := range hs.Headers {
		status, err := h.Chain().SubmitHeader(hdr)
		if err != nil {
			h.Log("warn", "submit header failed", map[string]interface{}{"peer": p.String(), "err": err.Error()})
			continue
		}
		h.Log("debug", "header submitted", map[string]interface{}{"peer": p.String(), "status": status.String()})
	}
}

func (p *Peer) onBlock(h Host, body []byte) {
	b, err := payload.DecodeBlock(body)
	if err != nil {
		h.Log("warn", "bad block payload", map[string]interface{}{"peer": p.String()})
		return
	}
	status, err := h.Chain().SubmitBlock(*b)
	if err != nil {
		h.Log("warn", "submit block failed", map[string]interface{}{"peer": p.String(), "err": err.Error()})
	} else {
		h.Log("debug", "block submitted", map[string]interface{}{"peer": p.String(), "status": status.String()})
	}
	p.Requesting = wire.Uint256{}
}

func (p *Peer) onReject(h Host, body []byte) {
	rj, err := payload.DecodeReject(body)
	if err != nil {
		h.Log("warn", "bad reject payload", map[string]interface{}{"peer": p.String()})
		return
	}
	h.Log("info", "peer sent reject", map[string]interface{}{"peer": p.String(), "command": rj.Command, "reason": rj.Reason})
}
