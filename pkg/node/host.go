package node

import (
	"time"

	"github.com/chainward/btcp2p/pkg/candidate"
	"github.com/chainward/btcp2p/pkg/chainstore"
	"github.com/chainward/btcp2p/pkg/config"
	"github.com/chainward/btcp2p/pkg/network"
	"github.com/chainward/btcp2p/pkg/wire"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Registry gives the peer FSM access to the candidate pool.
func (n *Node) Registry() *candidate.Registry { return n.registry }

// Chain gives the peer FSM access to the chain-store adapter.
func (n *Node) Chain() chainstore.Store { return n.chain }

// IBDMode reports whether the node currently treats itself as syncing.
func (n *Node) IBDMode() bool { return n.ibdMode }

// MinimalPeerVersion is the lowest protocol version this engine will
// accept a handshake from.
func (n *Node) MinimalPeerVersion() uint32 { return wire.MinimalPeerVersion }

// GetAddrThreshold is the registry size below which a fresh handshake
// triggers a getaddr request.
func (n *Node) GetAddrThreshold() int { return n.cfg.P2P.GetAddrThreshold }

// UserAgent is advertised in outbound version messages.
func (n *Node) UserAgent() string { return n.cfg.P2P.UserAgent }

// ProtocolVersion is advertised in outbound version messages.
func (n *Node) ProtocolVersion() uint32 { return n.cfg.P2P.ProtocolVersion }

// Services is advertised in outbound version messages.
func (n *Node) Services() uint64 { return n.cfg.P2P.Services }

// Magic is the wire magic every frame this node emits or accepts must carry.
func (n *Node) Magic() wire.Magic { return n.magic }

// Now is the loop's notion of the current time, injected via SetClock so
// peer-FSM logic never calls time.Now() directly and stays deterministic
// in tests.
func (n *Node) Now() time.Time { return n.now() }

// ReplacePeer tears a slot down and, once its close completes, dials a
// fresh candidate into it. If the slot was never bound to a live socket
// it is recycled immediately.
func (n *Node) ReplacePeer(p *network.Peer) {
	if p.Conn == nil {
		p.Reset()
		n.connectToBestCandidate(p)
		return
	}
	p.State = network.SlotClosing
	n.cm.Close(p.Index, p.Generation, p.Conn)
}

// Log emits a structured event through the node's zap logger. Commands
// listed in P2P.SilentIncomingMessageCommands are downgraded to Debug
// regardless of the level the caller asked for, matching this engine's
// "silence known-chatty commands" config knob.
func (n *Node) Log(level string, msg string, fields map[string]interface{}) {
	if cmd, ok := fields["cmd"]; ok {
		if s, ok := cmd.(string); ok && n.silent[s] {
			level = "debug"
		}
	}
	zfields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zfields = append(zfields, zap.Any(k, v))
	}
	switch zapcore.Level(levelFromString(level)) {
	case zapcore.DebugLevel:
		n.log.Debug(msg, zfields...)
	case zapcore.WarnLevel:
		n.log.Warn(msg, zfields...)
	case zapcore.ErrorLevel:
		n.log.Error(msg, zfields...)
	default:
		n.log.Info(msg, zfields...)
	}
}

func levelFromString(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewLogger builds the zap.Logger a Node should be constructed with,
// honoring the Logger config section's encoding/level/path knobs.
func NewLogger(lc config.Logger) (*zap.Logger, error) {
	var zcfg zap.Config
	if lc.LogEncoding == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	if lc.LogPath != "" {
		zcfg.OutputPaths = []string{lc.LogPath}
	}
	lvl, err := zapcore.ParseLevel(defaultLevel(lc.LogLevel))
	if err != nil {
		return nil, err
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func defaultLevel(s string) string {
	if s == "" {
		return "info"
	}
	return s
}
