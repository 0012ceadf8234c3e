// Command btcnode runs a standalone outbound-only P2P networking engine
// against internal/memchain as its chain-store adapter. It only dials out
// and does not accept peer connections, so seed it with a listening
// Bitcoin-protocol node, e.g. a local regtest node:
//
//	btcnode -config node.yaml -seed 127.0.0.1:18444
package main

import (
	"flag"
	"log"
	"strings"

	"github.com/chainward/btcp2p/internal/memchain"
	"github.com/chainward/btcp2p/pkg/node"
	"github.com/chainward/btcp2p/pkg/wire"
	"github.com/chainward/btcp2p/pkg/wire/payload"
)

var (
	configPath = flag.String("config", "", "path to a YAML config file; defaults are used when empty")
	seed       = flag.String("seed", "", "comma-separated initial candidate addresses, ip:port")
	network_   = flag.String("net", "regtest", "network magic: mainnet, testnet, or regtest; overridden by a nonzero P2P.Magic in the config file")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("btcnode: %v", err)
	}

	logger, err := node.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("btcnode: logger: %v", err)
	}
	defer logger.Sync()

	magic := magicFor(*network_)
	if cfg.P2P.Magic != 0 {
		magic = wire.MagicFromUint32(cfg.P2P.Magic)
	}
	chain := memchain.New(payload.BlockHeader{})

	n := node.New(cfg, magic, chain, logger)

	var seeds []string
	if *seed != "" {
		seeds = strings.Split(*seed, ",")
	}
	n.Bootstrap(seeds)

	if err := n.Start(); err != nil {
		logger.Sugar().Fatalf("start: %v", err)
	}
	n.Run()
}

func magicFor(name string) wire.Magic {
	switch name {
	case "mainnet":
		return wire.MainNet
	case "testnet":
		return wire.TestNet
	default:
		return wire.RegTest
	}
}
