// Package config defines and loads this engine's configuration. Grounded on the teacher's pkg/config: yaml.v3 struct
// tags, a top-level Config composed of sub-structs, and a Validate step
// alongside a file-loading helper (pkg/config/config.go, logger.go, p2p.go).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration recognized by this engine.
type Config struct {
	P2P        P2P        `yaml:"P2P"`
	Tolerances Tolerances `yaml:"Tolerances"`
	Periods    Periods    `yaml:"Periods"`
	Admin      Admin      `yaml:"Admin"`
	Logger     Logger     `yaml:"Logger"`
}

// P2P holds the wire-identity and fleet-sizing settings.
type P2P struct {
	Magic                         uint32   `yaml:"Magic"` // big-endian form, e.g. 0xf9beb4d9; 0 defers to the -net flag
	ProtocolVersion               uint32   `yaml:"ProtocolVersion"`
	Services                      uint64   `yaml:"Services"`
	UserAgent                     string   `yaml:"UserAgent"`
	MaxOutgoing                   int      `yaml:"MaxOutgoing"`
	MaxOutgoingIBD                int      `yaml:"MaxOutgoingIBD"`
	GetAddrThreshold              int      `yaml:"GetAddrThreshold"`
	IBDModeAvailabilityThreshold  float64  `yaml:"IBDModeAvailabilityThreshold"`
	AddrLife                      int      `yaml:"AddrLife"` // seconds; policy-only, not enforced
	SilentIncomingMessageCommands []string `yaml:"SilentIncomingMessageCommands"`
}

// Tolerances holds the liveness-sweep thresholds, in milliseconds on the
// wire but exposed here as time.Duration-friendly ints.
type Tolerances struct {
	HandshakeMS     int `yaml:"HandshakeMS"`
	LatencyMS       int `yaml:"LatencyMS"`
	PeerLifeMS      int `yaml:"PeerLifeMS"` // 0 disables
	RedialBackoffMS int `yaml:"RedialBackoffMS"`
}

// Periods holds the scheduler's tick intervals, in milliseconds; 0
// disables a task.
type Periods struct {
	PingPeersMS         int `yaml:"PingPeersMS"`
	CheckConnectivityMS int `yaml:"CheckConnectivityMS"`
	ExchangeDataMS      int `yaml:"ExchangeDataMS"`
	ResetIBDModeMS      int `yaml:"ResetIBDModeMS"`
	PrintStatusMS       int `yaml:"PrintStatusMS"`
	SaveChainDataMS     int `yaml:"SaveChainDataMS"`
	AutoexitMS          int `yaml:"AutoexitMS"` // 0 disables
}

// Admin holds the admin TCP surface settings.
type Admin struct {
	OperationPort int `yaml:"OperationPort"`
	Backlog       int `yaml:"Backlog"`
}

// Logger configures structured logging. Grounded directly
// on the teacher's pkg/config.Logger.
type Logger struct {
	LogEncoding string `yaml:"LogEncoding"`
	LogLevel    string `yaml:"LogLevel"`
	LogPath     string `yaml:"LogPath"`
}

// Validate checks field-level invariants the teacher's own Logger.Validate
// checks, plus the handful this engine's own fields require.
func (c Config) Validate() error {
	if len(c.Logger.LogEncoding) > 0 && c.Logger.LogEncoding != "console" && c.Logger.LogEncoding != "json" {
		return fmt.Errorf("config: invalid Logger.LogEncoding: %s", c.Logger.LogEncoding)
	}
	if c.P2P.MaxOutgoing <= 0 {
		return fmt.Errorf("config: P2P.MaxOutgoing must be positive")
	}
	if c.P2P.MaxOutgoingIBD <= 0 {
		return fmt.Errorf("config: P2P.MaxOutgoingIBD must be positive")
	}
	if c.P2P.IBDModeAvailabilityThreshold <= 0 || c.P2P.IBDModeAvailabilityThreshold > 1 {
		return fmt.Errorf("config: P2P.IBDModeAvailabilityThreshold must be in (0,1]")
	}
	return nil
}

// Default returns a Config populated with this engine's named defaults
// (operationPort 9494, ibdModeAvailabilityThreshold 0.95, and so on).
func Default() Config {
	return Config{
		P2P: P2P{
			ProtocolVersion:              70015,
			Services:                     1,
			UserAgent:                    "/chainward:0.1/",
			MaxOutgoing:                  8,
			MaxOutgoingIBD:               16,
			GetAddrThreshold:             500,
			IBDModeAvailabilityThreshold: 0.95,
			AddrLife:                     30 * 24 * 3600,
		},
		Tolerances: Tolerances{
			HandshakeMS:     10_000,
			LatencyMS:       2_000,
			PeerLifeMS:      0,
			RedialBackoffMS: 5_000,
		},
		Periods: Periods{
			PingPeersMS:         11_000,
			CheckConnectivityMS: 10_000,
			ExchangeDataMS:      1_000,
			ResetIBDModeMS:      60_000,
			PrintStatusMS:       2_000,
			SaveChainDataMS:     120_000,
			AutoexitMS:          0,
		},
		Admin: Admin{
			OperationPort: 9494,
			Backlog:       8,
		},
		Logger: Logger{
			LogEncoding: "console",
			LogLevel:    "info",
		},
	}
}

// Load reads and parses a YAML config file, applying Default() first so
// unset fields keep sane values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
