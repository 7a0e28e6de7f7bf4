// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads the node's TOML configuration file (spec.md §6)
// and applies environment-variable overrides. Grounded on the pack's
// go.mod dependency on pelletier/go-toml/v2 for the marshal/unmarshal
// side; cmd/testnet-setup constructs HubConfig values directly (it is a
// plain exported struct, so no separate builder type is needed) and
// marshals them back out with the same library.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/farcasterxyz/hubd/types"
)

// HubConfig is the full node configuration spec.md §6 describes.
type HubConfig struct {
	RPCAddress  string `toml:"rpc_address"`
	HTTPAddress string `toml:"http_address"`
	RocksDBDir  string `toml:"rocksdb_dir"`
	L1RPCURL    string `toml:"l1_rpc_url"`

	Statsd          StatsdConfig          `toml:"statsd"`
	Gossip          GossipConfig          `toml:"gossip"`
	Consensus       ConsensusConfig       `toml:"consensus"`
	OnchainEvents   OnchainEventsConfig   `toml:"onchain_events"`
	BaseOnchainEvents OnchainEventsConfig `toml:"base_onchain_events"`
	Snapshot        SnapshotConfig        `toml:"snapshot"`
}

type StatsdConfig struct {
	Address string `toml:"address"`
	Prefix  string `toml:"prefix"`
}

type GossipConfig struct {
	Address         string   `toml:"address"`
	BootstrapPeers  []string `toml:"bootstrap_peers"`
}

type ConsensusConfig struct {
	PrivateKey     string              `toml:"private_key"`
	BlockTimeMS    int                 `toml:"block_time_ms"`
	ShardIDs       []uint32            `toml:"shard_ids"`
	NumShards      uint32              `toml:"num_shards"`
	ValidatorSets  []ValidatorSetEntry `toml:"validator_sets"`
}

// ValidatorSetEntry is one TOML-declared validator set, superseding at
// EffectiveAtHeight (spec.md §3 "Validator set").
type ValidatorSetEntry struct {
	EffectiveAtHeight uint64   `toml:"effective_at_height"`
	Members           []string `toml:"members"` // hex-encoded 32-byte public keys
}

type OnchainEventsConfig struct {
	RPCURL             string `toml:"rpc_url"`
	StartBlockNumber   uint64 `toml:"start_block_number"`
	ChainID            uint32 `toml:"chain_id"`
}

type SnapshotConfig struct {
	Enabled   bool   `toml:"enabled"`
	Directory string `toml:"directory"`
}

// Default returns the zero-value-free defaults this node starts from
// before a config file or environment overrides are applied.
func Default() *HubConfig {
	return &HubConfig{
		RPCAddress:  "0.0.0.0:2283",
		HTTPAddress: "0.0.0.0:2281",
		RocksDBDir:  ".rocks",
		Gossip:      GossipConfig{Address: "0.0.0.0:2282"},
		Consensus:   ConsensusConfig{BlockTimeMS: 2000, NumShards: 1},
		OnchainEvents: OnchainEventsConfig{
			ChainID: uint32(types.ChainIDOptimism),
		},
		BaseOnchainEvents: OnchainEventsConfig{
			ChainID: uint32(types.ChainIDBase),
		},
	}
}

// Load reads a TOML file at path, then applies environment overrides
// (spec.md §6: "<APP>__section__key" overrides, e.g.
// HUBD__CONSENSUS__BLOCK_TIME_MS=1000).
func Load(path string) (*HubConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg, "HUBD", os.Environ()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides scans env for HUBD__SECTION__KEY=value entries and
// assigns them onto the matching exported field, matched case-insensitively
// against the toml tag. Only scalar string/int/bool/uint32/uint64 fields at
// top level or one section deep are supported — the set spec.md §6 names.
func applyEnvOverrides(cfg *HubConfig, prefix string, environ []string) error {
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, prefix+"__") {
			continue
		}
		parts := strings.Split(strings.TrimPrefix(k, prefix+"__"), "__")
		if err := setOverride(cfg, parts, v); err != nil {
			return fmt.Errorf("config: env override %s: %w", k, err)
		}
	}
	return nil
}

func setOverride(cfg *HubConfig, path []string, value string) error {
	switch strings.ToLower(path[0]) {
	case "rpc_address":
		cfg.RPCAddress = value
	case "http_address":
		cfg.HTTPAddress = value
	case "rocksdb_dir":
		cfg.RocksDBDir = value
	case "l1_rpc_url":
		cfg.L1RPCURL = value
	case "statsd":
		return setSection(&cfg.Statsd, path[1:], value)
	case "gossip":
		return setSection(&cfg.Gossip, path[1:], value)
	case "consensus":
		return setSection(&cfg.Consensus, path[1:], value)
	case "onchain_events":
		return setSection(&cfg.OnchainEvents, path[1:], value)
	case "base_onchain_events":
		return setSection(&cfg.BaseOnchainEvents, path[1:], value)
	case "snapshot":
		return setSection(&cfg.Snapshot, path[1:], value)
	default:
		return fmt.Errorf("unknown key %q", path[0])
	}
	return nil
}

func setSection(section interface{}, path []string, value string) error {
	if len(path) == 0 {
		return fmt.Errorf("missing key within section")
	}
	key := strings.ToLower(path[0])
	switch s := section.(type) {
	case *StatsdConfig:
		switch key {
		case "address":
			s.Address = value
		case "prefix":
			s.Prefix = value
		default:
			return fmt.Errorf("unknown statsd key %q", key)
		}
	case *GossipConfig:
		switch key {
		case "address":
			s.Address = value
		case "bootstrap_peers":
			s.BootstrapPeers = strings.Split(value, ",")
		default:
			return fmt.Errorf("unknown gossip key %q", key)
		}
	case *ConsensusConfig:
		switch key {
		case "private_key":
			s.PrivateKey = value
		case "block_time_ms":
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			s.BlockTimeMS = n
		case "num_shards":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return err
			}
			s.NumShards = uint32(n)
		default:
			return fmt.Errorf("unknown consensus key %q", key)
		}
	case *OnchainEventsConfig:
		switch key {
		case "rpc_url":
			s.RPCURL = value
		case "start_block_number":
			n, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return err
			}
			s.StartBlockNumber = n
		case "chain_id":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return err
			}
			s.ChainID = uint32(n)
		default:
			return fmt.Errorf("unknown onchain_events key %q", key)
		}
	case *SnapshotConfig:
		switch key {
		case "enabled":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			s.Enabled = b
		case "directory":
			s.Directory = value
		default:
			return fmt.Errorf("unknown snapshot key %q", key)
		}
	default:
		return fmt.Errorf("unsupported section type %T", section)
	}
	return nil
}
