// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command testnet-setup generates the per-node TOML configs for a local
// multi-validator devnet (spec.md §6): one directory per validator and
// per full (read-only) node, each with its own hub.toml ready for
// `hubd --config-path`. Grounded on the teacher's own cmd/consensus
// cobra-root layout; config marshaling uses the same pelletier/go-toml/v2
// dependency config.Load unmarshals with.
package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/farcasterxyz/hubd/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "testnet-setup:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		outputDir     string
		blockTimeMS   int
		numShards     uint32
		numValidators int
		numFullNodes  int
		topology      string
	)

	cmd := &cobra.Command{
		Use:   "testnet-setup",
		Short: "Generate TOML configs for a local hubd devnet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), outputDir, blockTimeMS, numShards, numValidators, numFullNodes, topology)
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", "./devnet", "directory to write per-node config directories into")
	cmd.Flags().IntVar(&blockTimeMS, "block-time", 2000, "block time in milliseconds")
	cmd.Flags().Uint32Var(&numShards, "num-shards", 2, "number of user-state shards (excludes the block shard)")
	cmd.Flags().IntVar(&numValidators, "num-validators", 4, "number of voting validator nodes")
	cmd.Flags().IntVar(&numFullNodes, "num-full-nodes", 0, "number of read-only (non-voting) nodes")
	cmd.Flags().StringVar(&topology, "topology", "default", "gossip bootstrap topology: default|sparse|groups|small")

	return cmd
}

type validator struct {
	pubKeyHex  string
	privKeyHex string
	gossipAddr string
	rpcAddr    string
	httpAddr   string
}

func run(out io.Writer, outputDir string, blockTimeMS int, numShards uint32, numValidators, numFullNodes int, topology string) error {
	if topology == "small" {
		numValidators = 1
		numFullNodes = 0
	}
	if numValidators < 1 {
		return fmt.Errorf("testnet-setup: num-validators must be >= 1")
	}

	validators := make([]validator, numValidators)
	for i := range validators {
		pub, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			return fmt.Errorf("testnet-setup: generate key: %w", err)
		}
		validators[i] = validator{
			pubKeyHex:  hex.EncodeToString(pub),
			privKeyHex: hex.EncodeToString(priv.Seed()),
			gossipAddr: fmt.Sprintf("127.0.0.1:%d", 3000+i*10),
			rpcAddr:    fmt.Sprintf("127.0.0.1:%d", 3001+i*10),
			httpAddr:   fmt.Sprintf("127.0.0.1:%d", 3002+i*10),
		}
	}

	members := make([]string, numValidators)
	for i, v := range validators {
		members[i] = v.pubKeyHex
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("testnet-setup: %w", err)
	}

	// Each node's directory is an independent set of writes (its own
	// hub.toml under its own subdirectory), so the group fans them out
	// concurrently; lines are buffered per-index and printed in order
	// afterward so the summary stays deterministic regardless of which
	// goroutine finishes first.
	validatorLines := make([]string, numValidators)
	var g errgroup.Group
	for i, v := range validators {
		i, v := i, v
		g.Go(func() error {
			cfg := config.Default()
			cfg.RPCAddress = v.rpcAddr
			cfg.HTTPAddress = v.httpAddr
			cfg.RocksDBDir = ".rocks"
			cfg.Gossip = config.GossipConfig{
				Address:        v.gossipAddr,
				BootstrapPeers: bootstrapPeers(topology, validators, i),
			}
			cfg.Consensus = config.ConsensusConfig{
				PrivateKey:  v.privKeyHex,
				BlockTimeMS: blockTimeMS,
				NumShards:   numShards,
				ValidatorSets: []config.ValidatorSetEntry{
					{EffectiveAtHeight: 0, Members: members},
				},
			}

			dir := filepath.Join(outputDir, fmt.Sprintf("validator-%d", i))
			if err := writeNodeConfig(dir, cfg); err != nil {
				return err
			}
			validatorLines[i] = fmt.Sprintf("validator-%d: gossip=%s rpc=%s http=%s pubkey=%s\n", i, v.gossipAddr, v.rpcAddr, v.httpAddr, v.pubKeyHex)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, line := range validatorLines {
		fmt.Fprint(out, line)
	}

	fullNodeLines := make([]string, numFullNodes)
	g = errgroup.Group{}
	for i := 0; i < numFullNodes; i++ {
		i := i
		g.Go(func() error {
			cfg := config.Default()
			cfg.RPCAddress = fmt.Sprintf("127.0.0.1:%d", 4001+i*10)
			cfg.HTTPAddress = fmt.Sprintf("127.0.0.1:%d", 4002+i*10)
			cfg.RocksDBDir = ".rocks"
			cfg.Gossip = config.GossipConfig{
				Address:        fmt.Sprintf("127.0.0.1:%d", 4000+i*10),
				BootstrapPeers: []string{validators[0].gossipAddr},
			}
			cfg.Consensus = config.ConsensusConfig{
				BlockTimeMS: blockTimeMS,
				NumShards:   numShards,
				ValidatorSets: []config.ValidatorSetEntry{
					{EffectiveAtHeight: 0, Members: members},
				},
			}

			dir := filepath.Join(outputDir, fmt.Sprintf("full-%d", i))
			if err := writeNodeConfig(dir, cfg); err != nil {
				return err
			}
			fullNodeLines[i] = fmt.Sprintf("full-%d: gossip=%s rpc=%s http=%s (run hubd with --read-only)\n", i, cfg.Gossip.Address, cfg.RPCAddress, cfg.HTTPAddress)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, line := range fullNodeLines {
		fmt.Fprint(out, line)
	}

	return nil
}

// bootstrapPeers wires each node's gossip bootstrap list according to
// topology: "default" meshes every node off validator 0, "sparse" chains
// each node off its predecessor, "groups" meshes within groups of four and
// has every node outside the first group also bootstrap off validator 0,
// and "small" (forced to one
// validator by run) needs none.
func bootstrapPeers(topology string, validators []validator, self int) []string {
	if len(validators) <= 1 {
		return nil
	}
	switch topology {
	case "sparse":
		if self == 0 {
			return nil
		}
		return []string{validators[self-1].gossipAddr}
	case "groups":
		const groupSize = 4
		group := self / groupSize
		groupStart := group * groupSize
		var peers []string
		for i := groupStart; i < groupStart+groupSize && i < len(validators); i++ {
			if i != self {
				peers = append(peers, validators[i].gossipAddr)
			}
		}
		if groupStart > 0 {
			peers = append(peers, validators[0].gossipAddr)
		}
		return peers
	default: // "default": full star off validator 0
		if self == 0 {
			return nil
		}
		return []string{validators[0].gossipAddr}
	}
}

func writeNodeConfig(dir string, cfg *config.HubConfig) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("testnet-setup: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("testnet-setup: marshal config: %w", err)
	}
	path := filepath.Join(dir, "hub.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("testnet-setup: write %s: %w", path, err)
	}
	return nil
}
