// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command hubd runs one validator (or read-only) replica of the sharded
// social-graph hub: a shard/shard.Engine per hosted shard, a consensus
// Host or read-node per shard, the mempool/admission/gossip/on-chain
// wiring spec.md §4–§6 describe, and the RPC/HTTP front ends. Grounded on
// the teacher's own cmd/consensus/main.go cobra-root layout.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/farcasterxyz/hubd/config"
	"github.com/farcasterxyz/hubd/consensus/host"
	"github.com/farcasterxyz/hubd/consensus/readnode"
	"github.com/farcasterxyz/hubd/consensus/solo"
	"github.com/farcasterxyz/hubd/crypto/admission"
	shardengine "github.com/farcasterxyz/hubd/engine/shard"
	"github.com/farcasterxyz/hubd/gossip"
	"github.com/farcasterxyz/hubd/httpapi"
	"github.com/farcasterxyz/hubd/logging"
	"github.com/farcasterxyz/hubd/mempool"
	"github.com/farcasterxyz/hubd/metrics"
	"github.com/farcasterxyz/hubd/onchain"
	"github.com/farcasterxyz/hubd/onchain/base"
	"github.com/farcasterxyz/hubd/onchain/optimism"
	"github.com/farcasterxyz/hubd/onchain/statestore"
	"github.com/farcasterxyz/hubd/rpc"
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/types"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var clearDB bool
	var logFormat string
	var readOnly bool
	var adminUsername string
	var adminPassword string

	cmd := &cobra.Command{
		Use:   "hubd",
		Short: "Run a sharded BFT social-graph hub replica",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, clearDB, logging.Format(logFormat), readOnly, rpc.Credentials{Username: adminUsername, Password: adminPassword})
		},
	}

	cmd.Flags().StringVar(&configPath, "config-path", "", "path to the node's TOML config file")
	cmd.Flags().BoolVar(&clearDB, "clear-db", false, "wipe each shard's database directory before starting")
	cmd.Flags().StringVar(&logFormat, "log-format", "text", "log encoding: text|json")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "run as a non-voting read replica instead of a validator")
	cmd.Flags().StringVar(&adminUsername, "admin-username", "", "HTTP-Basic username required on AdminService (empty disables auth)")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "HTTP-Basic password required on AdminService")

	return cmd
}

// node is everything started for one hosted shard.
type node struct {
	idx    types.ShardIndex
	db     *kv.DB
	engine *shardengine.Engine
	mp     *mempool.Mempool
	gsp    *gossip.Adapter
	host   *host.Host
	reader *readnode.ReadNode
}

func run(configPath string, clearDB bool, logFormat logging.Format, readOnly bool, adminCreds rpc.Credentials) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(logFormat, logging.LevelInfo)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer log.Sync()

	metricsRegistry := metrics.NewRegistry()

	selfID, signingKey := deriveIdentity(cfg.Consensus.PrivateKey)
	network := types.NetworkMainnet

	shardIDs := cfg.Consensus.ShardIDs
	if len(shardIDs) == 0 {
		for i := uint32(0); i <= cfg.Consensus.NumShards; i++ {
			shardIDs = append(shardIDs, i)
		}
	}

	nodes := make(map[types.ShardIndex]*node, len(shardIDs))
	hubShards := make(map[types.ShardIndex]*rpc.ShardResources)
	adminSinks := make(map[types.ShardIndex]onchain.Sink)
	heightSources := make(map[types.ShardIndex]httpapi.HeightSource)

	for _, id := range shardIDs {
		idx := types.ShardIndex(id)
		dir := filepath.Join(cfg.RocksDBDir, fmt.Sprintf("shard-%d", idx))
		if clearDB {
			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("clear shard %d db: %w", idx, err)
			}
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create shard %d db dir: %w", idx, err)
		}
		db, err := kv.Open(dir)
		if err != nil {
			return fmt.Errorf("open shard %d db: %w", idx, err)
		}

		engine, err := shardengine.New(idx, db)
		if err != nil {
			return fmt.Errorf("rebuild shard %d engine: %w", idx, err)
		}
		engine.WithMetrics(shardengine.NewMetrics(metricsRegistry, uint32(idx)))
		mp := mempool.New(4096, admission.New(network))
		gsp := gossip.New(idx, gossip.NodeID(selfID), nil, gossip.BinaryCodec{})

		n := &node{idx: idx, db: db, engine: engine, mp: mp, gsp: gsp}

		if readOnly {
			n.reader = readnode.New(engine)
			gsp.SetHandler(readNodeGossipHandler{reader: n.reader, log: log.With(logging.Uint32("shard", uint32(idx)))})
		} else {
			h := newVotingHost(idx, engine, mp, gsp, buildValidatorSets(idx, cfg.Consensus.ValidatorSets), signingKey, selfID, cfg, log)
			n.host = h
			h.ConsensusReady()
		}

		nodes[idx] = n
		heightSources[idx] = engine
		if !idx.IsBlockShard() {
			hubShards[idx] = &rpc.ShardResources{DB: db, Mempool: mp}
			adminSinks[idx] = onchain.MempoolSink{Mempool: mp}
		}
	}
	defer func() {
		for _, n := range nodes {
			_ = n.db.Close()
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subscribers := startOnchainSubscribers(ctx, cfg, nodes, log)

	hub := &rpc.HubServer{NumShards: cfg.Consensus.NumShards, Shards: hubShards}
	adminSrv := &rpc.AdminServer{NumShards: cfg.Consensus.NumShards, Sinks: adminSinks, Subscribers: subscribers}
	grpcSrv := rpc.NewServer(hub, adminSrv, adminCreds)

	lis, err := net.Listen("tcp", cfg.RPCAddress)
	if err != nil {
		return fmt.Errorf("listen rpc: %w", err)
	}
	go func() {
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error("rpc server stopped", logging.Err(err))
		}
	}()

	httpSrv := &httpapi.Server{Shards: heightSources}
	httpServer := &http.Server{Addr: cfg.HTTPAddress, Handler: httpSrv.Handler()}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server stopped", logging.Err(err))
		}
	}()

	log.Info("hubd started",
		logging.String("rpc_address", cfg.RPCAddress),
		logging.String("http_address", cfg.HTTPAddress),
		logging.Bool("read_only", readOnly),
		logging.Int("num_hosted_shards", len(shardIDs)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("hubd shutting down")
	cancel()
	grpcSrv.GracefulStop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	return nil
}

// readNodeGossipHandler feeds a shard's decided-value gossip into its
// ReadNode, implementing the read-validator path's "replay decided values"
// contract (spec.md §2) without ever calling back into a Driver.
type readNodeGossipHandler struct {
	reader *readnode.ReadNode
	log    *logging.Logger
}

func (h readNodeGossipHandler) OnProposalPart(from gossip.NodeID, part *gossip.ProposalPart) {}

func (h readNodeGossipHandler) OnDecidedValue(from gossip.NodeID, value *gossip.DecidedValue) {
	chunk, err := host.DecodeShardChunk(value.Value)
	if err != nil {
		h.log.Error("read node: decode decided value", logging.Err(err))
		return
	}
	chunk.Commits = value.Commits
	if _, err := h.reader.Receive(readnode.DecidedValue{Height: value.Height, Chunk: chunk}); err != nil {
		h.log.Error("read node: apply decided value", logging.Err(err))
	}
}

func (h readNodeGossipHandler) OnStatus(from gossip.NodeID, status *gossip.StatusMessage) {}

// driverHolder defers to whichever host.Driver is installed after
// construction, breaking the Host/Driver construction cycle: the solo
// Driver needs a *host.Host to call back into, but host.New requires a
// Driver up front.
type driverHolder struct {
	inner host.Driver
}

func (d *driverHolder) StartHeight(height types.Height) {
	if d.inner != nil {
		d.inner.StartHeight(height)
	}
}

func newVotingHost(idx types.ShardIndex, engine *shardengine.Engine, mp *mempool.Mempool, gsp *gossip.Adapter, sets *types.StoredValidatorSets, signingKey ed25519.PrivateKey, selfID [32]byte, cfg *config.HubConfig, log *logging.Logger) *host.Host {
	holder := &driverHolder{}
	blockTime := time.Duration(cfg.Consensus.BlockTimeMS) * time.Millisecond
	h := host.New(idx, engine, mp, gsp, sets, holder, host.ImmediateScheduler, host.Config{
		StartupDelay: 0,
		BlockTime:    blockTime,
		MaxMessages:  4096,
	}, selfID)
	holder.inner = solo.New(h, ed25519Signer{key: signingKey}, blockTime, log.With(logging.Uint32("shard", uint32(idx))))
	return h
}

// ed25519Signer signs a Vote's canonical bytes with this node's own key —
// distinct from crypto/verify's user-message signature verification, this
// is the validator identity's own commit signature (spec.md §3 Commits).
type ed25519Signer struct {
	key ed25519.PrivateKey
}

func (s ed25519Signer) Sign(vote types.Vote) types.Signature {
	var buf [52]byte
	copy(buf[:4], []byte{byte(vote.Height.ShardIndex >> 24), byte(vote.Height.ShardIndex >> 16), byte(vote.Height.ShardIndex >> 8), byte(vote.Height.ShardIndex)})
	for i := 0; i < 8; i++ {
		buf[4+i] = byte(vote.Height.BlockNumber >> (56 - 8*i))
	}
	for i := 0; i < 8; i++ {
		buf[12+i] = byte(vote.Round >> (56 - 8*i))
	}
	copy(buf[20:], vote.Value[:])

	var sig types.Signature
	copy(sig.Signer[:], s.key.Public().(ed25519.PublicKey))
	copy(sig.Signature[:], ed25519.Sign(s.key, buf[:]))
	return sig
}

func deriveIdentity(hexSeed string) ([32]byte, ed25519.PrivateKey) {
	var id [32]byte
	seed := make([]byte, ed25519.SeedSize)
	if hexSeed != "" {
		if b, err := hex.DecodeString(hexSeed); err == nil && len(b) == ed25519.SeedSize {
			copy(seed, b)
		}
	}
	key := ed25519.NewKeyFromSeed(seed)
	copy(id[:], key.Public().(ed25519.PublicKey))
	return id, key
}

// buildValidatorSets projects the TOML-declared validator sets onto one
// shard's Height space: types.Height.Less compares ShardIndex before
// BlockNumber, so EffectiveAt must carry this shard's own index for
// EffectiveAt lookups to resolve by block number as intended.
func buildValidatorSets(idx types.ShardIndex, entries []config.ValidatorSetEntry) *types.StoredValidatorSets {
	sets := &types.StoredValidatorSets{}
	for _, e := range entries {
		var keys [][32]byte
		for _, m := range e.Members {
			b, err := hex.DecodeString(m)
			if err != nil || len(b) != 32 {
				continue
			}
			var k [32]byte
			copy(k[:], b)
			keys = append(keys, k)
		}
		sets.Entries = append(sets.Entries, types.ValidatorSetEntry{
			EffectiveAt:         types.Height{ShardIndex: idx, BlockNumber: e.EffectiveAtHeight},
			ValidatorPublicKeys: keys,
			ShardIDs:            []types.ShardIndex{idx},
		})
	}
	return sets
}

// startOnchainSubscribers dials both configured EVM chains and runs their
// subscribers against shard 0's database for block-cursor bookkeeping
// (spec.md §4.5 step 1); decoded events are routed to whichever user shard
// the event's fid belongs to.
func startOnchainSubscribers(ctx context.Context, cfg *config.HubConfig, nodes map[types.ShardIndex]*node, log *logging.Logger) map[types.ChainID]*onchain.Subscriber {
	subs := make(map[types.ChainID]*onchain.Subscriber)

	blockShard, ok := nodes[0]
	if !ok || cfg.OnchainEvents.RPCURL == "" {
		return subs
	}
	state := statestore.New(blockShard.db)
	sink := routingSink{nodes: nodes, numShards: cfg.Consensus.NumShards}

	if c, err := onchain.Dial(ctx, cfg.OnchainEvents.RPCURL); err == nil {
		sub := onchain.New(c, optimism.New(cfg.OnchainEvents.StartBlockNumber), state, sink)
		subs[types.ChainIDOptimism] = sub
		go runSubscriber(ctx, sub, log, "optimism")
	} else {
		log.Error("dial optimism rpc", logging.Err(err))
	}

	if cfg.BaseOnchainEvents.RPCURL != "" {
		if c, err := onchain.Dial(ctx, cfg.BaseOnchainEvents.RPCURL); err == nil {
			sub := onchain.New(c, base.New(cfg.BaseOnchainEvents.StartBlockNumber, gethcommon.Address{}), state, sink)
			subs[types.ChainIDBase] = sub
			go runSubscriber(ctx, sub, log, "base")
		} else {
			log.Error("dial base rpc", logging.Err(err))
		}
	}

	return subs
}

func runSubscriber(ctx context.Context, sub *onchain.Subscriber, log *logging.Logger, name string) {
	if err := sub.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("onchain subscriber stopped", logging.String("chain", name), logging.Err(err))
	}
}

// routingSink implements onchain.Sink, dispatching a decoded event to the
// mempool of the shard its fid hashes to (types.ShardForFid), matching the
// per-fid shard placement every RPC/consensus front end agrees on.
type routingSink struct {
	nodes     map[types.ShardIndex]*node
	numShards uint32
}

func (r routingSink) AddValidatorMessage(vm *types.ValidatorMessage) error {
	var fid types.Fid
	if vm.OnChainEvent != nil {
		fid = vm.OnChainEvent.Fid
	} else if vm.FnameTransfer != nil {
		fid = vm.FnameTransfer.To
	}
	idx := types.ShardForFid(fid, r.numShards)
	n, ok := r.nodes[idx]
	if !ok {
		return fmt.Errorf("onchain routing: shard %s not hosted by this node", idx)
	}
	return n.mp.AddValidatorMessage(vm, mempool.SourceLocal)
}
