// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package host implements the Consensus Host Actor: the bridge between an
// external single-round BFT driver and one shard's engine/shard.Engine
// (spec.md §4.1). Grounded on the teacher's engine/bft wrapper
// (engine/bft/wrapper.go, engine/bft/comm.go), which wraps an external BFT
// library (github.com/luxfi/bft, "Simplex BFT") the same way this package
// wraps an abstract Driver — we do not import the teacher's own
// github.com/luxfi/bft module (an unpublishable private dependency with no
// use for our sharded social-graph domain); instead the Driver interface
// below is the local equivalent of the callback surface that library (or
// any single-round BFT implementation satisfying spec.md §4.1/§9) drives
// the Host through.
package host

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/farcasterxyz/hubd/errs"
	"github.com/farcasterxyz/hubd/gossip"
	"github.com/farcasterxyz/hubd/mempool"
	shardengine "github.com/farcasterxyz/hubd/engine/shard"
	"github.com/farcasterxyz/hubd/types"
)

// StreamId is the exact big-endian concatenation height(8) ∥ round(8) the
// proposal-part gossip stream is keyed by (spec.md §4.1, §6).
func StreamId(height types.Height, round uint64) gossip.StreamId {
	return gossip.NewStreamId(height.BlockNumber, round)
}

// Validity is the outcome of ReceivedProposalPart: a pure function of
// local state, never of network timing (spec.md §4.1).
type Validity uint8

const (
	ValidityInvalid Validity = iota
	ValidityValid
	ValidityUnknown
)

// LocallyProposedValue is the Host's reply to a driver GetValue call.
type LocallyProposedValue struct {
	Height types.Height
	Round  uint64
	Value  types.ShardHash
}

// Certificate is the driver's Decided payload: the value id plus the
// commit signatures that certify it (spec.md §3 Commits, §8 "commit
// authenticity").
type Certificate struct {
	Height  types.Height
	Round   uint64
	ValueID types.ShardHash
	Commits *types.Commits
}

// Scheduler abstracts "after a delay, do X" so the Host stays a pure
// state machine under test; the real node wires this to a timer/actor
// mailbox (spec.md §5: "schedule StartHeight(height+1) after a delay").
type Scheduler interface {
	After(d time.Duration, fn func())
}

// immediateScheduler runs fn synchronously — used by tests and by any
// caller that wants the height-restart/advance schedule observed
// immediately rather than timer-driven.
type immediateScheduler struct{}

func (immediateScheduler) After(_ time.Duration, fn func()) { fn() }

// ImmediateScheduler is the zero-delay Scheduler.
var ImmediateScheduler Scheduler = immediateScheduler{}

// Driver is the external BFT library's call-in surface, exactly as
// spec.md §4.1/§9 names it. The Host answers these calls; it never
// initiates voting itself.
type Driver interface {
	// StartHeight tells the driver to begin consensus at height, e.g.
	// after ConsensusReady or after a Decided schedules the next one.
	StartHeight(height types.Height)
}

// decidedRecord is what GetDecidedValue serves for sync responders.
type decidedRecord struct {
	commits *types.Commits
	value   []byte
}

// Config holds the timing knobs spec.md §6's consensus.* keys name.
type Config struct {
	StartupDelay time.Duration
	BlockTime    time.Duration
	MaxMessages  int
}

// Host bridges one shard's Driver to its Engine, Mempool, and gossip
// Adapter. One Host per shard actor; every method below corresponds
// 1:1 to a spec.md §4.1 driver callback.
type Host struct {
	shard  types.ShardIndex
	engine *shardengine.Engine
	mp     *mempool.Mempool
	gsp    *gossip.Adapter
	sets   *types.StoredValidatorSets
	driver Driver
	sched  Scheduler
	cfg    Config
	selfID [32]byte

	buffered map[types.ShardHash]*types.FullProposal
	decided  map[uint64]decidedRecord
}

// New constructs a Host for one shard.
func New(shard types.ShardIndex, engine *shardengine.Engine, mp *mempool.Mempool, gsp *gossip.Adapter, sets *types.StoredValidatorSets, driver Driver, sched Scheduler, cfg Config, selfID [32]byte) *Host {
	if sched == nil {
		sched = ImmediateScheduler
	}
	return &Host{
		shard:    shard,
		engine:   engine,
		mp:       mp,
		gsp:      gsp,
		sets:     sets,
		driver:   driver,
		sched:    sched,
		cfg:      cfg,
		selfID:   selfID,
		buffered: make(map[types.ShardHash]*types.FullProposal),
		decided:  make(map[uint64]decidedRecord),
	}
}

// ConsensusReady starts the driver at the height following the last
// committed one, after the configured startup delay (spec.md §4.1).
func (h *Host) ConsensusReady() {
	h.sched.After(h.cfg.StartupDelay, func() {
		h.driver.StartHeight(types.Height{ShardIndex: h.shard, BlockNumber: h.engine.ConfirmedHeight() + 1})
	})
}

// GetValue assembles a proposal from the mempool within timeout, publishes
// the full value on the proposal-part gossip stream keyed by
// StreamId(height, round), and returns its identity. The publish runs in
// the calling goroutine after the proposal is assembled, not concurrently
// with it.
func (h *Host) GetValue(ctx context.Context, height types.Height, round uint64, timeout time.Duration) (LocallyProposedValue, error) {
	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	change, err := h.engine.Propose(h.mp, nowOrDeadline(deadlineCtx), h.cfg.MaxMessages)
	if err != nil {
		return LocallyProposedValue{}, errs.Wrap(errs.KindConsensus, "propose", err)
	}

	chunk := &types.ShardChunk{
		Header: types.ShardHeader{
			Height:    height,
			Timestamp: change.Timestamp,
			ShardRoot: change.NewStateRoot,
		},
		Transactions: change.Transactions,
	}
	chunk.Hash = hashChunkHeader(chunk.Header)

	proposal := &types.FullProposal{
		Height:        height,
		Round:         round,
		Proposer:      h.selfID,
		ProposedChunk: chunk,
	}
	h.buffered[proposal.ValueID()] = proposal

	if h.gsp != nil {
		_ = h.gsp.PublishProposalPart(ctx, nil, &gossip.ProposalPart{
			StreamId: StreamId(height, round),
			Proposal: proposal,
		})
	}

	return LocallyProposedValue{Height: height, Round: round, Value: chunk.Hash}, nil
}

func nowOrDeadline(ctx context.Context) int64 {
	if dl, ok := ctx.Deadline(); ok {
		return dl.Unix()
	}
	return 0
}

// hashChunkHeader is the blake3(header) invariant spec.md §3 names for
// Commits validity ("hash == blake3(header)").
func hashChunkHeader(hdr types.ShardHeader) [32]byte {
	buf := make([]byte, 0, 4+8+8+32+32)
	var shardIdx [4]byte
	binary.BigEndian.PutUint32(shardIdx[:], uint32(hdr.Height.ShardIndex))
	buf = append(buf, shardIdx[:]...)
	var bn [8]byte
	binary.BigEndian.PutUint64(bn[:], hdr.Height.BlockNumber)
	buf = append(buf, bn[:]...)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(hdr.Timestamp))
	buf = append(buf, ts[:]...)
	buf = append(buf, hdr.ShardRoot[:]...)
	buf = append(buf, hdr.ParentHash[:]...)
	return blake3Sum(buf)
}

// ReceivedProposalPart decodes a streamed FullProposal, buffers it, and
// validates it as a pure function of local state (spec.md §4.1).
func (h *Host) ReceivedProposalPart(proposal *types.FullProposal) (Validity, uint64) {
	if proposal.ProposedChunk == nil && proposal.ProposedBlock == nil {
		return ValidityInvalid, 0
	}
	h.buffered[proposal.ValueID()] = proposal

	if proposal.ProposedChunk != nil {
		change := &shardengine.StateChange{
			Transactions: proposal.ProposedChunk.Transactions,
			NewStateRoot: proposal.ProposedChunk.Header.ShardRoot,
			Timestamp:    proposal.ProposedChunk.Header.Timestamp,
		}
		ok, err := h.engine.ValidateStateChange(change)
		if err != nil || !ok {
			return ValidityInvalid, 0
		}
	}
	return ValidityValid, proposal.Round
}

// Decided looks up the buffered proposal by the certificate's value id. If
// it is missing, the height is restarted — safe because the driver will
// re-propose (spec.md §4.1, tested by "consensus height restart", spec.md
// §8 scenario 6). Otherwise the chunk is committed, and — only if this
// replica was the proposer — the decided value is broadcast.
func (h *Host) Decided(cert Certificate) error {
	proposal, ok := h.buffered[cert.ValueID]
	if !ok {
		h.driver.StartHeight(cert.Height)
		return nil
	}

	if proposal.ProposedChunk != nil {
		proposal.ProposedChunk.Commits = cert.Commits
		events, err := h.engine.CommitShardChunk(proposal.ProposedChunk)
		if err != nil {
			// Storage errors during commit are fatal (spec.md §7); the
			// caller is expected to terminate the process.
			return errs.Wrap(errs.KindStorage, "commit decided chunk", err)
		}
		_ = events

		raw, _ := encodeShardChunk(proposal.ProposedChunk)
		h.decided[cert.Height.BlockNumber] = decidedRecord{commits: cert.Commits, value: raw}

		if proposal.Proposer == h.selfID {
			if h.gsp != nil {
				_ = h.gsp.PublishDecidedValue(context.Background(), nil, &gossip.DecidedValue{
					Height:  cert.Height,
					Commits: cert.Commits,
					Value:   raw,
				})
			}
		}
	}

	delete(h.buffered, cert.ValueID)

	next := cert.Height.Next()
	h.sched.After(h.cfg.BlockTime, func() {
		h.driver.StartHeight(next)
	})
	return nil
}

// GetDecidedValue returns the historical (commits, value bytes) pair a
// sync responder serves for height, per spec.md §4.1.
func (h *Host) GetDecidedValue(height uint64) (*types.Commits, []byte, bool) {
	rec, ok := h.decided[height]
	if !ok {
		return nil, nil, false
	}
	return rec.commits, rec.value, true
}

// ProcessSyncedValue decodes a historical ShardChunk received from a sync
// peer, then buffers and validates it through ReceivedProposalPart exactly
// like a live proposal. Only the ShardChunk encoding is decoded (a shard-0
// Block is not), and the proposal carries no Sync-origin tag: it goes
// through the same checks as a live one.
func (h *Host) ProcessSyncedValue(height types.Height, raw []byte) (Validity, error) {
	chunk, err := decodeShardChunk(raw)
	if err != nil {
		return ValidityInvalid, errs.Wrap(errs.KindValidation, "decode synced value", err)
	}
	proposal := &types.FullProposal{Height: height, ProposedChunk: chunk}
	v, _ := h.ReceivedProposalPart(proposal)
	return v, nil
}

// GetValidatorSet resolves the validator set effective at height from the
// StoredValidatorSets, whose entries supersede in height order (spec.md
// §4.1, §3 "Validator set").
func (h *Host) GetValidatorSet(height types.Height) (types.ValidatorSetEntry, bool) {
	return h.sets.EffectiveAt(height)
}
