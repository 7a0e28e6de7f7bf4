// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package readnode implements the Read-validator Path: a non-voting
// replica that replays decided values against its own engine/shard.Engine,
// buffering out-of-order arrivals until the contiguous prefix can be
// applied (spec.md §2, "Read-validator Path"). Grounded on the teacher's
// engine/chain/syncer package shape (ordered-apply-with-buffering over a
// VM), adapted from "apply blocks to a ChainVM" to "commit ShardChunks to
// engine/shard.Engine".
package readnode

import (
	"sync"

	"github.com/farcasterxyz/hubd/errs"
	shardengine "github.com/farcasterxyz/hubd/engine/shard"
	"github.com/farcasterxyz/hubd/store"
	"github.com/farcasterxyz/hubd/types"
)

// DecidedValue is what the gossip decided-value topic (or a sync peer)
// delivers: a height's certified chunk.
type DecidedValue struct {
	Height types.Height
	Chunk  *types.ShardChunk
}

// ReadNode replays decided values in height order without participating
// in voting. Out-of-order arrivals are buffered until the gap closes.
type ReadNode struct {
	engine *shardengine.Engine

	mu      sync.Mutex
	pending map[uint64]*types.ShardChunk
}

// New constructs a ReadNode over an already-initialized Engine.
func New(engine *shardengine.Engine) *ReadNode {
	return &ReadNode{engine: engine, pending: make(map[uint64]*types.ShardChunk)}
}

// Receive buffers dv if it is ahead of the engine's confirmed height, or
// applies it (and every now-contiguous buffered successor) if it is the
// next expected height. Returns every HubEvent emitted across however many
// chunks this call actually committed.
func (r *ReadNode) Receive(dv DecidedValue) ([]store.HubEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.engine.ConfirmedHeight() + 1
	if dv.Height.BlockNumber < next {
		return nil, nil // already applied; replay is idempotent at this layer by being a no-op
	}
	if dv.Height.BlockNumber > next {
		r.pending[dv.Height.BlockNumber] = dv.Chunk
		return nil, nil
	}

	var allEvents []store.HubEvent
	chunk := dv.Chunk
	for {
		events, err := r.engine.CommitShardChunk(chunk)
		if err != nil {
			return allEvents, errs.Wrap(errs.KindStorage, "read-validator replay commit", err)
		}
		allEvents = append(allEvents, events...)

		next = r.engine.ConfirmedHeight() + 1
		nextChunk, ok := r.pending[next]
		if !ok {
			break
		}
		delete(r.pending, next)
		chunk = nextChunk
	}
	return allEvents, nil
}

// PendingHeights reports which out-of-order heights are currently
// buffered, for diagnostics.
func (r *ReadNode) PendingHeights() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, 0, len(r.pending))
	for h := range r.pending {
		out = append(out, h)
	}
	return out
}
