// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package shard implements the deterministic shard execution engine:
// proposing a state change from the mempool, validating one on replay, and
// committing a decided chunk — while maintaining the shard's
// Merkle-Patricia trie and its complete set of typed message stores
// (spec.md §4.2). Grounded on the teacher's core/vm.VM and
// core/block.ChainVM lifecycle shape (Initialize / propose / commit),
// generalized from "one VM, one chain" to "one engine, one shard, N typed
// stores plus one trie".
package shard

import (
	"github.com/farcasterxyz/hubd/errs"
	"github.com/farcasterxyz/hubd/mempool"
	"github.com/farcasterxyz/hubd/store"
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/trie"
	"github.com/farcasterxyz/hubd/types"
)

// Engine owns one shard's database, trie, and typed stores.
type Engine struct {
	shardIndex      types.ShardIndex
	db              *kv.DB
	tr              *trie.MerkleTrie
	registry        *Registry
	confirmedHeight uint64
	metrics         *Metrics
}

// New constructs an Engine for one shard over an already-open database,
// rebuilding its trie and confirmed height from the last persisted shard
// meta record — durable across restarts — or starting fresh if db has
// never committed a chunk for this shard (spec.md §4.4, §5).
func New(shardIndex types.ShardIndex, db *kv.DB) (*Engine, error) {
	root, confirmedHeight, ok, err := loadShardMeta(db)
	if err != nil {
		return nil, err
	}
	tr := trie.New(db, trie.Branching16)
	if ok {
		tr = trie.Load(db, trie.Branching16, root)
	}
	return &Engine{
		shardIndex:      shardIndex,
		db:              db,
		tr:              tr,
		registry:        NewRegistry(),
		confirmedHeight: confirmedHeight,
	}, nil
}

// WithMetrics attaches m so CommitShardChunk reports committed
// chunks/transactions/events and confirmed height. Optional: a nil-metrics
// Engine behaves exactly as before.
func (e *Engine) WithMetrics(m *Metrics) *Engine {
	e.metrics = m
	return e
}

// ConfirmedHeight returns the last height this Engine has committed.
func (e *Engine) ConfirmedHeight() uint64 { return e.confirmedHeight }

// Root returns the current committed shard root.
func (e *Engine) Root() [32]byte { return e.tr.Root() }

func primaryKeyFor(def store.StoreDef, msg *types.Message) []byte {
	tsHash := types.TsHash(msg.Data.Timestamp, msg.Hash)
	return store.PrimaryKey(msg.Data.Fid, def.Postfix(), tsHash)
}

// applyUserMessage merges msg into its class's store, updating tr to
// reflect the resulting primary-key set. Returns applied=false (no error)
// when msg is a duplicate, conflict loser, or fails validation — such
// messages are simply excluded from the transaction, not treated as a
// propose/commit failure. A Kind=Storage error is fatal.
func (e *Engine) applyUserMessage(tr *trie.MerkleTrie, b *kv.Batch, handler *store.EventHandler, msg *types.Message) (bool, error) {
	s, ok := e.registry.For(msg.Data.Type)
	if !ok {
		return false, nil
	}
	if err := s.Merge(e.db, b, msg, handler); err != nil {
		if errs.Is(err, errs.KindStorage) {
			return false, err
		}
		return false, nil
	}
	events := handler.Events()
	ev := events[len(events)-1]
	for _, c := range ev.Conflicts {
		if err := tr.Delete(primaryKeyFor(s.Def(), c)); err != nil {
			return false, errs.Wrap(errs.KindStorage, "delete conflicting trie key", err)
		}
	}
	if err := tr.Insert(primaryKeyFor(s.Def(), msg)); err != nil {
		return false, errs.Wrap(errs.KindStorage, "insert trie key", err)
	}
	return true, nil
}

// applySystemMessage applies an on-chain event or fname transfer ahead of
// any user message in the same transaction (spec.md §4.2).
func (e *Engine) applySystemMessage(tr *trie.MerkleTrie, b *kv.Batch, vm *types.ValidatorMessage) (bool, error) {
	switch {
	case vm.OnChainEvent != nil:
		applied, mk, err := applyOnChainEvent(b, vm.OnChainEvent)
		if err != nil {
			return false, errs.Wrap(errs.KindStorage, "apply on-chain event", err)
		}
		if applied {
			if err := tr.Insert(mk); err != nil {
				return false, errs.Wrap(errs.KindStorage, "insert trie key", err)
			}
		}
		return applied, nil
	case vm.FnameTransfer != nil:
		applied, mk, err := applyFnameTransfer(b, vm.FnameTransfer)
		if err != nil {
			return false, errs.Wrap(errs.KindStorage, "apply fname transfer", err)
		}
		if applied {
			if err := tr.Insert(mk); err != nil {
				return false, errs.Wrap(errs.KindStorage, "insert trie key", err)
			}
		}
		return applied, nil
	default:
		return false, nil
	}
}

// groupByFid splits mempool entries into per-fid system/user buckets,
// preserving each fid's first-appearance order and, within a fid, the
// relative order of entries in each bucket. System messages are always
// applied before user messages within a transaction regardless of their
// original interleaving (spec.md §4.2).
func groupByFid(entries []*mempool.Entry) ([]types.Fid, map[types.Fid][]*types.ValidatorMessage, map[types.Fid][]*types.Message) {
	var order []types.Fid
	seen := make(map[types.Fid]bool)
	sys := make(map[types.Fid][]*types.ValidatorMessage)
	usr := make(map[types.Fid][]*types.Message)
	for _, e := range entries {
		var fid types.Fid
		if e.Message != nil {
			fid = e.Message.Data.Fid
			usr[fid] = append(usr[fid], e.Message)
		} else if e.Validator != nil {
			if e.Validator.OnChainEvent != nil {
				fid = e.Validator.OnChainEvent.Fid
			} else {
				fid = e.Validator.FnameTransfer.To
			}
			sys[fid] = append(sys[fid], e.Validator)
		} else {
			continue
		}
		if !seen[fid] {
			seen[fid] = true
			order = append(order, fid)
		}
	}
	return order, sys, usr
}

// Propose pulls up to maxMessages entries from mp in FIFO order, groups
// them per-fid, and applies them against a scratch copy of the trie so
// repeated or abandoned proposals never mutate committed state. The result
// is deterministic: any honest validator replaying the same Transactions
// via ValidateStateChange reproduces NewStateRoot.
func (e *Engine) Propose(mp *mempool.Mempool, timestamp int64, maxMessages int) (*StateChange, error) {
	entries := mp.RequestMessages(maxMessages)
	order, sys, usr := groupByFid(entries)

	scratch := e.tr.Clone()
	b := e.db.NewBatch()
	handler := store.NewEventHandler(e.shardIndex, e.confirmedHeight+1)

	var txs []*types.Transaction
	for _, fid := range order {
		tx := &types.Transaction{Fid: fid}
		for _, vm := range sys[fid] {
			applied, err := e.applySystemMessage(scratch, b, vm)
			if err != nil {
				return nil, err
			}
			if applied {
				tx.SystemMessages = append(tx.SystemMessages, vm)
			}
		}
		for _, msg := range usr[fid] {
			applied, err := e.applyUserMessage(scratch, b, handler, msg)
			if err != nil {
				return nil, err
			}
			if applied {
				tx.UserMessages = append(tx.UserMessages, msg)
			}
		}
		accountRoot, err := scratch.SubtreeRoot(store.UserKey(fid))
		if err != nil {
			return nil, errs.Wrap(errs.KindStorage, "read account subtree root", err)
		}
		tx.AccountRoot = accountRoot
		if len(tx.UserMessages) > 0 || len(tx.SystemMessages) > 0 {
			txs = append(txs, tx)
		}
	}

	return &StateChange{
		Transactions: txs,
		NewStateRoot: scratch.Root(),
		Timestamp:    timestamp,
	}, nil
}

// ValidateStateChange re-applies change.Transactions against a fresh
// scratch copy of the committed trie and checks the resulting root matches
// change.NewStateRoot. No network I/O, no mempool access (spec.md §4.2).
func (e *Engine) ValidateStateChange(change *StateChange) (bool, error) {
	scratch := e.tr.Clone()
	b := e.db.NewBatch()
	handler := store.NewEventHandler(e.shardIndex, e.confirmedHeight+1)

	for _, tx := range change.Transactions {
		for _, vm := range tx.SystemMessages {
			if _, err := e.applySystemMessage(scratch, b, vm); err != nil {
				return false, err
			}
		}
		for _, msg := range tx.UserMessages {
			if _, err := e.applyUserMessage(scratch, b, handler, msg); err != nil {
				return false, err
			}
		}
	}
	return scratch.Root() == change.NewStateRoot, nil
}

// CommitShardChunk persists chunk's transactions for real, advances the
// live trie and confirmed height, and runs the per-fid prune/rent-expiry
// sweep. It returns every HubEvent emitted, in order, ready to flush to the
// event stream (spec.md §4.2: "emit all buffered hub events in-order").
func (e *Engine) CommitShardChunk(chunk *types.ShardChunk) ([]store.HubEvent, error) {
	b := e.db.NewBatch()
	handler := store.NewEventHandler(e.shardIndex, chunk.Header.Height.BlockNumber)

	touched := make(map[types.Fid]struct{})
	for _, tx := range chunk.Transactions {
		touched[tx.Fid] = struct{}{}
		for _, vm := range tx.SystemMessages {
			if _, err := e.applySystemMessage(e.tr, b, vm); err != nil {
				return nil, err
			}
		}
		for _, msg := range tx.UserMessages {
			if _, err := e.applyUserMessage(e.tr, b, handler, msg); err != nil {
				return nil, err
			}
		}
	}
	if err := b.Commit(); err != nil {
		return nil, errs.Wrap(errs.KindStorage, "commit shard chunk", err)
	}

	// sweep's own batch is the last one this chunk commits, so the trie's
	// dirty nodes (from both the loop above and any pruning sweep does)
	// and the shard meta record (root, confirmed height) are persisted
	// there together — the one point a crash-then-restart would observe
	// this chunk's final on-disk state. Without this, a restart rebuilds
	// an empty trie whose root can never match a peer's, even though the
	// typed stores' conflict indices correctly report the old messages as
	// duplicates on replay (spec.md §4.4, §5).
	if err := e.sweep(touched, uint64(chunk.Header.Timestamp), chunk.Header.Height.BlockNumber, handler); err != nil {
		return nil, err
	}

	e.confirmedHeight = chunk.Header.Height.BlockNumber
	events := handler.Events()
	if e.metrics != nil {
		e.metrics.CommittedChunks.Inc()
		e.metrics.CommittedTxs.Add(int64(len(chunk.Transactions)))
		e.metrics.EmittedEvents.Add(int64(len(events)))
		e.metrics.ConfirmedHeight.Set(float64(e.confirmedHeight))
	}
	return events, nil
}
