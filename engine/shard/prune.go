// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package shard

import (
	"github.com/farcasterxyz/hubd/errs"
	"github.com/farcasterxyz/hubd/store"
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/types"
)

// sweep runs the per-fid prune/rent-expiry pass over every fid touched by a
// just-committed chunk. SPEC_FULL.md §9 resolves pruning-within-the-chunk
// by deferring it to commit time: a chunk may include both an over-cap add
// and (deterministically, here) its own prune. This batch is the last one
// the chunk commits, so it also persists the trie's dirty nodes (from this
// sweep and from the chunk's own message application) and the shard meta
// record together, ready for Engine.New to rebuild from on restart.
func (e *Engine) sweep(touched map[types.Fid]struct{}, blockTimestamp, blockNumber uint64, handler *store.EventHandler) error {
	b := e.db.NewBatch()
	for fid := range touched {
		rent, err := GetRent(b, fid)
		if err != nil {
			return errs.Wrap(errs.KindStorage, "read rent record", err)
		}
		for _, s := range e.registry.Classes() {
			if err := e.sweepClass(b, fid, s, rent, blockTimestamp, handler); err != nil {
				return err
			}
		}
	}
	if err := e.tr.Persist(b); err != nil {
		return err
	}
	if err := b.Put(shardMetaKey(), encodeShardMeta(e.tr.Root(), blockNumber)); err != nil {
		return errs.Wrap(errs.KindStorage, "persist shard meta", err)
	}
	if err := b.Commit(); err != nil {
		return errs.Wrap(errs.KindStorage, "commit prune/rent sweep", err)
	}
	return nil
}

func (e *Engine) sweepClass(b *kv.Batch, fid types.Fid, s *store.Store, rent RentRecord, blockTimestamp uint64, handler *store.EventHandler) error {
	def := s.Def()

	if RentExpired(rent, blockTimestamp) {
		msgs, err := e.classMessages(fid, def.Postfix())
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			if err := s.Revoke(b, msg, handler); err != nil {
				return err
			}
			if err := e.tr.Delete(primaryKeyFor(def, msg)); err != nil {
				return errs.Wrap(errs.KindStorage, "delete revoked trie key", err)
			}
		}
		return nil
	}

	limit := EffectiveCap(def.GetPruneSizeLimit(), rent)
	// classMessages reads straight from the committed pebble DB, so it
	// cannot see deletes this same sweep has staged into b — advancing an
	// index into one snapshot result, rather than re-querying, is what
	// makes the loop actually drain instead of re-selecting the same
	// (still-on-disk) "oldest" message forever.
	msgs, err := e.classMessages(fid, def.Postfix())
	if err != nil {
		return err
	}
	// Primary keys are ordered timestamp_be ∥ hash ascending, so msgs is
	// already oldest-first.
	pruned := 0
	for len(msgs)-pruned > limit {
		oldest := msgs[pruned]
		if err := s.Prune(b, oldest, handler); err != nil {
			return err
		}
		if err := e.tr.Delete(primaryKeyFor(def, oldest)); err != nil {
			return errs.Wrap(errs.KindStorage, "delete pruned trie key", err)
		}
		pruned++
	}
	return nil
}

// classMessages decodes every message currently stored for (fid, postfix),
// in primary-key (timestamp, hash) order.
func (e *Engine) classMessages(fid types.Fid, postfix byte) ([]*types.Message, error) {
	lower := store.PrimaryKeyPrefix(fid, postfix)
	upper := store.IncrementPrefix(lower)
	it, err := e.db.NewIter(lower, upper)
	if err != nil {
		return nil, errs.Wrap(errs.KindStorage, "open prune iterator", err)
	}
	defer it.Close()

	var out []*types.Message
	for it.First(); it.Valid(); it.Next() {
		val := it.Value()
		msg, err := store.Decode(val)
		if err != nil {
			return nil, errs.Wrap(errs.KindStorage, "decode stored message", err)
		}
		out = append(out, msg)
	}
	return out, nil
}
