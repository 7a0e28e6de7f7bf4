// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"fmt"

	"github.com/farcasterxyz/hubd/errs"
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/types"
)

// Store is the generic typed-message-store engine: every message class
// (Cast, Reaction, Link, Verification, UserData, UsernameProof) is a Store
// parametrized by its own StoreDef (spec.md §4.3).
type Store struct {
	def StoreDef
}

// New constructs a Store for the given class definition.
func New(def StoreDef) *Store {
	return &Store{def: def}
}

// Def returns the underlying StoreDef, e.g. for the Engine's pruning pass.
func (s *Store) Def() StoreDef { return s.def }

// Merge runs the full merge algorithm for msg against the store's current
// contents, mutating b and emitting events to handler. Returns nil when msg
// is merged; a Duplicate is reported as a Kind=Duplicate *errs.Error
// distinct from Kind=Conflict, per spec.md §7.
func (s *Store) Merge(db *kv.DB, b *kv.Batch, msg *types.Message, handler *EventHandler) error {
	def := s.def
	switch {
	case def.IsAddType(msg), def.IsRemoveType(msg), def.IsCompactStateType(msg):
	default:
		return errs.New(errs.KindValidation, fmt.Sprintf("message type %s not valid for this store", msg.Data.Type))
	}

	tsHash := types.TsHash(msg.Data.Timestamp, msg.Hash)

	conflicts, err := def.GetMergeConflicts(db, b, msg, tsHash)
	if err != nil {
		return errs.Wrap(errs.KindStorage, "get merge conflicts", err)
	}

	for _, c := range conflicts {
		cmp := comparePriority(def, c, msg)
		if cmp > 0 {
			return errs.New(errs.KindConflict, "have_better: existing message outranks incoming message")
		}
		if cmp == 0 {
			return errs.New(errs.KindDuplicate, "message already merged")
		}
	}

	// Every surviving conflict is strictly lower priority: tear it down and
	// fold a synthetic revoke into the merge event.
	for _, c := range conflicts {
		cTsHash := types.TsHash(c.Data.Timestamp, c.Hash)
		cPrimary := PrimaryKey(c.Data.Fid, def.Postfix(), cTsHash)
		if err := b.Delete(cPrimary); err != nil {
			return errs.Wrap(errs.KindStorage, "delete conflicting primary key", err)
		}
		if err := def.DeleteSecondaryIndices(b, cTsHash, c); err != nil {
			return errs.Wrap(errs.KindStorage, "delete conflicting secondary indices", err)
		}
	}

	primary := PrimaryKey(msg.Data.Fid, def.Postfix(), tsHash)
	encoded, err := Encode(msg)
	if err != nil {
		return errs.Wrap(errs.KindStorage, "encode message", err)
	}
	if err := b.Put(primary, encoded); err != nil {
		return errs.Wrap(errs.KindStorage, "write primary key", err)
	}
	if err := def.BuildSecondaryIndices(b, tsHash, msg); err != nil {
		return errs.Wrap(errs.KindStorage, "build secondary indices", err)
	}

	handler.Emit(HubEventTypeMergeMessage, msg.Data.Fid, msg, conflicts)
	return nil
}

// Revoke forcibly removes msg (and its indices) without a competing
// message, emitting a RevokeMessage event — used when a fid's storage rent
// for this class has expired (spec.md §4.2).
func (s *Store) Revoke(b *kv.Batch, msg *types.Message, handler *EventHandler) error {
	def := s.def
	tsHash := types.TsHash(msg.Data.Timestamp, msg.Hash)
	primary := PrimaryKey(msg.Data.Fid, def.Postfix(), tsHash)
	if err := b.Delete(primary); err != nil {
		return errs.Wrap(errs.KindStorage, "delete primary key", err)
	}
	if err := def.DeleteSecondaryIndices(b, tsHash, msg); err != nil {
		return errs.Wrap(errs.KindStorage, "delete secondary indices", err)
	}
	handler.Emit(HubEventTypeRevokeMessage, msg.Data.Fid, msg, nil)
	return nil
}

// Prune removes the oldest stored add for a fid's class once it exceeds
// its capacity, emitting a PruneMessage event. Callers (the Engine) locate
// the oldest message themselves via the store's own (timestamp, hash)
// ordered primary-key iteration and pass it here.
func (s *Store) Prune(b *kv.Batch, msg *types.Message, handler *EventHandler) error {
	def := s.def
	tsHash := types.TsHash(msg.Data.Timestamp, msg.Hash)
	primary := PrimaryKey(msg.Data.Fid, def.Postfix(), tsHash)
	if err := b.Delete(primary); err != nil {
		return errs.Wrap(errs.KindStorage, "delete primary key", err)
	}
	if err := def.DeleteSecondaryIndices(b, tsHash, msg); err != nil {
		return errs.Wrap(errs.KindStorage, "delete secondary indices", err)
	}
	handler.Emit(HubEventTypePruneMessage, msg.Data.Fid, msg, nil)
	return nil
}
