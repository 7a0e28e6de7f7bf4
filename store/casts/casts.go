// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package casts implements store.StoreDef for the Cast message class:
// CastAdd / CastRemove, conflict key `hash`, with secondary indices by
// parent and by mention (spec.md §3 message-class table).
package casts

import (
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/store"
	"github.com/farcasterxyz/hubd/types"
)

const (
	postfix           byte = 1
	conflictIndex     byte = 10
	byParentIndex     byte = 11
	byMentionIndex    byte = 12
)

// Def implements store.StoreDef for casts.
type Def struct{}

func (Def) Postfix() byte { return postfix }

func (Def) AddMessageType() types.MessageType          { return types.MessageTypeCastAdd }
func (Def) RemoveMessageType() types.MessageType        { return types.MessageTypeCastRemove }
func (Def) CompactStateMessageType() types.MessageType { return types.MessageTypeNone }

func (Def) IsAddType(msg *types.Message) bool          { return msg.Data.Type == types.MessageTypeCastAdd }
func (Def) IsRemoveType(msg *types.Message) bool       { return msg.Data.Type == types.MessageTypeCastRemove }
func (Def) IsCompactStateType(*types.Message) bool     { return false }

func (Def) MakeAddKey(msg *types.Message) ([]byte, error) {
	h := msg.Hash
	return h[:], nil
}

func (Def) MakeRemoveKey(msg *types.Message) ([]byte, error) {
	r := msg.Data.Body.(types.CastRemove)
	return r.TargetHash[:], nil
}

func (Def) MakeCompactStateAddKey(*types.Message) ([]byte, error) { return nil, nil }
func (Def) MakeCompactStatePrefix(fid types.Fid) []byte            { return store.UserKey(fid) }

func (d Def) conflictKey(msg *types.Message) []byte {
	if d.IsRemoveType(msg) {
		k, _ := d.MakeRemoveKey(msg)
		return k
	}
	k, _ := d.MakeAddKey(msg)
	return k
}

func (d Def) GetMergeConflicts(db *kv.DB, b *kv.Batch, msg *types.Message, tsHash [24]byte) ([]*types.Message, error) {
	ck := d.conflictKey(msg)
	existing, err := store.LookupConflict(db, b, msg.Data.Fid, postfix, conflictIndex, ck)
	if err != nil {
		return nil, store.WrapStorage("cast conflict lookup", err)
	}
	if existing == nil {
		return nil, nil
	}
	return []*types.Message{existing}, nil
}

func (d Def) BuildSecondaryIndices(b *kv.Batch, tsHash [24]byte, msg *types.Message) error {
	ck := d.conflictKey(msg)
	if err := store.SetConflictPointer(b, msg.Data.Fid, conflictIndex, ck, tsHash); err != nil {
		return store.WrapStorage("set cast conflict pointer", err)
	}
	if d.IsAddType(msg) {
		add := msg.Data.Body.(types.CastAdd)
		if add.ParentHash != nil {
			k := append([]byte{byParentIndex}, add.ParentHash[:]...)
			k = append(k, tsHash[:]...)
			if err := b.Put(k, []byte{1}); err != nil {
				return store.WrapStorage("build by-parent index", err)
			}
		}
		for _, m := range add.Mentions {
			mb := m.Bytes()
			k := append([]byte{byMentionIndex}, mb[:]...)
			k = append(k, tsHash[:]...)
			if err := b.Put(k, []byte{1}); err != nil {
				return store.WrapStorage("build by-mention index", err)
			}
		}
	}
	return nil
}

func (d Def) DeleteSecondaryIndices(b *kv.Batch, tsHash [24]byte, msg *types.Message) error {
	ck := d.conflictKey(msg)
	if err := store.ClearConflictPointer(b, msg.Data.Fid, conflictIndex, ck, tsHash); err != nil {
		return store.WrapStorage("clear cast conflict pointer", err)
	}
	if d.IsAddType(msg) {
		add := msg.Data.Body.(types.CastAdd)
		if add.ParentHash != nil {
			k := append([]byte{byParentIndex}, add.ParentHash[:]...)
			k = append(k, tsHash[:]...)
			if err := b.Delete(k); err != nil {
				return store.WrapStorage("delete by-parent index", err)
			}
		}
		for _, m := range add.Mentions {
			mb := m.Bytes()
			k := append([]byte{byMentionIndex}, mb[:]...)
			k = append(k, tsHash[:]...)
			if err := b.Delete(k); err != nil {
				return store.WrapStorage("delete by-mention index", err)
			}
		}
	}
	return nil
}

func (Def) GetPruneSizeLimit() int { return 2000 }

// Get resolves the currently-stored CastAdd for fid by its hash, the
// HubService GetCast read path resolves against (spec.md §6). Once a
// CastRemove tombstone owns the hash, Get returns nil.
func Get(db *kv.DB, fid types.Fid, hash [20]byte) (*types.Message, error) {
	b := db.NewBatch()
	msg, err := store.LookupConflict(db, b, fid, postfix, conflictIndex, hash[:])
	if err != nil {
		return nil, store.WrapStorage("cast get", err)
	}
	if msg != nil && msg.Data.Type != types.MessageTypeCastAdd {
		return nil, nil
	}
	return msg, nil
}
