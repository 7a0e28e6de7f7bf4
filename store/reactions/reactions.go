// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package reactions implements store.StoreDef for the Reaction message
// class: ReactionAdd / ReactionRemove, conflict key `(target, type)`.
package reactions

import (
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/store"
	"github.com/farcasterxyz/hubd/types"
)

const (
	postfix       byte = 2
	conflictIndex byte = 10
)

type Def struct{}

func (Def) Postfix() byte { return postfix }

func (Def) AddMessageType() types.MessageType          { return types.MessageTypeReactionAdd }
func (Def) RemoveMessageType() types.MessageType        { return types.MessageTypeReactionRemove }
func (Def) CompactStateMessageType() types.MessageType { return types.MessageTypeNone }

func (Def) IsAddType(msg *types.Message) bool      { return msg.Data.Type == types.MessageTypeReactionAdd }
func (Def) IsRemoveType(msg *types.Message) bool   { return msg.Data.Type == types.MessageTypeReactionRemove }
func (Def) IsCompactStateType(*types.Message) bool { return false }

// targetKey returns: type(1) ∥ either fid_kind(1)=0 ∥ fid_be(4) ∥ hash(20),
// or fid_kind(1)=1 ∥ url bytes.
func targetKey(t types.ReactionType, fid *types.Fid, hash *[20]byte, url string) []byte {
	out := []byte{byte(t)}
	if fid != nil && hash != nil {
		fb := fid.Bytes()
		out = append(out, 0)
		out = append(out, fb[:]...)
		out = append(out, hash[:]...)
		return out
	}
	out = append(out, 1)
	out = append(out, []byte(url)...)
	return out
}

func (Def) MakeAddKey(msg *types.Message) ([]byte, error) {
	a := msg.Data.Body.(types.ReactionAdd)
	return targetKey(a.Type, a.TargetFid, a.TargetHash, a.TargetURL), nil
}

func (Def) MakeRemoveKey(msg *types.Message) ([]byte, error) {
	r := msg.Data.Body.(types.ReactionRemove)
	return targetKey(r.Type, r.TargetFid, r.TargetHash, r.TargetURL), nil
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
		return nil, store.WrapStorage("reaction conflict lookup", err)
	}
	if existing == nil {
		return nil, nil
	}
	return []*types.Message{existing}, nil
}

func (d Def) BuildSecondaryIndices(b *kv.Batch, tsHash [24]byte, msg *types.Message) error {
	ck := d.conflictKey(msg)
	if err := store.SetConflictPointer(b, msg.Data.Fid, conflictIndex, ck, tsHash); err != nil {
		return store.WrapStorage("set reaction conflict pointer", err)
	}
	return nil
}

func (d Def) DeleteSecondaryIndices(b *kv.Batch, tsHash [24]byte, msg *types.Message) error {
	ck := d.conflictKey(msg)
	if err := store.ClearConflictPointer(b, msg.Data.Fid, conflictIndex, ck, tsHash); err != nil {
		return store.WrapStorage("clear reaction conflict pointer", err)
	}
	return nil
}

func (Def) GetPruneSizeLimit() int { return 5000 }
