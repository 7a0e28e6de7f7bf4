// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package links implements store.StoreDef for the Link message class:
// LinkAdd / LinkRemove, conflict key `(type, target_fid)`.
package links

import (
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/store"
	"github.com/farcasterxyz/hubd/types"
)

const (
	postfix       byte = 3
	conflictIndex byte = 10
	byTargetIndex byte = 11
)

type Def struct{}

func (Def) Postfix() byte { return postfix }

func (Def) AddMessageType() types.MessageType          { return types.MessageTypeLinkAdd }
func (Def) RemoveMessageType() types.MessageType        { return types.MessageTypeLinkRemove }
func (Def) CompactStateMessageType() types.MessageType { return types.MessageTypeNone }

func (Def) IsAddType(msg *types.Message) bool      { return msg.Data.Type == types.MessageTypeLinkAdd }
func (Def) IsRemoveType(msg *types.Message) bool   { return msg.Data.Type == types.MessageTypeLinkRemove }
func (Def) IsCompactStateType(*types.Message) bool { return false }

func targetKey(linkType string, targetFid types.Fid) []byte {
	fb := targetFid.Bytes()
	out := append([]byte(linkType), 0) // NUL separates variable-length type from fixed fid
	out = append(out, fb[:]...)
	return out
}

func (Def) MakeAddKey(msg *types.Message) ([]byte, error) {
	a := msg.Data.Body.(types.LinkAdd)
	return targetKey(a.Type, a.TargetFid), nil
}

func (Def) MakeRemoveKey(msg *types.Message) ([]byte, error) {
	r := msg.Data.Body.(types.LinkRemove)
	return targetKey(r.Type, r.TargetFid), nil
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
		return nil, store.WrapStorage("link conflict lookup", err)
	}
	if existing == nil {
		return nil, nil
	}
	return []*types.Message{existing}, nil
}

func (d Def) BuildSecondaryIndices(b *kv.Batch, tsHash [24]byte, msg *types.Message) error {
	ck := d.conflictKey(msg)
	if err := store.SetConflictPointer(b, msg.Data.Fid, conflictIndex, ck, tsHash); err != nil {
		return store.WrapStorage("set link conflict pointer", err)
	}
	if d.IsAddType(msg) {
		a := msg.Data.Body.(types.LinkAdd)
		fb := a.TargetFid.Bytes()
		k := append([]byte{byTargetIndex}, fb[:]...)
		k = append(k, tsHash[:]...)
		if err := b.Put(k, []byte{1}); err != nil {
			return store.WrapStorage("build by-target index", err)
		}
	}
	return nil
}

func (d Def) DeleteSecondaryIndices(b *kv.Batch, tsHash [24]byte, msg *types.Message) error {
	ck := d.conflictKey(msg)
	if err := store.ClearConflictPointer(b, msg.Data.Fid, conflictIndex, ck, tsHash); err != nil {
		return store.WrapStorage("clear link conflict pointer", err)
	}
	if d.IsAddType(msg) {
		a := msg.Data.Body.(types.LinkAdd)
		fb := a.TargetFid.Bytes()
		k := append([]byte{byTargetIndex}, fb[:]...)
		k = append(k, tsHash[:]...)
		if err := b.Delete(k); err != nil {
			return store.WrapStorage("delete by-target index", err)
		}
	}
	return nil
}

func (Def) GetPruneSizeLimit() int { return 2500 }
