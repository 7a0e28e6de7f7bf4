// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package verifications implements store.StoreDef for the Verification
// message class: VerificationAddAddress / VerificationRemove, conflict key
// `address`.
package verifications

import (
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/store"
	"github.com/farcasterxyz/hubd/types"
)

const (
	postfix       byte = 4
	conflictIndex byte = 10
)

type Def struct{}

func (Def) Postfix() byte { return postfix }

func (Def) AddMessageType() types.MessageType {
	return types.MessageTypeVerificationAddAddress
}
func (Def) RemoveMessageType() types.MessageType        { return types.MessageTypeVerificationRemove }
func (Def) CompactStateMessageType() types.MessageType { return types.MessageTypeNone }

func (Def) IsAddType(msg *types.Message) bool {
	return msg.Data.Type == types.MessageTypeVerificationAddAddress
}
func (Def) IsRemoveType(msg *types.Message) bool {
	return msg.Data.Type == types.MessageTypeVerificationRemove
}
func (Def) IsCompactStateType(*types.Message) bool { return false }

func (Def) MakeAddKey(msg *types.Message) ([]byte, error) {
	a := msg.Data.Body.(types.VerificationAddAddress)
	return a.Address, nil
}

func (Def) MakeRemoveKey(msg *types.Message) ([]byte, error) {
	r := msg.Data.Body.(types.VerificationRemove)
	return r.Address, nil
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
		return nil, store.WrapStorage("verification conflict lookup", err)
	}
	if existing == nil {
		return nil, nil
	}
	return []*types.Message{existing}, nil
}

func (d Def) BuildSecondaryIndices(b *kv.Batch, tsHash [24]byte, msg *types.Message) error {
	ck := d.conflictKey(msg)
	if err := store.SetConflictPointer(b, msg.Data.Fid, conflictIndex, ck, tsHash); err != nil {
		return store.WrapStorage("set verification conflict pointer", err)
	}
	return nil
}

func (d Def) DeleteSecondaryIndices(b *kv.Batch, tsHash [24]byte, msg *types.Message) error {
	ck := d.conflictKey(msg)
	if err := store.ClearConflictPointer(b, msg.Data.Fid, conflictIndex, ck, tsHash); err != nil {
		return store.WrapStorage("clear verification conflict pointer", err)
	}
	return nil
}

func (Def) GetPruneSizeLimit() int { return 50 }
