// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package userdata implements store.StoreDef for the UserData message
// class. UserDataAdd is the only variant — a later Add for the same
// UserDataType simply outranks the one it replaces, so GetMergeConflicts
// always reports at most the single currently-stored value.
package userdata

import (
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/store"
	"github.com/farcasterxyz/hubd/types"
)

const (
	postfix       byte = 5
	conflictIndex byte = 10
)

type Def struct{}

func (Def) Postfix() byte { return postfix }

func (Def) AddMessageType() types.MessageType          { return types.MessageTypeUserDataAdd }
func (Def) RemoveMessageType() types.MessageType        { return types.MessageTypeNone }
func (Def) CompactStateMessageType() types.MessageType { return types.MessageTypeNone }

func (Def) IsAddType(msg *types.Message) bool      { return msg.Data.Type == types.MessageTypeUserDataAdd }
func (Def) IsRemoveType(*types.Message) bool       { return false }
func (Def) IsCompactStateType(*types.Message) bool { return false }

func (Def) MakeAddKey(msg *types.Message) ([]byte, error) {
	a := msg.Data.Body.(types.UserDataAdd)
	return []byte{byte(a.Type)}, nil
}

func (Def) MakeRemoveKey(*types.Message) ([]byte, error) { return nil, nil }

func (Def) MakeCompactStateAddKey(*types.Message) ([]byte, error) { return nil, nil }
func (Def) MakeCompactStatePrefix(fid types.Fid) []byte            { return store.UserKey(fid) }

func (d Def) GetMergeConflicts(db *kv.DB, b *kv.Batch, msg *types.Message, tsHash [24]byte) ([]*types.Message, error) {
	ck, _ := d.MakeAddKey(msg)
	existing, err := store.LookupConflict(db, b, msg.Data.Fid, postfix, conflictIndex, ck)
	if err != nil {
		return nil, store.WrapStorage("userdata conflict lookup", err)
	}
	if existing == nil {
		return nil, nil
	}
	return []*types.Message{existing}, nil
}

func (d Def) BuildSecondaryIndices(b *kv.Batch, tsHash [24]byte, msg *types.Message) error {
	ck, _ := d.MakeAddKey(msg)
	if err := store.SetConflictPointer(b, msg.Data.Fid, conflictIndex, ck, tsHash); err != nil {
		return store.WrapStorage("set userdata conflict pointer", err)
	}
	return nil
}

func (d Def) DeleteSecondaryIndices(b *kv.Batch, tsHash [24]byte, msg *types.Message) error {
	ck, _ := d.MakeAddKey(msg)
	if err := store.ClearConflictPointer(b, msg.Data.Fid, conflictIndex, ck, tsHash); err != nil {
		return store.WrapStorage("clear userdata conflict pointer", err)
	}
	return nil
}

// GetPruneSizeLimit is one slot per UserDataType; the class carries no
// history beyond the current value for each field.
func (Def) GetPruneSizeLimit() int { return 8 }

// Get resolves fid's currently-stored value for udType, the HubService
// GetUserDataByFid read path resolves against (spec.md §6).
func Get(db *kv.DB, fid types.Fid, udType types.UserDataType) (*types.Message, error) {
	b := db.NewBatch()
	msg, err := store.LookupConflict(db, b, fid, postfix, conflictIndex, []byte{byte(udType)})
	if err != nil {
		return nil, store.WrapStorage("userdata get", err)
	}
	return msg, nil
}
