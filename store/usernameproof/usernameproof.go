// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package usernameproof implements store.StoreDef for the UsernameProof
// message class. Like UserData, it has no remove variant — a later proof
// for the same name outranks the one it replaces.
package usernameproof

import (
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/store"
	"github.com/farcasterxyz/hubd/types"
)

const (
	postfix       byte = 6
	conflictIndex byte = 10
)

type Def struct{}

func (Def) Postfix() byte { return postfix }

func (Def) AddMessageType() types.MessageType          { return types.MessageTypeUsernameProof }
func (Def) RemoveMessageType() types.MessageType        { return types.MessageTypeNone }
func (Def) CompactStateMessageType() types.MessageType { return types.MessageTypeNone }

func (Def) IsAddType(msg *types.Message) bool {
	return msg.Data.Type == types.MessageTypeUsernameProof
}
func (Def) IsRemoveType(*types.Message) bool       { return false }
func (Def) IsCompactStateType(*types.Message) bool { return false }

func (Def) MakeAddKey(msg *types.Message) ([]byte, error) {
	p := msg.Data.Body.(types.UsernameProof)
	return p.Name, nil
}

func (Def) MakeRemoveKey(*types.Message) ([]byte, error) { return nil, nil }

func (Def) MakeCompactStateAddKey(*types.Message) ([]byte, error) { return nil, nil }
func (Def) MakeCompactStatePrefix(fid types.Fid) []byte            { return store.UserKey(fid) }

// GetMergeConflicts resolves conflicts shard-wide by name, not per-fid:
// spec.md's scenario 3 has fid=1 and fid=2 both claim "alice", and the
// later proof must evict the earlier one regardless of which fid owns it.
func (d Def) GetMergeConflicts(db *kv.DB, b *kv.Batch, msg *types.Message, tsHash [24]byte) ([]*types.Message, error) {
	ck, _ := d.MakeAddKey(msg)
	existing, err := store.LookupGlobalConflict(db, b, postfix, conflictIndex, ck)
	if err != nil {
		return nil, store.WrapStorage("usernameproof conflict lookup", err)
	}
	if existing == nil {
		return nil, nil
	}
	return []*types.Message{existing}, nil
}

func (d Def) BuildSecondaryIndices(b *kv.Batch, tsHash [24]byte, msg *types.Message) error {
	ck, _ := d.MakeAddKey(msg)
	if err := store.SetGlobalConflictPointer(b, msg.Data.Fid, conflictIndex, ck, tsHash); err != nil {
		return store.WrapStorage("set usernameproof conflict pointer", err)
	}
	return nil
}

func (d Def) DeleteSecondaryIndices(b *kv.Batch, tsHash [24]byte, msg *types.Message) error {
	ck, _ := d.MakeAddKey(msg)
	if err := store.ClearGlobalConflictPointer(b, msg.Data.Fid, conflictIndex, ck, tsHash); err != nil {
		return store.WrapStorage("clear usernameproof conflict pointer", err)
	}
	return nil
}

func (Def) GetPruneSizeLimit() int { return 1 }
