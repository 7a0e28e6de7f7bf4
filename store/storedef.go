// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/types"
)

// StoreDef is the capability set that specializes the generic Store for
// one message class (spec.md §4.3). Every message class (Cast, Reaction,
// Link, Verification, UserData, UsernameProof) implements this once, in
// its own subpackage.
type StoreDef interface {
	// Postfix is the single byte distinguishing this class's primary-key
	// namespace under a fid's subtree.
	Postfix() byte

	AddMessageType() types.MessageType
	RemoveMessageType() types.MessageType       // zero value if the class has no remove type
	CompactStateMessageType() types.MessageType // zero value if the class has no compact-state type

	IsAddType(msg *types.Message) bool
	IsRemoveType(msg *types.Message) bool
	IsCompactStateType(msg *types.Message) bool

	// MakeAddKey, MakeRemoveKey, and MakeCompactStateAddKey return the
	// class-specific secondary-index key fragment (e.g. target hash for a
	// reaction, address for a verification) used to find conflicts.
	MakeAddKey(msg *types.Message) ([]byte, error)
	MakeRemoveKey(msg *types.Message) ([]byte, error)
	MakeCompactStateAddKey(msg *types.Message) ([]byte, error)
	MakeCompactStatePrefix(fid types.Fid) []byte

	BuildSecondaryIndices(b *kv.Batch, tsHash [24]byte, msg *types.Message) error
	DeleteSecondaryIndices(b *kv.Batch, tsHash [24]byte, msg *types.Message) error

	// GetMergeConflicts returns every currently-stored message that
	// conflicts with msg under this class's conflict key.
	GetMergeConflicts(db *kv.DB, b *kv.Batch, msg *types.Message, tsHash [24]byte) ([]*types.Message, error)

	// GetPruneSizeLimit is the per-fid cap on stored adds for this class.
	GetPruneSizeLimit() int
}
