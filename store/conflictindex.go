// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"github.com/farcasterxyz/hubd/errs"
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/types"
)

// ConflictIndexKey returns the per-fid key that tracks which message
// currently "owns" a class's conflict key (e.g. a cast hash, a
// (target,type) reaction pair, a verification address). Exactly one
// message can own a conflict key at a time; GetMergeConflicts reads this
// pointer to find the message a new one must be compared against.
func ConflictIndexKey(fid types.Fid, indexPrefix byte, conflictKey []byte) []byte {
	k := UserKey(fid)
	k = append(k, indexPrefix)
	k = append(k, conflictKey...)
	return k
}

// LookupConflict resolves the message currently owning conflictKey, if
// any.
func LookupConflict(db *kv.DB, b *kv.Batch, fid types.Fid, postfix, indexPrefix byte, conflictKey []byte) (*types.Message, error) {
	ik := ConflictIndexKey(fid, indexPrefix, conflictKey)
	tsHashBytes, err := b.GetFromDBOrBatch(ik)
	if err != nil {
		if err == kv.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	var tsHash [24]byte
	copy(tsHash[:], tsHashBytes)
	primary := PrimaryKey(fid, postfix, tsHash)
	raw, err := b.GetFromDBOrBatch(primary)
	if err != nil {
		if err == kv.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return Decode(raw)
}

// SetConflictPointer records msg as the current owner of conflictKey.
func SetConflictPointer(b *kv.Batch, fid types.Fid, indexPrefix byte, conflictKey []byte, tsHash [24]byte) error {
	ik := ConflictIndexKey(fid, indexPrefix, conflictKey)
	return b.Put(ik, tsHash[:])
}

// ClearConflictPointer removes the pointer iff it currently points at
// tsHash (a no-op if it has since been overwritten).
func ClearConflictPointer(b *kv.Batch, fid types.Fid, indexPrefix byte, conflictKey []byte, tsHash [24]byte) error {
	ik := ConflictIndexKey(fid, indexPrefix, conflictKey)
	cur, err := b.GetFromDBOrBatch(ik)
	if err != nil {
		if err == kv.ErrNotFound {
			return nil
		}
		return err
	}
	if string(cur) != string(tsHash[:]) {
		return nil
	}
	return b.Delete(ik)
}

// GlobalConflictIndexKey returns the fid-independent key that tracks which
// (fid, message) currently owns a conflict key that must be resolved
// across every fid, e.g. a username. Exactly one message across the whole
// shard can own such a key at a time.
func GlobalConflictIndexKey(indexPrefix byte, conflictKey []byte) []byte {
	k := GlobalKey(indexPrefix)
	return append(k, conflictKey...)
}

// LookupGlobalConflict resolves the message currently owning conflictKey
// shard-wide, regardless of which fid stores it.
func LookupGlobalConflict(db *kv.DB, b *kv.Batch, postfix, indexPrefix byte, conflictKey []byte) (*types.Message, error) {
	ik := GlobalConflictIndexKey(indexPrefix, conflictKey)
	ptr, err := b.GetFromDBOrBatch(ik)
	if err != nil {
		if err == kv.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	if len(ptr) < 4+24 {
		return nil, nil
	}
	fid := types.FidFromBytes(ptr[:4])
	var tsHash [24]byte
	copy(tsHash[:], ptr[4:28])
	primary := PrimaryKey(fid, postfix, tsHash)
	raw, err := b.GetFromDBOrBatch(primary)
	if err != nil {
		if err == kv.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return Decode(raw)
}

// SetGlobalConflictPointer records (fid, tsHash) as the current owner of
// conflictKey shard-wide.
func SetGlobalConflictPointer(b *kv.Batch, fid types.Fid, indexPrefix byte, conflictKey []byte, tsHash [24]byte) error {
	ik := GlobalConflictIndexKey(indexPrefix, conflictKey)
	fb := fid.Bytes()
	v := make([]byte, 0, 28)
	v = append(v, fb[:]...)
	v = append(v, tsHash[:]...)
	return b.Put(ik, v)
}

// ClearGlobalConflictPointer removes the pointer iff it currently points at
// (fid, tsHash).
func ClearGlobalConflictPointer(b *kv.Batch, fid types.Fid, indexPrefix byte, conflictKey []byte, tsHash [24]byte) error {
	ik := GlobalConflictIndexKey(indexPrefix, conflictKey)
	cur, err := b.GetFromDBOrBatch(ik)
	if err != nil {
		if err == kv.ErrNotFound {
			return nil
		}
		return err
	}
	fb := fid.Bytes()
	want := make([]byte, 0, 28)
	want = append(want, fb[:]...)
	want = append(want, tsHash[:]...)
	if string(cur) != string(want) {
		return nil
	}
	return b.Delete(ik)
}

// WrapStorage converts a raw storage-layer error into a Kind=Storage
// *errs.Error, used uniformly by every StoreDef implementation.
func WrapStorage(msg string, err error) error {
	if err == nil {
		return nil
	}
	return errs.Wrap(errs.KindStorage, msg, err)
}
